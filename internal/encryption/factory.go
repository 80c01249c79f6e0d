package encryption

import (
	"fmt"

	"sitereg/internal/config"
	"sitereg/internal/lifecycle"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration
// type. An empty type disables snapshot encryption and returns nil.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (lifecycle.Encryptor, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "age":
		if cfg.PublicKeyPath == "" || cfg.PrivateKeyPath == "" {
			return nil, fmt.Errorf("age encryption requires public_key_path and private_key_path")
		}
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
