package testutil

import (
	"sitereg/internal/encryption"
	"sitereg/internal/lifecycle"
)

// NewTestEncryptor creates a deterministic encryptor for testing.
func NewTestEncryptor() lifecycle.Encryptor {
	return encryption.NewTestEncryptor()
}
