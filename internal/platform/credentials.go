package platform

import (
	"context"
	"fmt"
	"os"

	"sitereg/internal/config"
)

// CredentialSource resolves a platform token on demand. Tokens are
// never cached in mutable package state; long-lived processes pick up
// rotated credentials on the next call.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a literal token from config.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("no token configured")
	}
	return string(t), nil
}

// EnvToken reads the named environment variable at call time.
type EnvToken string

func (e EnvToken) Token(context.Context) (string, error) {
	v := os.Getenv(string(e))
	if v == "" {
		return "", fmt.Errorf("environment variable %s is not set", string(e))
	}
	return v, nil
}

// NewCredentialSource builds a source from a platform config entry.
// TokenEnv wins over a literal token.
func NewCredentialSource(cfg config.PlatformConfig) CredentialSource {
	if cfg.TokenEnv != "" {
		return EnvToken(cfg.TokenEnv)
	}
	return StaticToken(cfg.Token)
}
