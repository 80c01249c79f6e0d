package encryption

import (
	"bytes"
	"fmt"

	"sitereg/internal/lifecycle"
)

// testHeader is prepended to data by TestEncryptor to make encrypted
// output clearly different from plaintext while remaining deterministic
// and reversible.
var testHeader = []byte("SRENC\x00\x00\x00")

// TestEncryptor is a simple, deterministic encryptor for testing.
// It prepends a fixed 8-byte header during encryption and strips it
// during decryption, requiring no crypto.
type TestEncryptor struct {
	setupCalled bool
}

var _ lifecycle.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.setupCalled = true
	return nil
}

func (e *TestEncryptor) Encrypt(plain []byte) ([]byte, error) {
	out := make([]byte, 0, len(testHeader)+len(plain))
	out = append(out, testHeader...)
	return append(out, plain...), nil
}

func (e *TestEncryptor) Unlock(passphrase string) (lifecycle.DecryptionContext, error) {
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

// TestDecryptionContext strips the test header added by TestEncryptor.
type TestDecryptionContext struct{}

var _ lifecycle.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(cipher []byte) ([]byte, error) {
	if len(cipher) < len(testHeader) || !bytes.Equal(cipher[:len(testHeader)], testHeader) {
		return nil, fmt.Errorf("invalid test encryption header")
	}
	return cipher[len(testHeader):], nil
}
