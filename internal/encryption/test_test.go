package encryption

import (
	"bytes"
	"testing"
)

func TestTestEncryptor_Setup(t *testing.T) {
	t.Parallel()
	e := NewTestEncryptor()
	if err := e.Setup("any-passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !e.setupCalled {
		t.Error("Setup() did not record that it was called")
	}
}

func TestTestEncryptor_IsConfigured(t *testing.T) {
	t.Parallel()
	e := NewTestEncryptor()
	if !e.IsConfigured() {
		t.Error("IsConfigured() = false, want true")
	}
}

func TestTestEncryptor_EncryptDecrypt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "simple text", input: []byte("hello world")},
		{name: "empty", input: []byte{}},
		{name: "binary data", input: []byte{0x00, 0xff, 0x01, 0xfe}},
		{name: "snapshot payload", input: bytes.Repeat([]byte(`{"slug":"acme"}`), 1000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := NewTestEncryptor()

			encrypted, err := e.Encrypt(tt.input)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}

			// The header makes even empty input distinguishable.
			if bytes.Equal(encrypted, tt.input) {
				t.Error("encrypted output is identical to plaintext")
			}
			if !bytes.HasPrefix(encrypted, testHeader) {
				t.Error("encrypted output does not start with test header")
			}

			dec, err := e.Unlock("any-passphrase")
			if err != nil {
				t.Fatalf("Unlock() error = %v", err)
			}

			decrypted, err := dec.Decrypt(encrypted)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}

			if !bytes.Equal(decrypted, tt.input) {
				t.Errorf("round-trip failed: got %q, want %q", decrypted, tt.input)
			}
		})
	}
}

func TestTestDecryptionContext_InvalidHeader(t *testing.T) {
	t.Parallel()

	ctx := &TestDecryptionContext{}
	if _, err := ctx.Decrypt([]byte("NOT_VALID_HEADER_data")); err == nil {
		t.Error("Decrypt() with invalid header should return error")
	}
}

func TestTestDecryptionContext_TruncatedInput(t *testing.T) {
	t.Parallel()

	ctx := &TestDecryptionContext{}
	if _, err := ctx.Decrypt([]byte("SR")); err == nil {
		t.Error("Decrypt() with truncated data should return error")
	}
}

func TestTestDecryptionContext_EmptyInput(t *testing.T) {
	t.Parallel()

	ctx := &TestDecryptionContext{}
	if _, err := ctx.Decrypt(nil); err == nil {
		t.Error("Decrypt() with empty input should return error")
	}
}
