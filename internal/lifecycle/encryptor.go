package lifecycle

// Encryptor protects deletion snapshot payloads at rest. Snapshots
// contain a full tenant record (resource handles, URLs) and may sit in
// the database for the whole recovery window.
type Encryptor interface {
	// Setup generates and stores the key material.
	Setup(passphrase string) error

	// Encrypt returns the ciphertext of the payload.
	Encrypt(plain []byte) ([]byte, error)

	// Unlock opens the private key with the passphrase for decryption.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether key material exists.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked identity for one recovery.
type DecryptionContext interface {
	Decrypt(cipher []byte) ([]byte, error)
}
