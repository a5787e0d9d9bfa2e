package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const encryptionKeyIterations = 100000

// EncryptionConfig controls optional encryption of uploaded snapshot documents.
type EncryptionConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Passphrase     string `yaml:"passphrase,omitempty"`
	PassphraseFile string `yaml:"passphrase_file,omitempty"`
	Salt           string `yaml:"salt,omitempty"`
}

// Validate validates the EncryptionConfig struct
func (c *EncryptionConfig) Validate() error {
	var errs ValidationErrors

	if c.Enabled {
		if c.Passphrase == "" && c.PassphraseFile == "" {
			errs.Add("passphrase", "a passphrase or passphrase file is required when encryption is enabled", nil)
		}
		if c.Salt == "" {
			errs.Add("salt", "a key derivation salt is required when encryption is enabled", nil)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// GetEncryptionKey derives the AES-256 key from the configured passphrase.
func (c *EncryptionConfig) GetEncryptionKey() ([]byte, error) {
	passphrase := c.Passphrase

	if passphrase == "" && c.PassphraseFile != "" {
		data, err := os.ReadFile(c.PassphraseFile)
		if err != nil {
			return nil, NewEncryptionError("failed to read passphrase file", err)
		}
		passphrase = strings.TrimSpace(string(data))
	}

	if passphrase == "" {
		return nil, NewEncryptionError("encryption passphrase is empty", nil)
	}

	key := pbkdf2.Key([]byte(passphrase), []byte(c.Salt), encryptionKeyIterations, 32, sha256.New)
	return key, nil
}

// EncryptionManager encrypts and decrypts snapshot documents with AES-256-GCM.
type EncryptionManager struct {
	config *EncryptionConfig
}

// NewEncryptionManager creates a new encryption manager
func NewEncryptionManager(config *EncryptionConfig) *EncryptionManager {
	return &EncryptionManager{
		config: config,
	}
}

// Enabled reports whether encryption is active.
func (em *EncryptionManager) Enabled() bool {
	return em.config != nil && em.config.Enabled
}

// Encrypt encrypts data using AES-256-GCM. A disabled manager passes data through.
func (em *EncryptionManager) Encrypt(data []byte) ([]byte, error) {
	if !em.Enabled() {
		return data, nil
	}

	gcm, err := em.cipher()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, NewEncryptionError("failed to generate nonce", err)
	}

	return gcm.Seal(nonce, nonce, data, nil), nil
}

// Decrypt decrypts data using AES-256-GCM. A disabled manager passes data through.
func (em *EncryptionManager) Decrypt(data []byte) ([]byte, error) {
	if !em.Enabled() {
		return data, nil
	}

	gcm, err := em.cipher()
	if err != nil {
		return nil, err
	}

	if len(data) < gcm.NonceSize() {
		return nil, NewCorruptionError("encrypted snapshot is shorter than the nonce", nil)
	}

	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, NewCorruptionError("failed to decrypt snapshot document", err)
	}

	return plaintext, nil
}

func (em *EncryptionManager) cipher() (cipher.AEAD, error) {
	key, err := em.config.GetEncryptionKey()
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, NewEncryptionError("failed to create AES cipher", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, NewEncryptionError("failed to create GCM cipher", err)
	}

	return gcm, nil
}
