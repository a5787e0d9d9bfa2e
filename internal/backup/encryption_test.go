package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptionManager_RoundTrip(t *testing.T) {
	em := NewEncryptionManager(&EncryptionConfig{
		Enabled:    true,
		Passphrase: "correct horse battery staple",
		Salt:       "workshop-salt",
	})

	plaintext := []byte(`{"organization_id":"org-1"}`)

	ciphertext, err := em.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)
	assert.Greater(t, len(ciphertext), len(plaintext))

	decrypted, err := em.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptionManager_DisabledPassesThrough(t *testing.T) {
	em := NewEncryptionManager(&EncryptionConfig{})
	plaintext := []byte("plain document")

	ciphertext, err := em.Encrypt(plaintext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, ciphertext)

	decrypted, err := em.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptionManager_WrongPassphraseIsCorruption(t *testing.T) {
	encryptor := NewEncryptionManager(&EncryptionConfig{
		Enabled:    true,
		Passphrase: "original passphrase",
		Salt:       "workshop-salt",
	})
	ciphertext, err := encryptor.Encrypt([]byte("secret"))
	require.NoError(t, err)

	decryptor := NewEncryptionManager(&EncryptionConfig{
		Enabled:    true,
		Passphrase: "different passphrase",
		Salt:       "workshop-salt",
	})

	_, err = decryptor.Decrypt(ciphertext)

	require.Error(t, err)
	var backupErr *BackupError
	require.ErrorAs(t, err, &backupErr)
	assert.Equal(t, BackupErrorTypeCorruption, backupErr.Type)
}

func TestEncryptionManager_TruncatedCiphertext(t *testing.T) {
	em := NewEncryptionManager(&EncryptionConfig{
		Enabled:    true,
		Passphrase: "correct horse battery staple",
		Salt:       "workshop-salt",
	})

	_, err := em.Decrypt([]byte{0x01, 0x02})

	require.Error(t, err)
	var backupErr *BackupError
	require.ErrorAs(t, err, &backupErr)
	assert.Equal(t, BackupErrorTypeCorruption, backupErr.Type)
}

func TestEncryptionConfig_GetEncryptionKey_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passphrase")
	require.NoError(t, os.WriteFile(path, []byte("file passphrase\n"), 0o600))

	config := &EncryptionConfig{
		Enabled:        true,
		PassphraseFile: path,
		Salt:           "workshop-salt",
	}

	key, err := config.GetEncryptionKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)

	// The trailing newline is trimmed before key derivation.
	direct := &EncryptionConfig{Enabled: true, Passphrase: "file passphrase", Salt: "workshop-salt"}
	directKey, err := direct.GetEncryptionKey()
	require.NoError(t, err)
	assert.Equal(t, directKey, key)
}

func TestEncryptionConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  EncryptionConfig
		wantErr bool
	}{
		{"disabled needs nothing", EncryptionConfig{}, false},
		{"enabled with passphrase and salt", EncryptionConfig{Enabled: true, Passphrase: "p", Salt: "s"}, false},
		{"enabled with passphrase file", EncryptionConfig{Enabled: true, PassphraseFile: "/etc/backup/key", Salt: "s"}, false},
		{"enabled without passphrase", EncryptionConfig{Enabled: true, Salt: "s"}, true},
		{"enabled without salt", EncryptionConfig{Enabled: true, Passphrase: "p"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
