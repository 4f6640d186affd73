package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}

	enc, err := NewEncryptor(key, 1)
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
	}{
		{"empty", ""},
		{"short", "hello"},
		{"galachain_key", "eth-priv-0x1234567890abcdef"},
		{"jupiter_key", "5sN2hP3kfQvLmXwRyTzAbCdEfGhIjKlMnOpQrStUvWxYz"},
		{"unicode", "中文測試 🔐"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := enc.Encrypt(tt.plaintext)
			require.NoError(t, err)
			assert.True(t, hasVersionPrefix(ciphertext), "ciphertext missing version prefix: %s", ciphertext)

			decrypted, err := enc.Decrypt(ciphertext)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, decrypted)
		})
	}
}

func TestEncryptDifferentCiphertexts(t *testing.T) {
	key := make([]byte, KeySize)
	enc, err := NewEncryptor(key, 1)
	require.NoError(t, err)

	plaintext := "same-signing-key"
	c1, err := enc.Encrypt(plaintext)
	require.NoError(t, err)
	c2, err := enc.Encrypt(plaintext)
	require.NoError(t, err)

	assert.NotEqual(t, c1, c2, "random nonce should make repeated encryptions of the same key differ")
}

func TestInvalidKey(t *testing.T) {
	_, err := NewEncryptor([]byte("short"), 1)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestDecryptInvalidCiphertext(t *testing.T) {
	key := make([]byte, KeySize)
	enc, err := NewEncryptor(key, 1)
	require.NoError(t, err)

	invalids := []string{
		"",
		"not-encrypted",
		"ENC[v1]:",           // empty data
		"ENC[v1]:!!!invalid", // invalid base64
	}

	for _, invalid := range invalids {
		_, err := enc.Decrypt(invalid)
		assert.Error(t, err, "expected error for invalid ciphertext: %s", invalid)
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		ciphertext string
		expected   int
	}{
		{"ENC[v1]:data", 1},
		{"ENC[v2]:data", 2},
		{"ENC[v10]:data", 10},
		{"invalid", 0},
		{"ENC[vX]:data", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseVersion(tt.ciphertext))
	}
}

func hasVersionPrefix(s string) bool {
	return len(s) > 8 && s[:5] == "ENC[v"
}
