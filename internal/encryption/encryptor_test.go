package encryption

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestNewEncryptorRejectsShortKey(t *testing.T) {
	_, err := NewEncryptor([]byte("too short"))
	require.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewEncryptor(testKey())
	require.NoError(t, err)

	for _, plaintext := range []string{"hello", "", "ünïcode 😀", "a longer message with\nnewlines and spaces"} {
		content, iv, err := enc.Encrypt(plaintext)
		require.NoError(t, err)
		require.NotEmpty(t, iv)

		got, err := enc.Decrypt(content, iv)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncryptUsesFreshIVPerCall(t *testing.T) {
	enc, err := NewEncryptor(testKey())
	require.NoError(t, err)

	c1, iv1, err := enc.Encrypt("same plaintext")
	require.NoError(t, err)
	c2, iv2, err := enc.Encrypt("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, iv1, iv2)
	assert.NotEqual(t, c1, c2)
}

func TestDecryptFailsOnTamperedCiphertext(t *testing.T) {
	enc, err := NewEncryptor(testKey())
	require.NoError(t, err)

	content, iv, err := enc.Encrypt("secret")
	require.NoError(t, err)

	_, err = enc.Decrypt("x"+content, iv)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = enc.Decrypt(content, "bogus-iv")
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptFailsAfterKeyChange(t *testing.T) {
	enc1, err := NewEncryptor(testKey())
	require.NoError(t, err)
	enc2, err := NewEncryptor(bytes.Repeat([]byte{0x7}, 32))
	require.NoError(t, err)

	content, iv, err := enc1.Encrypt("secret")
	require.NoError(t, err)

	_, err = enc2.Decrypt(content, iv)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptFromStorageLegacyPassthrough(t *testing.T) {
	enc, err := NewEncryptor(testKey())
	require.NoError(t, err)

	got, err := enc.DecryptFromStorage("plain legacy content", "")
	require.NoError(t, err)
	assert.Equal(t, "plain legacy content", got)
}
