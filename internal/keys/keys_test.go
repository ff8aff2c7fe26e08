package keys

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	assert.Len(t, kp.PublicKey(), CompressedPubKeyLen)
	assert.Len(t, kp.PrivateKeyHex(), 64)
}

func TestFromPrivateKeyHex(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	restored, err := FromPrivateKeyHex(kp.PrivateKeyHex())
	require.NoError(t, err)
	assert.True(t, kp.PublicKey().Equal(restored.PublicKey()))

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"short", "abcd"},
		{"not hex", "zz" + kp.PrivateKeyHex()[2:]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromPrivateKeyHex(tt.input)
			assert.ErrorIs(t, err, ErrInvalidPrivateKey)
		})
	}
}

func TestSignVerify(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)
	other, err := Generate()
	require.NoError(t, err)

	msg := []byte("offer for packet")
	sig, err := kp.Sign(msg)
	require.NoError(t, err)

	assert.True(t, kp.PublicKey().Verify(msg, sig))
	assert.False(t, kp.PublicKey().Verify([]byte("tampered"), sig))
	assert.False(t, other.PublicKey().Verify(msg, sig))
	assert.False(t, kp.PublicKey().Verify(msg, []byte{0x30, 0x01}))
}

func TestSaveLoad(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "keypair")
	require.NoError(t, kp.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, kp.PrivateKeyHex(), loaded.PrivateKeyHex())

	_, err = Load(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestParsePublicKeyHex(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	parsed, err := ParsePublicKeyHex(kp.PublicKey().String())
	require.NoError(t, err)
	assert.True(t, parsed.Equal(kp.PublicKey()))

	_, err = ParsePublicKeyHex("02abcd")
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
	_, err = ParsePublicKeyHex("not-hex")
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}
