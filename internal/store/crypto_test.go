package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher("secret")
	require.NoError(t, err)

	a, err := c.Seal([]byte("hello"))
	require.NoError(t, err)
	b, err := c.Seal([]byte("hello"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "each seal uses a fresh nonce")

	plain, err := c.Open(a)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(plain))
}

func TestCipherRejectsWrongKeyAndTampering(t *testing.T) {
	c, _ := NewCipher("secret")
	other, _ := NewCipher("other")
	enc, err := c.Seal([]byte(`{"username":"u"}`))
	require.NoError(t, err)

	_, err = other.Open(enc)
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = c.Open("not base64!")
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = c.Open("AAAA")
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestNewCipherRequiresKey(t *testing.T) {
	_, err := NewCipher("")
	assert.Error(t, err)
}

func TestOpenConfigDefaultsTimePerWord(t *testing.T) {
	c, _ := NewCipher("secret")
	enc, err := c.Seal([]byte(`{"username":"u","password":"p"}`))
	require.NoError(t, err)

	cfg, err := c.openConfig(enc)
	require.NoError(t, err)
	assert.Equal(t, UserConfig{Username: "u", Password: "p", TimePerWord: 1}, cfg)
	assert.True(t, cfg.Valid())
}
