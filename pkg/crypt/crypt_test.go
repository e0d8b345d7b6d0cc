package crypt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/platter/pkg/crypt"
)

func TestSealOpen(t *testing.T) {
	s, err := crypt.NewSealer("hunter2")
	require.NoError(t, err)

	enc, err := s.SealJSON(map[string]string{"token": "abc"})
	require.NoError(t, err)
	assert.NotContains(t, enc, "abc")

	var out map[string]string
	require.NoError(t, s.OpenJSON(enc, &out))
	assert.Equal(t, "abc", out["token"])
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	a, _ := crypt.NewSealer("one")
	b, _ := crypt.NewSealer("two")

	enc, err := a.Seal([]byte("payload"))
	require.NoError(t, err)

	_, err = b.Open(enc)
	assert.ErrorIs(t, err, crypt.ErrDecrypt)

	_, err = a.Open("!!not base64!!")
	assert.ErrorIs(t, err, crypt.ErrDecrypt)
}

func TestEmptySecretRejected(t *testing.T) {
	_, err := crypt.NewSealer("")
	assert.Error(t, err)
}
