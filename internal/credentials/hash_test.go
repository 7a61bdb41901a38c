package credentials

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{name: "regular password", password: "password123"},
		{name: "special chars", password: "p@ssw0rd!:#$%"},
		{name: "cyrillic", password: "пароль-водителя"},
		{name: "empty", password: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := Hash(tt.password)
			require.NoError(t, err)
			assert.True(t, Verify(tt.password, h))
			assert.False(t, Verify(tt.password+"x", h))
		})
	}
}

func TestHashFormat(t *testing.T) {
	h, err := Hash("secret1")
	require.NoError(t, err)

	salt, sum, ok := strings.Cut(h, ":")
	require.True(t, ok)
	assert.Len(t, salt, 32)
	assert.Len(t, sum, 64)

	// соль участвует в KDF как есть, hex-строкой
	key := pbkdf2.Key([]byte("secret1"), []byte(salt), Iterations, sha256.Size, sha256.New)
	assert.Equal(t, hex.EncodeToString(key), sum)
}

func TestHashUsesFreshSalt(t *testing.T) {
	h1, err := Hash("same")
	require.NoError(t, err)
	h2, err := Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestVerifyMalformed(t *testing.T) {
	for _, stored := range []string{
		"",
		"no-colon-here",
		":" + strings.Repeat("a", 64),
		"abcd:",
		"abcd:zz" + strings.Repeat("0", 62),
		"abcd:" + strings.Repeat("0", 10),
	} {
		assert.False(t, Verify("anything", stored), "stored=%q", stored)
	}
}

func TestGeneratePassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		p, err := GeneratePassword()
		require.NoError(t, err)
		assert.Len(t, p, 11)
		assert.True(t, validPassword(p))
		assert.NotContains(t, p, "+")
		assert.NotContains(t, p, "/")
		assert.NotContains(t, p, "=")
		seen[p] = true
	}
	assert.Len(t, seen, 50)
}

func TestValidPassword(t *testing.T) {
	assert.False(t, validPassword("12345"))
	assert.True(t, validPassword("123456"))
	assert.True(t, validPassword("пароль"))
}
