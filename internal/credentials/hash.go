// Package credentials — хеширование паролей и операции над учётными данными пользователей.
package credentials

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	Iterations        = 100_000
	MinPasswordLength = 6

	saltBytes     = 16
	keyLen        = sha256.Size
	generateBytes = 8
)

// Hash — PBKDF2-HMAC-SHA256 со свежей солью, формат "salt:hexdigest".
// Солью для KDF служат байты hex-строки соли, как она записана в хеше.
func Hash(password string) (string, error) {
	const op = "credentials.Hash"
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	salt := hex.EncodeToString(raw)
	return salt + ":" + digest(password, salt), nil
}

// Verify никогда не паникует: на испорченный хеш возвращает false.
func Verify(password, stored string) bool {
	salt, want, ok := strings.Cut(stored, ":")
	if !ok || salt == "" || len(want) != hex.EncodedLen(keyLen) {
		return false
	}
	if _, err := hex.DecodeString(want); err != nil {
		return false
	}
	got := digest(password, salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(want))) == 1
}

func digest(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), Iterations, keyLen, sha256.New)
	return hex.EncodeToString(key)
}

// GeneratePassword — 8 случайных байт в base64url без паддинга (11 символов).
func GeneratePassword() (string, error) {
	raw := make([]byte, generateBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("credentials.GeneratePassword: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func validPassword(p string) bool { return len([]rune(p)) >= MinPasswordLength }
