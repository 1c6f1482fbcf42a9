package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"paygrid.io/app/internal/shared/apperr"
)

const (
	keyBytes = 32 // AES-256
	ivBytes  = 16
	tagBytes = 16
)

var ErrBadKey = errors.New("vault key must be 64 hex characters (32 bytes)")

// Vault encrypts and decrypts gateway credentials at rest.
// Tokens are "iv:tag:ciphertext" with hex-encoded fields; decryption fails
// closed on any tampering (GCM tag mismatch) or malformed token.
type Vault struct {
	key []byte
}

// New builds a Vault from a hex-encoded 256-bit key. The key is process-wide
// configuration loaded once at startup; it must never be logged.
func New(hexKey string) (*Vault, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil || len(key) != keyBytes {
		return nil, ErrBadKey
	}
	return &Vault{key: key}, nil
}

func (v *Vault) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivBytes)
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivBytes)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	ct := sealed[:len(sealed)-tagBytes]
	tag := sealed[len(sealed)-tagBytes:]

	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(iv),
		hex.EncodeToString(tag),
		hex.EncodeToString(ct)), nil
}

func (v *Vault) Decrypt(token string) (string, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return "", apperr.DecryptionErr(errors.New("malformed credential token"))
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivBytes {
		return "", apperr.DecryptionErr(errors.New("malformed iv"))
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagBytes {
		return "", apperr.DecryptionErr(errors.New("malformed auth tag"))
	}
	ct, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", apperr.DecryptionErr(errors.New("malformed ciphertext"))
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivBytes)
	if err != nil {
		return "", err
	}

	// GCM expects ciphertext||tag
	plain, err := gcm.Open(nil, iv, append(ct, tag...), nil)
	if err != nil {
		// tag mismatch: tampering or key rotation mismatch
		return "", apperr.DecryptionErr(err)
	}
	return string(plain), nil
}
