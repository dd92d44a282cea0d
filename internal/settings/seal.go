package settings

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	sealedPrefix = "sealed:"
	saltSize     = 16
	nonceSize    = 24
	keySize      = 32
)

// Sealer encrypts the stored password with a key derived from a passphrase
type Sealer struct {
	passphrase []byte
}

// NewSealer returns nil for an empty passphrase
func NewSealer(passphrase string) *Sealer {
	if passphrase == "" {
		return nil
	}
	return &Sealer{passphrase: []byte(passphrase)}
}

// IsSealed reports whether v was produced by Seal
func IsSealed(v string) bool {
	return strings.HasPrefix(v, sealedPrefix)
}

func (s *Sealer) key(salt []byte) (*[keySize]byte, error) {
	derived, err := scrypt.Key(s.passphrase, salt, 1<<15, 8, 1, keySize)
	if err != nil {
		return nil, err
	}
	var key [keySize]byte
	copy(key[:], derived)
	return &key, nil
}

// Seal encrypts plain. Output layout: prefix + base64(salt | nonce | box).
func (s *Sealer) Seal(plain string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}
	key, err := s.key(salt)
	if err != nil {
		return "", err
	}

	out := append(salt, nonce[:]...)
	out = secretbox.Seal(out, []byte(plain), &nonce, key)
	return sealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal
func (s *Sealer) Open(sealed string) (string, error) {
	if !IsSealed(sealed) {
		return "", fmt.Errorf("value is not sealed")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("malformed sealed value: %w", err)
	}
	if len(raw) < saltSize+nonceSize+secretbox.Overhead {
		return "", fmt.Errorf("sealed value too short")
	}

	salt := raw[:saltSize]
	var nonce [nonceSize]byte
	copy(nonce[:], raw[saltSize:saltSize+nonceSize])

	key, err := s.key(salt)
	if err != nil {
		return "", err
	}
	plain, ok := secretbox.Open(nil, raw[saltSize+nonceSize:], &nonce, key)
	if !ok {
		return "", fmt.Errorf("wrong passphrase or corrupted value")
	}
	return string(plain), nil
}
