// Package cryptox seals local cache records. Keys are derived with Argon2id
// from a device secret and a per-install salt; records are JSON sealed with
// AES-GCM.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"

	"golang.org/x/crypto/argon2"
)

const KeySize = 32

var ErrEmptySecret = errors.New("empty secret")

// DeriveKey stretches secret with Argon2id into a KeySize-byte AES key.
func DeriveKey(secret []byte, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, KeySize)
}

// Sealer seals and opens values with a fixed key.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a key from secret and salt and prepares AES-GCM.
func NewSealer(secret, salt []byte) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	block, err := aes.NewCipher(DeriveKey(secret, salt))
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Seal marshals v to JSON and encrypts it. A fresh random nonce is returned
// alongside the ciphertext.
func (s *Sealer) Seal(v any) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	return s.aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Open decrypts ciphertext and unmarshals the JSON into v.
func (s *Sealer) Open(ciphertext, nonce []byte, v any) error {
	if len(nonce) != s.aead.NonceSize() {
		return errors.New("invalid nonce size")
	}
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, v)
}

// SealBlob is Seal with the nonce prepended to the ciphertext, for storage
// in a single column.
func (s *Sealer) SealBlob(v any) ([]byte, error) {
	ciphertext, nonce, err := s.Seal(v)
	if err != nil {
		return nil, err
	}
	return append(nonce, ciphertext...), nil
}

// OpenBlob reverses SealBlob.
func (s *Sealer) OpenBlob(blob []byte, v any) error {
	n := s.aead.NonceSize()
	if len(blob) < n {
		return errors.New("sealed blob too short")
	}
	return s.Open(blob[n:], blob[:n], v)
}
