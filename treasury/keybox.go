package treasury

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// ErrSealOpen signals that a sealed secret key could not be opened, either
// because the seal key is wrong or the ciphertext is corrupt.
var ErrSealOpen = errors.New("treasury: cannot open sealed key")

const nonceSize = 24

// Keybox seals and opens treasury signing keys with a process-wide symmetric
// key so plaintext key material never reaches the database.
type Keybox struct {
	key [32]byte
}

// NewKeybox builds a Keybox from a hex-encoded 32-byte key.
func NewKeybox(hexKey string) (*Keybox, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("treasury: decode seal key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("treasury: seal key must be 32 bytes, got %d", len(raw))
	}

	kb := &Keybox{}
	copy(kb.key[:], raw)
	return kb, nil
}

// Seal encrypts plaintext with a fresh random nonce. The nonce is prepended
// to the returned ciphertext.
func (kb *Keybox) Seal(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("treasury: nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &kb.key), nil
}

// Open decrypts ciphertext produced by Seal.
func (kb *Keybox) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, ErrSealOpen
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &kb.key)
	if !ok {
		return nil, ErrSealOpen
	}
	return plaintext, nil
}
