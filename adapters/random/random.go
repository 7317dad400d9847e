// Package random generates service keys.
package random

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
)

// KeyPrefix marks generated service keys.
const KeyPrefix = "iqk_"

// keyBytes is the entropy of a generated service key.
const keyBytes = 24

// Source produces random bytes.
type Source interface {
	Bytes(n int) ([]byte, error)
}

// Real reads from crypto/rand.
type Real struct{}

// Bytes returns n cryptographically secure random bytes.
func (Real) Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// ServiceKey returns a new service key: KeyPrefix followed by hex entropy.
func ServiceKey(src Source) (string, error) {
	b, err := src.Bytes(keyBytes)
	if err != nil {
		return "", err
	}
	return KeyPrefix + hex.EncodeToString(b), nil
}

// Fake returns deterministic bytes (for testing).
type Fake struct {
	mu   sync.Mutex
	next byte
}

// Bytes returns n bytes counting up from the last call.
func (f *Fake) Bytes(n int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := make([]byte, n)
	for i := range b {
		b[i] = f.next
		f.next++
	}
	return b, nil
}
