// Package hasher provides service key hashing implementations.
package hasher

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/artpar/imgquota/ports"
)

// Bcrypt uses bcrypt for hashing.
type Bcrypt struct {
	cost int
}

// NewBcrypt creates a bcrypt hasher with the given cost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Hash generates a bcrypt hash from plaintext.
func (h *Bcrypt) Hash(plaintext string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
}

// Compare checks if plaintext matches hash.
func (h *Bcrypt) Compare(hash []byte, plaintext string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(plaintext)) == nil
}

// Cost returns the cost stored in a bcrypt hash, or an error if it is not one.
func Cost(hash string) (int, error) {
	return bcrypt.Cost([]byte(hash))
}

// KeyVerifier checks presented service keys against a fixed set of hashes.
// An empty verifier accepts nothing.
type KeyVerifier struct {
	hasher ports.Hasher
	hashes [][]byte
}

// NewKeyVerifier creates a verifier over the given hashes.
func NewKeyVerifier(h ports.Hasher, hashes ...string) *KeyVerifier {
	v := &KeyVerifier{hasher: h}
	for _, s := range hashes {
		if s != "" {
			v.hashes = append(v.hashes, []byte(s))
		}
	}
	return v
}

// Enabled reports whether any key is configured.
func (v *KeyVerifier) Enabled() bool {
	return v != nil && len(v.hashes) > 0
}

// Verify reports whether key matches one of the configured hashes.
func (v *KeyVerifier) Verify(key string) bool {
	if !v.Enabled() || key == "" {
		return false
	}
	for _, h := range v.hashes {
		if v.hasher.Compare(h, key) {
			return true
		}
	}
	return false
}

// Ensure interface compliance.
var _ ports.Hasher = (*Bcrypt)(nil)

// Fake provides a no-op hasher for testing (NOT FOR PRODUCTION).
type Fake struct{}

// Hash returns the plaintext as bytes (no actual hashing).
func (Fake) Hash(plaintext string) ([]byte, error) {
	return []byte(plaintext), nil
}

// Compare does simple equality check.
func (Fake) Compare(hash []byte, plaintext string) bool {
	return string(hash) == plaintext
}

// Ensure interface compliance.
var _ ports.Hasher = Fake{}
