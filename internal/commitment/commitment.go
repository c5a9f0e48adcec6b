// Package commitment derives the holder commitment hash that binds a
// certificate to its subject without putting identity fields on the ledger.
package commitment

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// SaltSize is the byte length of generated salts. 256 bits keeps
// (subjectID, subjectName) pairs unguessable even when the subject id is a
// low-entropy value such as a sequential student number.
const SaltSize = 32

// Hash is a Keccak-256 commitment digest.
type Hash [32]byte

// ZeroHash is the all-zero digest, used as the default in negative
// verification results.
var ZeroHash Hash

// Commit computes the commitment hash over the subject id, subject name, and
// salt. Each field is length-prefixed before hashing so field boundaries are
// unambiguous ("123"+"4" never collides with "12"+"34").
func Commit(subjectID, subjectName, salt []byte) Hash {
	h := sha3.NewLegacyKeccak256()
	for _, field := range [][]byte{subjectID, subjectName, salt} {
		var prefix [8]byte
		binary.BigEndian.PutUint64(prefix[:], uint64(len(field)))
		h.Write(prefix[:])
		h.Write(field)
	}
	var out Hash
	h.Sum(out[:0])
	return out
}

// NewSalt returns a fresh cryptographically random salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether the hash is the zero digest.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// ParseHash decodes a hex-encoded commitment hash.
func ParseHash(s string) (Hash, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ZeroHash, fmt.Errorf("parse commitment hash: %w", err)
	}
	if len(raw) != len(Hash{}) {
		return ZeroHash, fmt.Errorf("parse commitment hash: want %d bytes, got %d", len(Hash{}), len(raw))
	}
	var out Hash
	copy(out[:], raw)
	return out, nil
}

// MarshalText implements encoding.TextMarshaler so hashes serialize as hex in
// JSON payloads.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
