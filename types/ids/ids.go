package ids

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ID is a 32-byte SHA-256 digest.
type ID [32]byte

// Empty is the zero-value ID (all zeros)
var Empty ID

// NewID generates a new ID by hashing input bytes
func NewID(data []byte) ID {
	return ID(sha256.Sum256(data))
}

// FromString parses a 64-char hex string into an ID
func FromString(s string) (ID, error) {
	var id ID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("ids: expected %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

// String converts an ID back to a hex string
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// IsEmpty reports whether id is the zero ID.
func (id ID) IsEmpty() bool {
	return id == Empty
}
