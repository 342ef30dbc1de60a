package block

import (
	"crypto/sha256"
	"encoding/hex"
)

// MerkleRoot folds the content hashes of chain into a single fingerprint.
// Two snapshots with the same root hold the same blocks. An odd node at any
// level is paired with itself. An empty chain has an empty root.
func MerkleRoot(chain []Block) string {
	if len(chain) == 0 {
		return ""
	}
	level := make([][]byte, len(chain))
	for i, b := range chain {
		sum := sha256.Sum256([]byte(b.ComputeHash()))
		level[i] = sum[:]
	}
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			right := level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}
			h := sha256.New()
			h.Write(level[i])
			h.Write(right)
			next = append(next, h.Sum(nil))
		}
		level = next
	}
	return hex.EncodeToString(level[0])
}
