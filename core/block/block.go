package block

import (
	"bytes"
	"encoding/json"
	"time"

	"medchain/types/ids"
)

const (
	// GenesisPrevHash is the previous_hash sentinel of the first block.
	GenesisPrevHash = "0"
	// GenesisHash is the placeholder hash stored on the first block.
	GenesisHash = "genesis_hash"
)

// Block is one entry of the ledger. Blocks are immutable once appended.
type Block struct {
	Index        uint64    `json:"index"`         // 1-based position
	Timestamp    time.Time `json:"timestamp"`     // creation time, UTC
	Proof        int64     `json:"proof"`         // accepted puzzle solution
	PreviousHash string    `json:"previous_hash"` // content hash of the preceding block
	Hash         string    `json:"hash"`          // content hash of this block (excluding Hash)
	Data         Event     `json:"data"`
}

// CanonicalBytes encodes every field except Hash as JSON with sorted keys.
// The timestamp is rendered as RFC3339Nano in UTC so a block read back from
// disk produces the same bytes as the one that was written.
func (b Block) CanonicalBytes() ([]byte, error) {
	fields := map[string]interface{}{
		"index":         b.Index,
		"timestamp":     b.Timestamp.UTC().Format(time.RFC3339Nano),
		"proof":         b.Proof,
		"previous_hash": b.PreviousHash,
		"data":          b.Data.fields(),
	}
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return nil, err
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

// ComputeHash returns the SHA-256 hex digest of the canonical form.
func (b Block) ComputeHash() string {
	data, err := b.CanonicalBytes()
	if err != nil {
		// only reachable with unencodable field values, which Block cannot hold
		panic("block: canonical encoding failed: " + err.Error())
	}
	return ids.NewID(data).String()
}

// IsGenesis reports whether b sits at index 1.
func (b Block) IsGenesis() bool {
	return b.Index == 1
}

// Serialize encodes Block into JSON
func (b *Block) Serialize() ([]byte, error) {
	return json.Marshal(b)
}

// Deserialize decodes JSON into Block
func Deserialize(data []byte) (*Block, error) {
	var b Block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
