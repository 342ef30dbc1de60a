// Package scan renders a chain for operators.
package scan

import (
	"fmt"
	"io"
	"time"

	"medchain/core/block"
)

// Summary is the one-line view of a block.
type Summary struct {
	Index        uint64          `json:"index"`
	Timestamp    time.Time       `json:"timestamp"`
	Proof        int64           `json:"proof"`
	Hash         string          `json:"hash"`
	PreviousHash string          `json:"previous_hash"`
	Event        block.EventType `json:"event"`
	Ref          string          `json:"ref,omitempty"`
}

// Summaries returns one Summary per block, in chain order.
func Summaries(chain []block.Block) []Summary {
	out := make([]Summary, 0, len(chain))
	for _, b := range chain {
		s := Summary{
			Index:        b.Index,
			Timestamp:    b.Timestamp,
			Proof:        b.Proof,
			Hash:         b.Hash,
			PreviousHash: b.PreviousHash,
			Event:        b.Data.Type,
		}
		switch {
		case b.Data.Type == block.EventRequestCreated:
			s.Ref = b.Data.DoctorRef + " -> " + b.Data.PatientRef
		case b.Data.IsResolution():
			s.Ref = fmt.Sprintf("request %d", b.Data.RequestBlockIndex)
		}
		out = append(out, s)
	}
	return out
}

// Print writes a table of summaries to w, followed by the chain's Merkle root.
func Print(w io.Writer, chain []block.Block) {
	for _, s := range Summaries(chain) {
		fmt.Fprintf(w, "%-6d %-25s %-18s %-10d %s  %s\n",
			s.Index, s.Timestamp.Format(time.RFC3339), s.Event, s.Proof, short(s.Hash), s.Ref)
	}
	fmt.Fprintf(w, "merkle root: %s\n", block.MerkleRoot(chain))
}

func short(h string) string {
	if len(h) > 16 {
		return h[:16]
	}
	return h
}
