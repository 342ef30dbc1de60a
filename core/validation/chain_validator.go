// Package validation checks the integrity of a chain without mutating it.
package validation

import (
	"errors"
	"fmt"

	"medchain/core/block"
	"medchain/core/genesis"
	"medchain/core/pow"
)

// ErrIntegrity marks every violation reported by Diagnose.
var ErrIntegrity = errors.New("chain integrity violation")

// Violation describes a single failed check.
type Violation struct {
	Index  uint64 `json:"index"`
	Check  string `json:"check"`
	Detail string `json:"detail"`
}

func (v Violation) Error() string {
	return fmt.Sprintf("block %d: %s: %s", v.Index, v.Check, v.Detail)
}

func (v Violation) Unwrap() error { return ErrIntegrity }

// Check names.
const (
	CheckGenesis   = "genesis"
	CheckIndex     = "index"
	CheckLinkage   = "previous_hash"
	CheckHash      = "hash"
	CheckProof     = "proof_of_work"
	CheckTimestamp = "timestamp"
	CheckPayload   = "payload"
)

// Validator walks a chain against a proof-of-work target.
type Validator struct {
	solver pow.Solver
}

func New(solver pow.Solver) *Validator {
	return &Validator{solver: solver}
}

// NewWithDifficulty is shorthand for New(pow.NewEngine(d)).
func NewWithDifficulty(d int) *Validator {
	return New(pow.NewEngine(d))
}

// Validate reports whether chain is intact. It stops at the first violation.
func (v *Validator) Validate(chain []block.Block) bool {
	ok := true
	v.walk(chain, func(Violation) bool {
		ok = false
		return false
	})
	return ok
}

// Diagnose walks the whole chain and returns every violation found, in
// block order. An intact chain yields nil.
func (v *Validator) Diagnose(chain []block.Block) []Violation {
	var out []Violation
	v.walk(chain, func(viol Violation) bool {
		out = append(out, viol)
		return true
	})
	return out
}

// walk calls report for each violation until it returns false.
func (v *Validator) walk(chain []block.Block, report func(Violation) bool) {
	if len(chain) == 0 {
		report(Violation{Check: CheckGenesis, Detail: "chain is empty"})
		return
	}
	if !genesis.IsGenesis(chain[0]) {
		if !report(Violation{Index: chain[0].Index, Check: CheckGenesis, Detail: "first block is not a genesis block"}) {
			return
		}
	}

	for i := 1; i < len(chain); i++ {
		prev, curr := chain[i-1], chain[i]
		for _, viol := range v.checkPair(prev, curr) {
			if !report(viol) {
				return
			}
		}
	}
}

func (v *Validator) checkPair(prev, curr block.Block) []Violation {
	var out []Violation
	add := func(check, format string, args ...interface{}) {
		out = append(out, Violation{Index: curr.Index, Check: check, Detail: fmt.Sprintf(format, args...)})
	}

	if want := prev.ComputeHash(); curr.PreviousHash != want {
		add(CheckLinkage, "got %s, want %s", curr.PreviousHash, want)
	}
	if !v.solver.Verify(curr.Proof, prev.Proof) {
		add(CheckProof, "proof %d does not meet difficulty %d against %d", curr.Proof, v.solver.Difficulty(), prev.Proof)
	}
	if curr.Index != prev.Index+1 {
		add(CheckIndex, "got %d after %d", curr.Index, prev.Index)
	}
	if got := curr.ComputeHash(); curr.Hash != got {
		add(CheckHash, "stored %s, content hashes to %s", curr.Hash, got)
	}
	if curr.Timestamp.Before(prev.Timestamp) {
		add(CheckTimestamp, "%s precedes %s", curr.Timestamp, prev.Timestamp)
	}
	if curr.Data.Type == block.EventGenesis {
		add(CheckPayload, "genesis event after index 1")
	} else if err := curr.Data.Validate(); err != nil {
		add(CheckPayload, "%v", err)
	}
	return out
}
