// Package pow implements the admission puzzle every ledger write must solve.
//
// A proof p is accepted against the previous proof q when the SHA-256 hex
// digest of the decimal string of p*p - q*q starts with Difficulty zeros.
// Candidates are tried in order 1, 2, 3, ... so the accepted proof is the
// smallest one, which makes every solution reproducible by a validator.
package pow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultDifficulty is the number of leading zero hex characters required
// of a deployed chain.
const DefaultDifficulty = 5

// maxDifficulty is the length of a hex-encoded SHA-256 digest.
const maxDifficulty = 64

// ctxCheckInterval bounds how many candidates are tried between context checks.
const ctxCheckInterval = 1024

// ErrPuzzleNotFound is returned when the attempt budget runs out before a
// valid proof is found.
var ErrPuzzleNotFound = errors.New("pow: puzzle not found within budget")

// Solver is the strategy the ledger uses to obtain and check proofs.
type Solver interface {
	Solve(ctx context.Context, previousProof int64) (Result, error)
	Verify(proof, previousProof int64) bool
	Difficulty() int
}

// Result describes a successful search.
type Result struct {
	Proof    int64
	Attempts uint64
	Elapsed  time.Duration
}

// Engine is the sequential Solver.
type Engine struct {
	difficulty  int
	prefix      string
	maxAttempts uint64
	log         zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxAttempts caps the number of candidates tried per Solve. Zero means
// unbounded; the context is then the only way to stop a search.
func WithMaxAttempts(n uint64) Option {
	return func(e *Engine) { e.maxAttempts = n }
}

// WithLogger attaches a logger for search results.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine returns an Engine for the given difficulty, clamped to [0, 64].
func NewEngine(difficulty int, opts ...Option) *Engine {
	if difficulty < 0 {
		difficulty = 0
	}
	if difficulty > maxDifficulty {
		difficulty = maxDifficulty
	}
	e := &Engine{
		difficulty: difficulty,
		prefix:     strings.Repeat("0", difficulty),
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Difficulty returns the number of required leading zeros.
func (e *Engine) Difficulty() int {
	return e.difficulty
}

// Digest returns the hex digest checked against the difficulty target.
func Digest(proof, previousProof int64) string {
	p := big.NewInt(proof)
	q := big.NewInt(previousProof)
	diff := new(big.Int).Sub(p.Mul(p, p), q.Mul(q, q))
	sum := sha256.Sum256([]byte(diff.String()))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether proof solves the puzzle posed by previousProof.
func (e *Engine) Verify(proof, previousProof int64) bool {
	return strings.HasPrefix(Digest(proof, previousProof), e.prefix)
}

// Solve searches proofs 1, 2, 3, ... and returns the first valid one. It
// stops with ErrPuzzleNotFound when the attempt budget is spent, or with the
// context's error when ctx is done.
func (e *Engine) Solve(ctx context.Context, previousProof int64) (Result, error) {
	start := time.Now()
	var attempts uint64
	for proof := int64(1); ; proof++ {
		if e.maxAttempts > 0 && attempts >= e.maxAttempts {
			e.log.Warn().
				Int64("previous_proof", previousProof).
				Uint64("attempts", attempts).
				Int("difficulty", e.difficulty).
				Msg("puzzle budget exhausted")
			return Result{Attempts: attempts, Elapsed: time.Since(start)},
				fmt.Errorf("%w: %d attempts at difficulty %d", ErrPuzzleNotFound, attempts, e.difficulty)
		}
		if attempts%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Result{Attempts: attempts, Elapsed: time.Since(start)}, err
			}
		}
		attempts++
		if e.Verify(proof, previousProof) {
			res := Result{Proof: proof, Attempts: attempts, Elapsed: time.Since(start)}
			e.log.Debug().
				Int64("proof", proof).
				Uint64("attempts", attempts).
				Dur("elapsed", res.Elapsed).
				Msg("puzzle solved")
			return res, nil
		}
	}
}
