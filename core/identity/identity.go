// Package identity turns real-world identifiers into salted one-way
// references before they are written to the chain. The plaintext is kept in
// an off-chain side table.
package identity

import (
	"errors"
	"time"

	"medchain/types/ids"
)

// Kind distinguishes doctor and patient identifiers so that equal strings
// of different roles never share a reference.
type Kind string

const (
	KindDoctor  Kind = "doctor"
	KindPatient Kind = "patient"
)

// Mode selects how identifiers enter payloads.
type Mode string

const (
	ModePlaintext Mode = "plaintext"
	ModeHashed    Mode = "hashed"
)

// ParseMode accepts "plaintext", "hashed" or the empty string (plaintext).
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModePlaintext:
		return ModePlaintext, nil
	case ModeHashed:
		return ModeHashed, nil
	default:
		return "", errors.New("identity: unknown identifier mode " + s)
	}
}

var ErrUnknownReference = errors.New("identity: unknown reference")

// Entry is the side-table row for one reference.
type Entry struct {
	Kind      Kind      `json:"kind"`
	Plaintext string    `json:"plaintext"`
	FirstSeen time.Time `json:"firstSeen"`
}

// SideTable maps references back to the identifiers they were derived from.
type SideTable interface {
	// Remember stores e under ref unless ref is already known.
	Remember(ref string, e Entry) error
	Lookup(ref string) (Entry, error)
}

// Hasher derives references with SHA-256 over salt, kind and identifier.
type Hasher struct {
	salt []byte
}

func NewHasher(salt string) *Hasher {
	return &Hasher{salt: []byte(salt)}
}

// Ref returns the hex reference for id.
func (h *Hasher) Ref(kind Kind, id string) string {
	buf := make([]byte, 0, len(h.salt)+len(kind)+len(id)+2)
	buf = append(buf, h.salt...)
	buf = append(buf, 0)
	buf = append(buf, string(kind)...)
	buf = append(buf, 0)
	buf = append(buf, id...)
	return ids.NewID(buf).String()
}

// Resolver applies a Mode: in plaintext mode identifiers pass through, in
// hashed mode they are replaced by references and recorded in the table.
type Resolver struct {
	mode   Mode
	hasher *Hasher
	table  SideTable
	now    func() time.Time
}

func NewResolver(mode Mode, hasher *Hasher, table SideTable) *Resolver {
	return &Resolver{mode: mode, hasher: hasher, table: table, now: time.Now}
}

// Mode returns the active mode.
func (r *Resolver) Mode() Mode {
	return r.mode
}

// Ref returns the on-chain form of id without recording it. Use it on the
// query path.
func (r *Resolver) Ref(kind Kind, id string) string {
	if r.mode != ModeHashed {
		return id
	}
	return r.hasher.Ref(kind, id)
}

// Register returns the on-chain form of id and records it in the side table.
// Use it on the write path.
func (r *Resolver) Register(kind Kind, id string) (string, error) {
	ref := r.Ref(kind, id)
	if r.mode != ModeHashed {
		return ref, nil
	}
	if err := r.table.Remember(ref, Entry{Kind: kind, Plaintext: id, FirstSeen: r.now().UTC()}); err != nil {
		return "", err
	}
	return ref, nil
}

// IsRef reports whether s has the shape of a reference.
func IsRef(s string) bool {
	id, err := ids.FromString(s)
	return err == nil && !id.IsEmpty()
}

// Reveal maps an on-chain reference back to its identifier. Unknown
// references and values that are not references are returned unchanged.
func (r *Resolver) Reveal(ref string) string {
	if r.mode != ModeHashed || !IsRef(ref) {
		return ref
	}
	e, err := r.table.Lookup(ref)
	if err != nil {
		return ref
	}
	return e.Plaintext
}
