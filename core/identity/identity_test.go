package identity

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"

	"medchain/types/ids"
)

func TestHasherIsDeterministicAndSalted(t *testing.T) {
	a := NewHasher("salt-a")
	b := NewHasher("salt-b")

	assert.Equal(t, a.Ref(KindPatient, "P1"), a.Ref(KindPatient, "P1"))
	assert.NotEqual(t, a.Ref(KindPatient, "P1"), b.Ref(KindPatient, "P1"))
	assert.NotEqual(t, a.Ref(KindPatient, "P1"), a.Ref(KindDoctor, "P1"))
	assert.Len(t, a.Ref(KindDoctor, "D1"), 64)
}

func TestRefMatchesDigestOfSaltKindAndID(t *testing.T) {
	want := ids.NewID([]byte("s\x00patient\x00P1")).String()
	assert.Equal(t, want, NewHasher("s").Ref(KindPatient, "P1"))
	assert.True(t, IsRef(want))
}

func TestIsRef(t *testing.T) {
	assert.False(t, IsRef("P1"))
	assert.False(t, IsRef("abcd"))
	assert.False(t, IsRef(ids.Empty.String()))
}

func TestRevealLeavesNonReferencesAlone(t *testing.T) {
	table := NewMemoryTable()
	r := NewResolver(ModeHashed, NewHasher("s"), table)

	// a plaintext value that happens to be stored under its own name is not a reference
	require.NoError(t, table.Remember("P1", Entry{Kind: KindPatient, Plaintext: "someone-else"}))
	assert.Equal(t, "P1", r.Reveal("P1"))

	unknown := NewHasher("other").Ref(KindPatient, "P1")
	assert.Equal(t, unknown, r.Reveal(unknown))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModePlaintext, m)

	m, err = ParseMode("hashed")
	require.NoError(t, err)
	assert.Equal(t, ModeHashed, m)

	_, err = ParseMode("rot13")
	assert.Error(t, err)
}

func TestPlaintextResolverPassesThrough(t *testing.T) {
	table := NewMemoryTable()
	r := NewResolver(ModePlaintext, NewHasher("s"), table)

	ref, err := r.Register(KindDoctor, "D1")
	require.NoError(t, err)
	assert.Equal(t, "D1", ref)
	assert.Equal(t, "D1", r.Reveal("D1"))

	_, err = table.Lookup("D1")
	assert.ErrorIs(t, err, ErrUnknownReference)
}

func TestHashedResolverRoundTrip(t *testing.T) {
	r := NewResolver(ModeHashed, NewHasher("s"), NewMemoryTable())

	ref, err := r.Register(KindPatient, "P1")
	require.NoError(t, err)
	assert.NotEqual(t, "P1", ref)
	assert.Equal(t, ref, r.Ref(KindPatient, "P1"))
	assert.Equal(t, "P1", r.Reveal(ref))
	assert.Equal(t, "unknown", r.Reveal("unknown"))
}

func TestRememberKeepsFirstSighting(t *testing.T) {
	for name, table := range map[string]SideTable{
		"memory":  NewMemoryTable(),
		"leveldb": openLevelTable(t),
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, table.Remember("r1", Entry{Kind: KindDoctor, Plaintext: "first"}))
			require.NoError(t, table.Remember("r1", Entry{Kind: KindDoctor, Plaintext: "second"}))

			e, err := table.Lookup("r1")
			require.NoError(t, err)
			assert.Equal(t, "first", e.Plaintext)

			_, err = table.Lookup("missing")
			assert.ErrorIs(t, err, ErrUnknownReference)
		})
	}
}

func openLevelTable(t *testing.T) *LevelTable {
	db, err := leveldb.OpenFile(filepath.Join(t.TempDir(), "ident"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLevelTable(db)
}
