package state

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medchain/core/block"
	"medchain/core/genesis"
)

type chainSource struct {
	chain []block.Block
}

func (s *chainSource) Snapshot() []block.Block {
	out := make([]block.Block, len(s.chain))
	copy(out, s.chain)
	return out
}

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// push appends ev at the next index, one minute after the previous block.
func (s *chainSource) push(ev block.Event) uint64 {
	if len(s.chain) == 0 {
		s.chain = append(s.chain, genesis.NewBlock(t0))
	}
	prev := s.chain[len(s.chain)-1]
	b := block.Block{
		Index:        prev.Index + 1,
		Timestamp:    prev.Timestamp.Add(time.Minute),
		PreviousHash: prev.ComputeHash(),
		Data:         ev,
	}
	b.Hash = b.ComputeHash()
	s.chain = append(s.chain, b)
	return b.Index
}

func newFixture() (*chainSource, *Projector) {
	src := &chainSource{chain: []block.Block{genesis.NewBlock(t0)}}
	return src, NewProjector(src, zerolog.Nop())
}

func TestFirstResolutionWins(t *testing.T) {
	src, p := newFixture()
	idx := src.push(block.RequestCreated("D1", "P1", "")) // 2
	require.Equal(t, uint64(2), idx)
	req := src.push(block.RequestCreated("D1", "P1", "")) // 3
	src.push(block.RequestCreated("D2", "P2", ""))        // 4
	src.push(block.RequestRejected(req))                  // 5
	src.push(block.RequestCreated("D3", "P3", ""))        // 6
	src.push(block.RequestApproved(req))                  // 7

	status, err := p.StatusOf(3)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, status)
	assert.False(t, p.IsAuthorized("D1", "P1"))
}

func TestStatusOfUnknownIndex(t *testing.T) {
	src, p := newFixture()
	src.push(block.RequestCreated("D1", "P1", ""))
	src.push(block.RequestApproved(2))

	for _, idx := range []uint64{1, 3, 99} {
		_, err := p.StatusOf(idx)
		assert.ErrorIs(t, err, ErrRequestNotFound, "index %d", idx)
	}
}

func TestStatusDefaultsToPending(t *testing.T) {
	src, p := newFixture()
	idx := src.push(block.RequestCreated("D1", "P1", ""))

	status, err := p.StatusOf(idx)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status)
}

func TestAuthorizationLifecycle(t *testing.T) {
	src, p := newFixture()
	first := src.push(block.RequestCreated("D1", "P1", "medical_review"))
	assert.False(t, p.IsAuthorized("D1", "P1"))

	src.push(block.RequestApproved(first))
	assert.True(t, p.IsAuthorized("D1", "P1"))

	second := src.push(block.RequestCreated("D1", "P1", "follow_up"))
	src.push(block.RequestRejected(second))
	assert.True(t, p.IsAuthorized("D1", "P1"), "unrelated rejection must not revoke")

	assert.False(t, p.IsAuthorized("D2", "P1"))
	assert.False(t, p.IsAuthorized("D1", "P2"))
}

func TestPendingForKeepsChainOrder(t *testing.T) {
	src, p := newFixture()
	a := src.push(block.RequestCreated("D1", "P1", "a"))
	b := src.push(block.RequestCreated("D2", "P1", "b"))
	src.push(block.RequestCreated("D3", "P2", "c"))
	c := src.push(block.RequestCreated("D3", "P1", "d"))
	src.push(block.RequestApproved(b))

	pending := p.PendingFor("P1")
	require.Len(t, pending, 2)
	assert.Equal(t, a, pending[0].BlockIndex)
	assert.Equal(t, c, pending[1].BlockIndex)
	for _, v := range pending {
		assert.Equal(t, StatusPending, v.Status)
	}
	assert.Empty(t, p.PendingFor("P9"))
}

func TestHistoryForAnnotatesStatus(t *testing.T) {
	src, p := newFixture()
	a := src.push(block.RequestCreated("D1", "P1", ""))
	b := src.push(block.RequestCreated("D1", "P2", ""))
	c := src.push(block.RequestCreated("D1", "P3", ""))
	src.push(block.RequestCreated("D2", "P1", ""))
	src.push(block.RequestApproved(a))
	src.push(block.RequestRejected(b))

	history := p.HistoryFor("D1")
	require.Len(t, history, 3)
	assert.Equal(t, []Status{StatusApproved, StatusRejected, StatusPending},
		[]Status{history[0].Status, history[1].Status, history[2].Status})
	assert.Equal(t, c, history[2].BlockIndex)
	assert.Equal(t, block.DefaultPurpose, history[0].Purpose)
}

func TestAuditTrailIsNewestFirst(t *testing.T) {
	src, p := newFixture()
	req := src.push(block.RequestCreated("D1", "P1", ""))
	src.push(block.RequestCreated("D2", "P2", ""))
	appr := src.push(block.RequestApproved(req))

	trail := p.AuditTrail("P1")
	require.Len(t, trail.Entries, 2)
	assert.Equal(t, block.EventRequestApproved, trail.Entries[0].Event)
	assert.Equal(t, appr, trail.Entries[0].BlockIndex)
	assert.Equal(t, req, trail.Entries[0].RequestBlockIndex)
	assert.Equal(t, "D1", trail.Entries[0].DoctorRef)
	assert.Equal(t, block.EventRequestCreated, trail.Entries[1].Event)
	assert.True(t, trail.Entries[0].Timestamp.After(trail.Entries[1].Timestamp))
	assert.Zero(t, trail.Orphans)
}

func TestAuditTrailReportsOrphans(t *testing.T) {
	var buf bytes.Buffer
	src := &chainSource{chain: []block.Block{genesis.NewBlock(t0)}}
	p := NewProjector(src, zerolog.New(&buf))

	src.push(block.RequestCreated("D1", "P1", ""))
	src.push(block.RequestApproved(1))
	src.push(block.RequestRejected(42))

	trail := p.AuditTrail("P1")
	assert.Len(t, trail.Entries, 1)
	assert.Equal(t, 2, trail.Orphans)
	assert.Contains(t, buf.String(), "reference no request")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))

	other := p.AuditTrail("P9")
	assert.Empty(t, other.Entries)
	assert.Equal(t, trail.Orphans, other.Orphans)
}

func TestEmptyResultsAreNotNil(t *testing.T) {
	_, p := newFixture()
	assert.NotNil(t, p.PendingFor("P1"))
	assert.NotNil(t, p.HistoryFor("D1"))
	assert.NotNil(t, p.AuditTrail("P1").Entries)
}
