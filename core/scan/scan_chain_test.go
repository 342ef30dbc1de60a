package scan

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medchain/core/block"
	"medchain/core/genesis"
)

func TestSummaries(t *testing.T) {
	g := genesis.NewBlock(time.Now())
	req := block.Block{Index: 2, Timestamp: g.Timestamp, Data: block.RequestCreated("D1", "P1", "")}
	req.Hash = req.ComputeHash()
	dec := block.Block{Index: 3, Timestamp: g.Timestamp, Data: block.RequestApproved(2)}

	sums := Summaries([]block.Block{g, req, dec})
	require.Len(t, sums, 3)
	assert.Equal(t, block.EventGenesis, sums[0].Event)
	assert.Equal(t, "D1 -> P1", sums[1].Ref)
	assert.Equal(t, "request 2", sums[2].Ref)

	var buf bytes.Buffer
	Print(&buf, []block.Block{g, req})
	assert.Contains(t, buf.String(), "REQUEST_CREATED")
	assert.Contains(t, buf.String(), req.Hash[:16])
	assert.Contains(t, buf.String(), block.MerkleRoot([]block.Block{g, req}))
}
