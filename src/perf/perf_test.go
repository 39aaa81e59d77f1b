package perf

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlocks(t *testing.T) {
	rp := MakeNewRunPerf("fetch")
	outer := rp.StartBlock("SQL", "prepare")
	inner := rp.StartBlock("SQL", "execute")
	outer.End()

	assert.False(t, rp.Blocks[0].End.IsZero())
	assert.True(t, rp.Blocks[1].End.IsZero())

	inner.End()
	rp.Checkpoint("CLI", "printed")
	rp.EndRun()

	assert.Len(t, rp.Blocks, 3)
	assert.False(t, rp.End.IsZero())
	for _, b := range rp.Blocks {
		assert.True(t, b.Duration() >= 0)
	}

	var buf bytes.Buffer
	rp.WriteSummary(&buf)
	assert.Contains(t, buf.String(), "[SQL] prepare")
	assert.Contains(t, buf.String(), "[CLI] printed")
}

func TestEndRunClosesOpenBlocks(t *testing.T) {
	rp := MakeNewRunPerf("run")
	rp.StartBlock("SQL", "a")
	rp.StartBlock("SQL", "b")
	rp.EndRun()
	for _, b := range rp.Blocks {
		assert.False(t, b.End.IsZero())
	}
	assert.False(t, rp.EndBlock())
}

func TestNilPerf(t *testing.T) {
	ctx := context.Background()
	rp := ExtractPerf(ctx)
	assert.Nil(t, rp)

	// None of these may panic.
	rp.StartBlock("SQL", "ignored").End()
	rp.Checkpoint("SQL", "ignored")
	rp.EndRun()
	rp.WriteSummary(&bytes.Buffer{})
}

func TestContextRoundTrip(t *testing.T) {
	rp := MakeNewRunPerf("run")
	ctx := ContextWithPerf(context.Background(), rp)
	assert.Same(t, rp, ExtractPerf(ctx))
}
