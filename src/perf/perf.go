package perf

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// RunPerf collects timing blocks for one logical run, e.g. one CLI invocation
// or one batch of handle executions. A nil *RunPerf is valid and records nothing.
type RunPerf struct {
	Name  string
	Start time.Time
	End   time.Time

	mu     sync.Mutex
	Blocks []PerfBlock
}

func MakeNewRunPerf(name string) *RunPerf {
	return &RunPerf{
		Name:  name,
		Start: time.Now(),
	}
}

func (rp *RunPerf) EndRun() {
	if rp == nil {
		return
	}
	for rp.EndBlock() {
	}
	rp.End = time.Now()
}

func (rp *RunPerf) Checkpoint(category, description string) {
	if rp == nil {
		return
	}
	now := time.Now()
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.Blocks = append(rp.Blocks, PerfBlock{
		Start:       now,
		End:         now,
		Category:    category,
		Description: description,
	})
}

// BlockHandle ends one specific block, even if other blocks were started after it.
type BlockHandle struct {
	rp  *RunPerf
	idx int
}

func (rp *RunPerf) StartBlock(category, description string) *BlockHandle {
	if rp == nil {
		return nil
	}
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.Blocks = append(rp.Blocks, PerfBlock{
		Start:       time.Now(),
		Category:    category,
		Description: description,
	})
	return &BlockHandle{rp: rp, idx: len(rp.Blocks) - 1}
}

func (b *BlockHandle) End() {
	if b == nil {
		return
	}
	b.rp.mu.Lock()
	defer b.rp.mu.Unlock()
	if b.rp.Blocks[b.idx].End.IsZero() {
		b.rp.Blocks[b.idx].End = time.Now()
	}
}

// EndBlock ends the most recently started open block. Returns false if no
// block was open.
func (rp *RunPerf) EndBlock() bool {
	if rp == nil {
		return false
	}
	rp.mu.Lock()
	defer rp.mu.Unlock()
	for i := len(rp.Blocks) - 1; i >= 0; i -= 1 {
		if rp.Blocks[i].End.IsZero() {
			rp.Blocks[i].End = time.Now()
			return true
		}
	}
	return false
}

func (rp *RunPerf) MsFromStart(block *PerfBlock) float64 {
	return float64(block.Start.Sub(rp.Start).Nanoseconds()) / 1000 / 1000
}

// WriteSummary prints one line per block, in the order the blocks were started.
func (rp *RunPerf) WriteSummary(w io.Writer) {
	if rp == nil {
		return
	}
	rp.mu.Lock()
	defer rp.mu.Unlock()
	fmt.Fprintf(w, "%s: %.3fms total\n", rp.Name, float64(rp.End.Sub(rp.Start).Nanoseconds())/1000/1000)
	for i := range rp.Blocks {
		block := &rp.Blocks[i]
		fmt.Fprintf(w, "  +%8.3fms %8.3fms [%s] %s\n", rp.MsFromStart(block), block.DurationMs(), block.Category, block.Description)
	}
}

type PerfBlock struct {
	Start       time.Time
	End         time.Time
	Category    string
	Description string
}

func (pb *PerfBlock) Duration() time.Duration {
	return pb.End.Sub(pb.Start)
}

func (pb *PerfBlock) DurationMs() float64 {
	return float64(pb.Duration().Nanoseconds()) / 1000 / 1000
}

type perfContextKey struct{}

func ContextWithPerf(ctx context.Context, rp *RunPerf) context.Context {
	return context.WithValue(ctx, perfContextKey{}, rp)
}

// ExtractPerf returns the RunPerf stored in the context, or nil.
func ExtractPerf(ctx context.Context) *RunPerf {
	rp, _ := ctx.Value(perfContextKey{}).(*RunPerf)
	return rp
}
