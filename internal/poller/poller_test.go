package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoller_RunsOnInterval(t *testing.T) {
	var runs atomic.Int64
	p := New("test", 10*time.Millisecond, func(context.Context, uint64) {
		runs.Add(1)
	})
	p.Start(context.Background())
	defer p.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestPoller_RunImmediately(t *testing.T) {
	var runs atomic.Int64
	p := New("test", time.Hour, func(context.Context, uint64) {
		runs.Add(1)
	})
	p.RunImmediately = true
	p.Start(context.Background())
	defer p.Stop()

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPoller_StopHaltsLoop(t *testing.T) {
	var runs atomic.Int64
	p := New("test", 5*time.Millisecond, func(context.Context, uint64) {
		runs.Add(1)
	})
	p.Start(context.Background())

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, time.Millisecond)
	p.Stop()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no cycles after Stop")
}

func TestPoller_SequenceIncreases(t *testing.T) {
	seqs := make(chan uint64, 16)
	p := New("test", 5*time.Millisecond, func(_ context.Context, seq uint64) {
		select {
		case seqs <- seq:
		default:
		}
	})
	p.Start(context.Background())
	defer p.Stop()

	first := <-seqs
	second := <-seqs
	assert.Greater(t, second, first, "each cycle carries a higher sequence")
}

func TestPoller_DoubleStartIsNoop(t *testing.T) {
	var runs atomic.Int64
	p := New("test", 10*time.Millisecond, func(context.Context, uint64) {
		runs.Add(1)
	})
	p.RunImmediately = true
	p.Start(context.Background())
	p.Start(context.Background())
	defer p.Stop()

	time.Sleep(5 * time.Millisecond)
	assert.LessOrEqual(t, runs.Load(), int64(1))
}
