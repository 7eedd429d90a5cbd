package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Task is one poll cycle. seq increases by one per cycle and lets the task
// discard responses that resolve after a newer cycle has started.
type Task func(ctx context.Context, seq uint64)

// Poller runs a task on a fixed interval with an explicit Start/Stop
// lifecycle. Cycles may overlap in wall-clock time with other pollers;
// staleness is handled by the sequence number, not by coordination.
type Poller struct {
	name     string
	interval time.Duration
	task     Task

	// RunImmediately fires the first cycle on Start instead of waiting
	// one full interval.
	RunImmediately bool

	seq    atomic.Uint64
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func New(name string, interval time.Duration, task Task) *Poller {
	return &Poller{name: name, interval: interval, task: task}
}

// Start launches the polling loop. Calling Start twice is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.once.Do(func() {
		ctx, p.cancel = context.WithCancel(ctx)
		p.done = make(chan struct{})
		go p.loop(ctx)
		log.Infof("poller %s started (interval %v)", p.name, p.interval)
	})
}

// Stop cancels the loop and waits for the current cycle to return.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	log.Infof("poller %s stopped", p.name)
}

// Seq returns the sequence number of the most recently started cycle.
func (p *Poller) Seq() uint64 { return p.seq.Load() }

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	if p.RunImmediately {
		p.task(ctx, p.seq.Add(1))
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.task(ctx, p.seq.Add(1))
		}
	}
}
