package reconcile

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPeriod is the default interval between scheduled reconciliations.
const DefaultPeriod = time.Minute

// Reconciler is the operation the Trigger fires.
type Reconciler interface {
	Reconcile(ctx context.Context) Result
}

// Trigger invokes a Reconciler on a fixed period until stopped.
type Trigger struct {
	nodeID string
	r      Reconciler
	period time.Duration
	cycles atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTrigger creates a trigger. period <= 0 uses DefaultPeriod.
func NewTrigger(nodeID string, r Reconciler, period time.Duration) *Trigger {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Trigger{
		nodeID: nodeID,
		r:      r,
		period: period,
	}
}

// Cycles returns the number of completed reconcile cycles.
func (t *Trigger) Cycles() int64 {
	return t.cycles.Load()
}

// Start runs the trigger loop in the background until ctx is done or Stop is called.
func (t *Trigger) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.Run(runCtx)
	}()
}

// Stop stops the background loop and waits for it to exit.
func (t *Trigger) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	t.wg.Wait()
}

// Run blocks, sleeping one full period before each reconcile. It returns as
// soon as ctx is done, without firing a final reconcile.
func (t *Trigger) Run(ctx context.Context) {
	log.Printf("[%s] Reconcile trigger started: period=%s", t.nodeID, t.period)

	timer := time.NewTimer(t.period)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[%s] Reconcile trigger stopped after %d cycles", t.nodeID, t.Cycles())
			return
		case <-timer.C:
		}

		t.fire(ctx)
		timer.Reset(t.period)
	}
}

// fire runs one cycle. A failed or panicking cycle is logged and never stops the loop.
func (t *Trigger) fire(ctx context.Context) {
	defer t.cycles.Add(1)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[%s] Scheduled reconcile panic: %v", t.nodeID, r)
		}
	}()

	log.Printf("[%s] Scheduled reconcile tick", t.nodeID)
	res := t.r.Reconcile(ctx)
	if ctx.Err() != nil {
		return
	}
	if res.Success {
		log.Printf("[%s] Scheduled reconcile result: %s", t.nodeID, res)
	} else {
		log.Printf("[%s] Scheduled reconcile failed: %s", t.nodeID, res.Message)
	}
}
