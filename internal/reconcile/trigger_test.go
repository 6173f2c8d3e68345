package reconcile

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensorfusion/internal/sensor/sensortest"
)

type countingReconciler struct {
	calls   atomic.Int64
	panicOn int64
	fail    bool
}

func (c *countingReconciler) Reconcile(ctx context.Context) Result {
	n := c.calls.Add(1)
	if c.panicOn != 0 && n == c.panicOn {
		panic("boom")
	}
	if c.fail {
		return failure(time.Now(), "sensor S2 unreachable")
	}
	return Result{Success: true, At: time.Now(), AveragedValue: 20, Message: "ok"}
}

func TestTrigger_FiresEveryPeriod(t *testing.T) {
	r := &countingReconciler{}
	tr := NewTrigger("test", r, 10*time.Millisecond)

	tr.Start(context.Background())
	require.Eventually(t, func() bool { return r.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	tr.Stop()

	assert.GreaterOrEqual(t, tr.Cycles(), int64(3))
}

func TestTrigger_WaitsFullPeriodBeforeFirstFire(t *testing.T) {
	r := &countingReconciler{}
	tr := NewTrigger("test", r, time.Hour)

	tr.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	tr.Stop()

	assert.Equal(t, int64(0), r.calls.Load())
	assert.Equal(t, int64(0), tr.Cycles())
}

func TestTrigger_ContinuesAfterPanicAndFailure(t *testing.T) {
	r := &countingReconciler{panicOn: 1, fail: true}
	tr := NewTrigger("test", r, 5*time.Millisecond)

	tr.Start(context.Background())
	require.Eventually(t, func() bool { return r.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	tr.Stop()
}

func TestTrigger_RunReturnsOnCancel(t *testing.T) {
	tr := NewTrigger("test", &countingReconciler{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tr.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestTrigger_StartIsIdempotent(t *testing.T) {
	r := &countingReconciler{}
	tr := NewTrigger("test", r, time.Hour)

	tr.Start(context.Background())
	tr.Start(context.Background())
	tr.Stop()
	tr.Stop()
}

func TestNewTrigger_DefaultPeriod(t *testing.T) {
	tr := NewTrigger("test", &countingReconciler{}, 0)
	assert.Equal(t, DefaultPeriod, tr.period)
}

func TestTrigger_DrivesCoordinator(t *testing.T) {
	fakes := sensortest.NewFakes(19.0, 20.0, 21.0)
	c := newTestCoordinator(t, fakes)
	tr := NewTrigger("test", c, 10*time.Millisecond)

	tr.Start(context.Background())
	require.Eventually(t, func() bool { return len(fakes[0].Appended()) >= 2 }, 2*time.Second, 5*time.Millisecond)
	tr.Stop()

	for _, f := range fakes {
		for _, v := range f.Appended() {
			assert.InDelta(t, 20.0, v, 1e-9)
		}
	}
	assert.False(t, c.IsInProgress())
}

func TestResult_String(t *testing.T) {
	ok := Result{Success: true, At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), AveragedValue: 20.25, Message: "done"}
	assert.Contains(t, ok.String(), "20.25")

	bad := failure(time.Now(), "sensor %s down", "S1")
	assert.False(t, bad.Success)
	assert.True(t, math.IsNaN(bad.AveragedValue))
	assert.Equal(t, "sensor S1 down", bad.Message)
}
