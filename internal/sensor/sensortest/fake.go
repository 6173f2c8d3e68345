// Package sensortest provides an in-process sensor.Endpoint for tests.
package sensortest

import (
	"context"
	"sync"
	"time"

	"sensorfusion/internal/sensor"
)

// Fake is a deterministic sensor.Endpoint. AppendReconciled overwrites the
// value returned by later GetLatest calls, like a real sensor would.
type Fake struct {
	id string

	mu        sync.Mutex
	value     float64
	readErr   error
	writeErr  error
	readDelay time.Duration
	onRead    func()
	reads     int
	appended  []float64
	sampling  bool
}

var _ sensor.Endpoint = (*Fake)(nil)

// NewFake creates a fake sensor returning value.
func NewFake(id string, value float64) *Fake {
	return &Fake{id: id, value: value, sampling: true}
}

// NewFakes creates one fake per value with ids S1..Sn.
func NewFakes(values ...float64) []*Fake {
	fakes := make([]*Fake, len(values))
	for i, v := range values {
		fakes[i] = NewFake("S"+string(rune('1'+i)), v)
	}
	return fakes
}

// Endpoints converts fakes to the Endpoint interface.
func Endpoints(fakes []*Fake) []sensor.Endpoint {
	eps := make([]sensor.Endpoint, len(fakes))
	for i, f := range fakes {
		eps[i] = f
	}
	return eps
}

// TotalReads sums the reads across fakes.
func TotalReads(fakes []*Fake) int {
	total := 0
	for _, f := range fakes {
		total += f.Reads()
	}
	return total
}

func (f *Fake) ID() string { return f.id }

func (f *Fake) SetValue(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = v
}

func (f *Fake) SetReadError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
}

func (f *Fake) SetWriteError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

// SetReadDelay makes GetLatest wait d (or until ctx is done).
func (f *Fake) SetReadDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readDelay = d
}

// OnRead registers a hook invoked at the start of every GetLatest.
func (f *Fake) OnRead(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onRead = fn
}

func (f *Fake) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *Fake) Appended() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.appended...)
}

func (f *Fake) Sampling() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sampling
}

func (f *Fake) GetLatest(ctx context.Context) (float64, error) {
	f.mu.Lock()
	f.reads++
	hook, delay := f.onRead, f.readDelay
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.value, nil
}

func (f *Fake) GetSnapshot(ctx context.Context, lookback time.Duration) (sensor.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	return sensor.Snapshot{SensorID: f.id, From: now.Add(-lookback), To: now, Values: []float64{f.value}}, nil
}

func (f *Fake) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sampling = true
	return nil
}

func (f *Fake) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sampling = false
	return nil
}

func (f *Fake) AppendReconciled(ctx context.Context, value float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.appended = append(f.appended, value)
	f.value = value
	return nil
}
