package it

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensorfusion/internal/client"
	"sensorfusion/internal/printer"
	"sensorfusion/internal/sensor"
	"sensorfusion/internal/storage"
)

func newLoop(t *testing.T, c *Cluster, tol float64, out *bytes.Buffer) *client.Loop {
	t.Helper()
	opts := client.DefaultOptions()
	opts.Tolerance = tol
	opts.GateInterval = 10 * time.Millisecond

	var reporter client.Reporter = client.NopReporter{}
	if out != nil {
		reporter = printer.New(out)
	}

	l, err := client.NewLoop("client", c.Endpoints(), c.CoordinatorClient(), reporter, opts)
	require.NoError(t, err)
	return l
}

func TestFusion_AcceptsAgreeingSensors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cluster := NewCluster()
	defer cluster.Stop()

	require.NoError(t, cluster.StartSensors(ctx, 20.0, 20.1, 20.2))
	coord, err := cluster.StartCoordinator(ctx, 0)
	require.NoError(t, err)

	round, err := newLoop(t, cluster, 0.5, nil).RunOnce(ctx)
	require.NoError(t, err)

	assert.True(t, round.Decision.Accepted)
	assert.False(t, round.Escalated)
	assert.InDelta(t, 20.1, round.Value, 1e-9)
	assert.False(t, coord.Coordinator.IsInProgress())
}

func TestFusion_EscalatesAndReconcilesOverGRPC(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	color.NoColor = true

	cluster := NewCluster()
	defer cluster.Stop()

	require.NoError(t, cluster.StartSensors(ctx, 20.0, 22.0, 24.0))
	_, err := cluster.StartCoordinator(ctx, 0)
	require.NoError(t, err)

	var out bytes.Buffer
	round, err := newLoop(t, cluster, 0.3, &out).RunOnce(ctx)
	require.NoError(t, err)

	assert.True(t, round.Escalated)
	require.True(t, round.Reconcile.Success, round.Reconcile.Message)
	assert.InDelta(t, 22.0, round.Reconcile.AveragedValue, 1e-9)
	assert.InDelta(t, 22.0, round.Value, 1e-9)
	assert.Contains(t, out.String(), "post-reconcile mean 22.000")

	// Every sensor stored the reconciled value as its latest reading.
	for _, id := range []string{"S1", "S2", "S3"} {
		snap, err := cluster.GetSensor(id).Service.GetSnapshot(ctx, time.Minute)
		require.NoError(t, err)
		require.NotEmpty(t, snap.Values)
		assert.InDelta(t, 22.0, snap.Values[len(snap.Values)-1], 1e-9, id)
	}
}

func TestFusion_MixedStorageBackends(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cluster := NewCluster()
	defer cluster.Stop()

	sqliteStore, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "s1.db"), "S1")
	require.NoError(t, err)
	_, err = cluster.StartSensor(ctx, "S1", sqliteStore, 10.0)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	redisStore, err := storage.NewRedisStore(&redis.Options{Addr: mr.Addr()}, "S2")
	require.NoError(t, err)
	_, err = cluster.StartSensor(ctx, "S2", redisStore, 20.0)
	require.NoError(t, err)

	_, err = cluster.StartSensor(ctx, "S3", storage.NewInMemoryStore("S3"), 60.0)
	require.NoError(t, err)

	_, err = cluster.StartCoordinator(ctx, 0)
	require.NoError(t, err)

	round, err := newLoop(t, cluster, 1.0, nil).RunOnce(ctx)
	require.NoError(t, err)
	require.True(t, round.Reconcile.Success, round.Reconcile.Message)
	assert.InDelta(t, 30.0, round.Value, 1e-9)

	latest, err := redisStore.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Reconciled)
	assert.InDelta(t, 30.0, latest.Value, 1e-9)

	latest, err = sqliteStore.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Reconciled)
}

func TestFusion_ScheduledTriggerConverges(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cluster := NewCluster()
	defer cluster.Stop()

	require.NoError(t, cluster.StartSensors(ctx, 18.0, 20.0, 25.0))
	coord, err := cluster.StartCoordinator(ctx, 20*time.Millisecond)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return coord.Trigger.Cycles() >= 1 }, 10*time.Second, 10*time.Millisecond)

	for _, id := range []string{"S1", "S2", "S3"} {
		v, err := cluster.GetSensor(id).Service.GetLatest(ctx)
		require.NoError(t, err)
		assert.InDelta(t, 21.0, v, 1e-9, id)
	}
}

// attemptTracker counts reconcile attempts in flight as seen by S1: a fetch
// opens an attempt and the write-back closes it.
type attemptTracker struct {
	sensor.Endpoint
	active atomic.Int32
	max    atomic.Int32
}

func (a *attemptTracker) GetLatest(ctx context.Context) (float64, error) {
	n := a.active.Add(1)
	for {
		m := a.max.Load()
		if n <= m || a.max.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return a.Endpoint.GetLatest(ctx)
}

func (a *attemptTracker) AppendReconciled(ctx context.Context, value float64) error {
	defer a.active.Add(-1)
	return a.Endpoint.AppendReconciled(ctx, value)
}

func TestFusion_ConcurrentReconcilesNeverOverlap(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cluster := NewCluster()
	defer cluster.Stop()

	var tracker *attemptTracker
	cluster.Observe = func(ep sensor.Endpoint) sensor.Endpoint {
		if ep.ID() != "S1" {
			return ep
		}
		tracker = &attemptTracker{Endpoint: ep}
		return tracker
	}

	require.NoError(t, cluster.StartSensors(ctx, 20.0, 22.0, 24.0))
	_, err := cluster.StartCoordinator(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, tracker)

	coord := cluster.CoordinatorClient()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := coord.Reconcile(ctx)
			assert.NoError(t, err)
			assert.True(t, res.Success, res.Message)
			assert.InDelta(t, 22.0, res.AveragedValue, 1e-9)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), tracker.max.Load(), "reconcile attempts overlapped")
	assert.Equal(t, int32(0), tracker.active.Load())

	busy, err := coord.IsInProgress(ctx)
	require.NoError(t, err)
	assert.False(t, busy)
}

func TestFusion_KilledSensorFailsReconcileNotCoordinator(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cluster := NewCluster()
	defer cluster.Stop()

	require.NoError(t, cluster.StartSensors(ctx, 20.0, 22.0, 24.0))
	_, err := cluster.StartCoordinator(ctx, 0)
	require.NoError(t, err)

	require.NoError(t, cluster.KillSensor("S3"))

	coord := cluster.CoordinatorClient()
	res, err := coord.Reconcile(ctx)
	require.NoError(t, err, "sensor failures travel in the result")
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "S3")

	busy, err := coord.IsInProgress(ctx)
	require.NoError(t, err)
	assert.False(t, busy)

	// The client treats the sensor failure as fatal.
	_, err = newLoop(t, cluster, 0.3, nil).RunOnce(ctx)
	assert.Error(t, err)
}
