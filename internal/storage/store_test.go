package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T, sensorID string) Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T, sensorID string) Store {
			return NewInMemoryStore(sensorID)
		},
		"sqlite": func(t *testing.T, sensorID string) Store {
			t.Helper()
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "readings.db"), sensorID)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
		"redis": func(t *testing.T, sensorID string) Store {
			t.Helper()
			mr := miniredis.RunT(t)
			s, err := NewRedisStore(&redis.Options{Addr: mr.Addr()}, sensorID)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestStore_LatestEmpty(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t, "S1")

			latest, err := s.Latest(context.Background())
			require.NoError(t, err)
			assert.Nil(t, latest)
		})
	}
}

func TestStore_LatestByTimestamp(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t, "S1")

			require.NoError(t, s.Append(ctx, Reading{Timestamp: base.Add(2 * time.Second), Value: 21.5}))
			require.NoError(t, s.Append(ctx, Reading{Timestamp: base, Value: 19.0}))
			require.NoError(t, s.Append(ctx, Reading{Timestamp: base.Add(time.Second), Value: 20.0}))

			latest, err := s.Latest(ctx)
			require.NoError(t, err)
			require.NotNil(t, latest)
			assert.Equal(t, 21.5, latest.Value)
			assert.Equal(t, "S1", latest.SensorID)
			assert.NotEmpty(t, latest.ID)
			assert.True(t, latest.Timestamp.Equal(base.Add(2*time.Second)))
		})
	}
}

func TestStore_ReconciledFlagRoundTrips(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t, "S2")

			require.NoError(t, s.Append(ctx, Reading{Timestamp: time.Now().Add(-time.Second), Value: 20.1}))
			require.NoError(t, s.Append(ctx, Reading{Value: 22.0, Reconciled: true}))

			latest, err := s.Latest(ctx)
			require.NoError(t, err)
			require.NotNil(t, latest)
			assert.True(t, latest.Reconciled)
			assert.Equal(t, 22.0, latest.Value)
		})
	}
}

func TestStore_SameTimestampKeepsAppendOrder(t *testing.T) {
	at := time.Date(2026, 7, 8, 9, 10, 11, 123456000, time.UTC)

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t, "S1")

			// IDs chosen so the later reading does not win on byte order.
			require.NoError(t, s.Append(ctx, Reading{ID: "z-sampled", Timestamp: at, Value: 20.3}))
			require.NoError(t, s.Append(ctx, Reading{ID: "a-reconciled", Timestamp: at, Value: 22.0, Reconciled: true}))

			latest, err := s.Latest(ctx)
			require.NoError(t, err)
			require.NotNil(t, latest)
			assert.True(t, latest.Reconciled)
			assert.Equal(t, 22.0, latest.Value)

			got, err := s.Range(ctx, at, at)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "z-sampled", got[0].ID)
			assert.Equal(t, "a-reconciled", got[1].ID)
		})
	}
}

func TestStore_RangeInclusiveAndOrdered(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t, "S3")

			for i := 4; i >= 0; i-- {
				require.NoError(t, s.Append(ctx, Reading{
					Timestamp: base.Add(time.Duration(i) * time.Second),
					Value:     float64(i),
				}))
			}

			got, err := s.Range(ctx, base.Add(time.Second), base.Add(3*time.Second))
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, 1.0, got[0].Value)
			assert.Equal(t, 2.0, got[1].Value)
			assert.Equal(t, 3.0, got[2].Value)

			none, err := s.Range(ctx, base.Add(time.Hour), base.Add(2*time.Hour))
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestStore_ConcurrentAppends(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t, "S1")

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(v float64) {
					defer wg.Done()
					assert.NoError(t, s.Append(ctx, Reading{Value: v}))
				}(float64(i))
			}
			wg.Wait()

			all, err := s.Range(ctx, time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
			require.NoError(t, err)
			assert.Len(t, all, 20)
		})
	}
}

func TestSQLiteStore_ReopenKeepsReadings(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "s1.db")

	s, err := OpenSQLite(path, "S1")
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, Reading{Value: 20.4}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path, "S1")
	require.NoError(t, err)
	defer s.Close()

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 20.4, latest.Value)
}

func TestSQLiteStore_DuplicateIDIgnored(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "dup.db"), "S1")
	require.NoError(t, err)
	defer s.Close()

	now := time.Now()
	require.NoError(t, s.Append(ctx, Reading{ID: "r-1", Timestamp: now, Value: 1}))
	require.NoError(t, s.Append(ctx, Reading{ID: "r-1", Timestamp: now, Value: 2}))

	all, err := s.Range(ctx, now.Add(-time.Second), now.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 1.0, all[0].Value)
}

func TestRedisStore_Key(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(&redis.Options{Addr: mr.Addr()}, "S9")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append(context.Background(), Reading{Value: 1}))
	assert.True(t, mr.Exists("sensorfusion:S9:readings"))
	assert.True(t, mr.Exists(SeqKey("S9")))

	_, err = NewRedisStore(&redis.Options{Addr: mr.Addr()}, "")
	assert.Error(t, err)
}

func TestOpen_Backends(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, BackendMemory, "", "S1")
	require.NoError(t, err)
	assert.IsType(t, &InMemoryStore{}, s)

	s, err = Open(ctx, BackendSQLite, filepath.Join(t.TempDir(), "o.db"), "S1")
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	mr := miniredis.RunT(t)
	s, err = Open(ctx, BackendRedis, "redis://"+mr.Addr(), "S1")
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	s.Close()

	_, err = Open(ctx, BackendSQLite, "", "S1")
	assert.Error(t, err)

	_, err = Open(ctx, "cassandra", "", "S1")
	assert.Error(t, err)
}
