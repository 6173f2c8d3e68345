package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one sensor's readings in a Redis sorted set scored by
// timestamp in microseconds. Each member is prefixed with a zero-padded
// append sequence, so readings with the same score sort in append order.
type RedisStore struct {
	rdb      *redis.Client
	sensorID string
}

type redisReading struct {
	ID         string    `json:"id"`
	SensorID   string    `json:"sensor_id"`
	Timestamp  time.Time `json:"ts"`
	Value      float64   `json:"value"`
	Reconciled bool      `json:"reconciled"`
}

// NewRedisStore creates a store for sensorID using the given connection options.
func NewRedisStore(redisOpts *redis.Options, sensorID string) (*RedisStore, error) {
	if sensorID == "" {
		return nil, fmt.Errorf("sensor id cannot be empty")
	}
	return &RedisStore{
		rdb:      redis.NewClient(redisOpts),
		sensorID: sensorID,
	}, nil
}

// ReadingsKey returns the sorted set key holding a sensor's readings.
func ReadingsKey(sensorID string) string {
	return fmt.Sprintf("sensorfusion:%s:readings", sensorID)
}

// SeqKey returns the counter key that numbers a sensor's appends.
func SeqKey(sensorID string) string {
	return fmt.Sprintf("sensorfusion:%s:seq", sensorID)
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Append adds a reading to the sensor's sorted set.
func (s *RedisStore) Append(ctx context.Context, r Reading) error {
	r = normalize(r, s.sensorID)

	seq, err := s.rdb.Incr(ctx, SeqKey(s.sensorID)).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate reading sequence: %w", err)
	}

	data, err := json.Marshal(redisReading{
		ID:         r.ID,
		SensorID:   r.SensorID,
		Timestamp:  r.Timestamp,
		Value:      r.Value,
		Reconciled: r.Reconciled,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	err = s.rdb.ZAdd(ctx, ReadingsKey(s.sensorID), redis.Z{
		Score:  float64(r.Timestamp.UnixMicro()),
		Member: encodeMember(seq, data),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to write reading to Redis: %w", err)
	}
	return nil
}

// Latest returns the highest-scored reading, or nil if the set is empty.
// Ties go to the reading appended last.
func (s *RedisStore) Latest(ctx context.Context) (*Reading, error) {
	members, err := s.rdb.ZRevRange(ctx, ReadingsKey(s.sensorID), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read latest from Redis: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	r, err := decodeRedisReading(members[0])
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Range returns readings within [from, to], oldest first.
func (s *RedisStore) Range(ctx context.Context, from, to time.Time) ([]Reading, error) {
	members, err := s.rdb.ZRangeByScore(ctx, ReadingsKey(s.sensorID), &redis.ZRangeBy{
		Min: strconv.FormatInt(from.UnixMicro(), 10),
		Max: strconv.FormatInt(to.UnixMicro(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range readings from Redis: %w", err)
	}

	out := make([]Reading, 0, len(members))
	for _, m := range members {
		r, err := decodeRedisReading(m)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func encodeMember(seq int64, data []byte) string {
	return fmt.Sprintf("%020d|%s", seq, data)
}

func decodeRedisReading(member string) (Reading, error) {
	_, data, ok := strings.Cut(member, "|")
	if !ok {
		return Reading{}, fmt.Errorf("malformed reading member %q", member)
	}
	var rr redisReading
	if err := json.Unmarshal([]byte(data), &rr); err != nil {
		return Reading{}, fmt.Errorf("failed to unmarshal reading: %w", err)
	}
	return Reading{
		ID:         rr.ID,
		SensorID:   rr.SensorID,
		Timestamp:  rr.Timestamp,
		Value:      rr.Value,
		Reconciled: rr.Reconciled,
	}, nil
}
