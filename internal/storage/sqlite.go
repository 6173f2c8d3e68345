package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore persists one sensor's readings in a SQLite database.
// Uses WAL mode so snapshot queries do not block the sampler.
type SQLiteStore struct {
	db       *sql.DB
	sensorID string
}

// OpenSQLite creates or opens a SQLite database at the given path and
// applies the schema. Safe to call on an existing database.
func OpenSQLite(path, sensorID string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, sensorID: sensorID}, nil
}

// Append inserts a reading. Duplicate IDs are silently ignored.
func (s *SQLiteStore) Append(ctx context.Context, r Reading) error {
	r = normalize(r, s.sensorID)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO readings (id, sensor_id, ts, value, reconciled)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.ID,
		r.SensorID,
		r.Timestamp.UnixNano(),
		r.Value,
		r.Reconciled,
	)
	if err != nil {
		return fmt.Errorf("append reading: %w", err)
	}
	return nil
}

// Latest returns the newest reading for this sensor, or nil if none exist.
func (s *SQLiteStore) Latest(ctx context.Context) (*Reading, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sensor_id, ts, value, reconciled
		FROM readings
		WHERE sensor_id = ?
		ORDER BY ts DESC, seq DESC
		LIMIT 1
	`, s.sensorID)

	r, err := scanReading(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest reading: %w", err)
	}
	return &r, nil
}

// Range returns readings within [from, to], oldest first.
func (s *SQLiteStore) Range(ctx context.Context, from, to time.Time) ([]Reading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sensor_id, ts, value, reconciled
		FROM readings
		WHERE sensor_id = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC, seq ASC
	`, s.sensorID, from.UnixNano(), to.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("range readings: %w", err)
	}
	defer rows.Close()

	out := make([]Reading, 0)
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("range readings: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("range readings: %w", err)
	}
	return out, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(row rowScanner) (Reading, error) {
	var (
		r  Reading
		ts int64
	)
	if err := row.Scan(&r.ID, &r.SensorID, &ts, &r.Value, &r.Reconciled); err != nil {
		return Reading{}, err
	}
	r.Timestamp = time.Unix(0, ts).UTC()
	return r, nil
}
