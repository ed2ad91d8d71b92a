package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"
	_ "modernc.org/sqlite" // SQLite driver
)

// MemoryDSN opens a private in-memory SQLite database.
const MemoryDSN = ":memory:"

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path and
// initialises the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := path
	if path != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// single writer; also keeps ":memory:" on one connection
	db.SetMaxOpenConns(1)

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db, path: path}, nil
}

// Path returns the database path.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) get(ctx context.Context, k key) (array, error) {
	var (
		a    array
		data string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT num_rows, num_cols, data FROM task_arrays WHERE task = ? AND kind = ? AND num_observation = ?`,
		k.task, k.kind, k.num,
	).Scan(&a.Rows, &a.Cols, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return array{}, notFound(k)
	}
	if err != nil {
		return array{}, fmt.Errorf("failed to load %s: %w", k, err)
	}
	if err := json.Unmarshal([]byte(data), &a.Data); err != nil {
		return array{}, fmt.Errorf("failed to decode %s: %w", k, err)
	}
	if err := a.validate(); err != nil {
		return array{}, err
	}
	return a, nil
}

func (s *SQLite) put(ctx context.Context, k key, a array) error {
	if err := a.validate(); err != nil {
		return err
	}
	data, err := json.Marshal(a.Data)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", k, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO task_arrays (task, kind, num_observation, num_rows, num_cols, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (task, kind, num_observation) DO UPDATE SET
			num_rows = excluded.num_rows,
			num_cols = excluded.num_cols,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		k.task, k.kind, k.num, a.Rows, a.Cols, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", k, err)
	}
	return nil
}

// Observation returns the stored observation num of task.
func (s *SQLite) Observation(ctx context.Context, task string, num int) ([]float64, error) {
	a, err := s.get(ctx, key{task, KindObservation, num})
	if err != nil {
		return nil, err
	}
	return a.vector(), nil
}

// TrueParameters returns the parameters that generated observation num.
func (s *SQLite) TrueParameters(ctx context.Context, task string, num int) ([]float64, error) {
	a, err := s.get(ctx, key{task, KindTrueParameters, num})
	if err != nil {
		return nil, err
	}
	return a.vector(), nil
}

// ReferenceSamples returns the reference posterior samples for observation num.
func (s *SQLite) ReferenceSamples(ctx context.Context, task string, num int) (*mat.Dense, error) {
	a, err := s.get(ctx, key{task, KindReferenceSamples, num})
	if err != nil {
		return nil, err
	}
	return a.dense(), nil
}

func (s *SQLite) SaveObservation(ctx context.Context, task string, num int, observation []float64) error {
	return s.put(ctx, key{task, KindObservation, num}, vectorArray(observation))
}

func (s *SQLite) SaveTrueParameters(ctx context.Context, task string, num int, theta []float64) error {
	return s.put(ctx, key{task, KindTrueParameters, num}, vectorArray(theta))
}

func (s *SQLite) SaveReferenceSamples(ctx context.Context, task string, num int, samples *mat.Dense) error {
	return s.put(ctx, key{task, KindReferenceSamples, num}, denseArray(samples))
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
