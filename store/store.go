// Package store persists circuit run results in sqlite.
//
// A run occupies one row in the runs table plus one row per measured
// bitstring in the counts table. Stores survive reopening; recording a run
// under an existing name replaces it together with its counts.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const (
	tableRuns   = "runs"
	tableCounts = "counts"
)

// A Run is the stored summary of a sampled circuit execution.
type Run struct {
	// Name identifies the run.
	Name string
	// Backend is the simulation backend that produced the run.
	Backend string
	// Qubits is the size of the circuit's register.
	Qubits int
	// Shots is the number of sampled executions.
	Shots int
	// Elapsed is the simulated gate time in seconds of one shot.
	Elapsed float64
	// Created is the unix timestamp the run was recorded at.
	Created int64
	// Counts tallies the measured bitstrings over all shots.
	// Listings returned by Runs leave it nil.
	Counts map[string]int
}

// Store records runs in a sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens the store at dbPath, creating it if needed.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := prepareDB(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "")
	}
	return &Store{db: db}, nil
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := `PRAGMA journal_mode=WAL`
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (name TEXT PRIMARY KEY, backend TEXT, qubits INTEGER, shots INTEGER, elapsed REAL, created INTEGER) STRICT`, tableRuns)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (name TEXT, bits TEXT, count INTEGER, PRIMARY KEY (name, bits)) STRICT`, tableCounts)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// SetRun records a run, replacing any previous run of the same name
// together with its counts. A zero Created is filled with the current
// time; zero counts are dropped.
func (s *Store) SetRun(run Run) error {
	if run.Created == 0 {
		run.Created = time.Now().Unix()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (name, backend, qubits, shots, elapsed, created) VALUES (?, ?, ?, ?, ?, ?)`, tableRuns)
	args := []any{run.Name, run.Backend, run.Qubits, run.Shots, run.Elapsed, run.Created}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return errors.Wrap(err, fmt.Sprintf("%s %#v", sqlStr, args))
	}

	sqlStr = fmt.Sprintf(`DELETE FROM %s WHERE name=?`, tableCounts)
	if _, err := s.db.ExecContext(ctx, sqlStr, run.Name); err != nil {
		return errors.Wrap(err, run.Name)
	}
	for bits, count := range run.Counts {
		if count == 0 {
			continue
		}
		sqlStr = fmt.Sprintf(`INSERT OR REPLACE INTO %s (name, bits, count) VALUES (?, ?, ?)`, tableCounts)
		if _, err := s.db.ExecContext(ctx, sqlStr, run.Name, bits, count); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%s %s", run.Name, bits))
		}
	}
	return nil
}

// Run returns the named run with its counts.
func (s *Store) Run(name string) (Run, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT name, backend, qubits, shots, elapsed, created FROM %s WHERE name=?`, tableRuns)
	var run Run
	if err := s.db.QueryRowContext(ctx, sqlStr, name).Scan(&run.Name, &run.Backend, &run.Qubits, &run.Shots, &run.Elapsed, &run.Created); err != nil {
		return Run{}, errors.Wrap(err, name)
	}

	run.Counts = make(map[string]int)
	sqlStr = fmt.Sprintf(`SELECT bits, count FROM %s WHERE name=?`, tableCounts)
	rows, err := s.db.QueryContext(ctx, sqlStr, name)
	if err != nil {
		return Run{}, errors.Wrap(err, "")
	}
	defer rows.Close()
	for rows.Next() {
		var bits string
		var count int
		if err := rows.Scan(&bits, &count); err != nil {
			return Run{}, errors.Wrap(err, "")
		}
		run.Counts[bits] = count
	}
	if err := rows.Err(); err != nil {
		return Run{}, errors.Wrap(err, "")
	}
	return run, nil
}

// Runs lists all runs without their counts, oldest first.
func (s *Store) Runs() ([]Run, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 48*time.Hour)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT name, backend, qubits, shots, elapsed, created FROM %s ORDER BY created, name`, tableRuns)
	rows, err := s.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.Name, &run.Backend, &run.Qubits, &run.Shots, &run.Elapsed, &run.Created); err != nil {
			return nil, errors.Wrap(err, "")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return runs, nil
}
