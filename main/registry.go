package main

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// RunRecord is one recorded trainer attempt. The registry is an audit
// trail only; the marker file remains the sole completion authority.
type RunRecord struct {
	ID             int64
	Name           string
	Dataset        string
	CorruptionType string
	Severity       float64
	NoisyLabels    bool
	Args           string
	Status         string
	ExitCode       int
	OutDir         string
	StartedAt      time.Time
	FinishedAt     time.Time
}

const (
	runStatusRunning   = "RUNNING"
	runStatusSucceeded = "SUCCEEDED"
	runStatusFailed    = "FAILED"
)

type Registry struct {
	db *sql.DB
}

func openRegistry(path string) (*Registry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Registry{db: db}, nil
}

func initSchema(db *sql.DB) error {
	const createRuns = `
CREATE TABLE IF NOT EXISTS runs (
  id              INTEGER PRIMARY KEY AUTOINCREMENT,
  name            TEXT,
  dataset         TEXT,
  corruption_type TEXT,
  severity        REAL,
  noisy_labels    INTEGER,
  args            TEXT,
  status          TEXT,
  exit_code       INTEGER,
  out_dir         TEXT,
  started_at      TEXT,
  finished_at     TEXT
);`
	_, err := db.Exec(createRuns)
	return err
}

func (r *Registry) Close() error {
	return r.db.Close()
}

// Begin records the start of one trainer attempt and returns its id.
func (r *Registry) Begin(cfg ExperimentConfig, args []string, outDir string) (int64, error) {
	res, err := r.db.Exec(
		`INSERT INTO runs (name, dataset, corruption_type, severity, noisy_labels, args, status, exit_code, out_dir, started_at, finished_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cfg.Name, cfg.Dataset, cfg.CorruptionType, cfg.Severity, boolToInt(cfg.NoisyLabels),
		strings.Join(args, " "), runStatusRunning, -1, outDir,
		time.Now().UTC().Format(time.RFC3339), "",
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// Finish closes out a run with its terminal status and exit code.
func (r *Registry) Finish(id int64, status string, exitCode int) error {
	_, err := r.db.Exec(
		`UPDATE runs SET status = ?, exit_code = ?, finished_at = ? WHERE id = ?`,
		status, exitCode, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("update run %d: %w", id, err)
	}
	return nil
}

func (r *Registry) List() ([]RunRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, name, dataset, corruption_type, severity, noisy_labels, args, status, exit_code, out_dir, started_at, finished_at
         FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *Registry) Show(id int64) (*RunRecord, error) {
	row := r.db.QueryRow(
		`SELECT id, name, dataset, corruption_type, severity, noisy_labels, args, status, exit_code, out_dir, started_at, finished_at
         FROM runs WHERE id = ?`, id)
	return scanRun(row.Scan)
}

func scanRun(scan func(...any) error) (*RunRecord, error) {
	var rec RunRecord
	var noisy sql.NullInt64
	var started, finished sql.NullString
	if err := scan(
		&rec.ID,
		&rec.Name,
		&rec.Dataset,
		&rec.CorruptionType,
		&rec.Severity,
		&noisy,
		&rec.Args,
		&rec.Status,
		&rec.ExitCode,
		&rec.OutDir,
		&started,
		&finished,
	); err != nil {
		return nil, err
	}
	rec.NoisyLabels = noisy.Valid && noisy.Int64 == 1
	if started.Valid && started.String != "" {
		if t, err := time.Parse(time.RFC3339, started.String); err == nil {
			rec.StartedAt = t
		}
	}
	if finished.Valid && finished.String != "" {
		if t, err := time.Parse(time.RFC3339, finished.String); err == nil {
			rec.FinishedAt = t
		}
	}
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
