// Package storage persists extracted paragraphs and run history in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tenderlab/clausematch/internal/models"
)

// Run statuses.
const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run is one recorded pipeline execution.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Documents  int
	Methods    int
	ReportPath string
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// New opens or creates the database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS paragraphs (
		id INTEGER PRIMARY KEY,
		text TEXT NOT NULL,
		source TEXT NOT NULL,
		char_count INTEGER NOT NULL,
		word_count INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_paragraphs_source ON paragraphs(source);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		documents INTEGER NOT NULL,
		methods INTEGER NOT NULL,
		report_path TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceParagraphs swaps the stored corpus for the given one in a single
// transaction. Each extraction produces a fresh corpus, so partial updates
// never make sense.
func (s *Store) ReplaceParagraphs(ctx context.Context, paragraphs []models.Paragraph) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM paragraphs`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO paragraphs (id, text, source, char_count, word_count)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range paragraphs {
		if _, err := stmt.ExecContext(ctx, p.ID, p.Text, p.Source, p.CharCount, p.WordCount); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Paragraphs returns every stored paragraph ordered by ID.
func (s *Store) Paragraphs(ctx context.Context) ([]models.Paragraph, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, source, char_count, word_count FROM paragraphs ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Paragraph
	for rows.Next() {
		var p models.Paragraph
		if err := rows.Scan(&p.ID, &p.Text, &p.Source, &p.CharCount, &p.WordCount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountParagraphs returns the stored paragraph count.
func (s *Store) CountParagraphs(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM paragraphs`).Scan(&count)
	return count, err
}

// RecordRun inserts one run history entry.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, status, documents, methods, report_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.FinishedAt, run.Status, run.Documents, run.Methods, run.ReportPath,
	)
	return err
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, status, documents, methods, report_path
		 FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Status, &r.Documents, &r.Methods, &r.ReportPath); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LastRun returns the most recent run, or nil when none is recorded.
func (s *Store) LastRun(ctx context.Context) (*Run, error) {
	runs, err := s.Runs(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
