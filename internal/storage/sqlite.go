package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// SQLiteStore implements run history using SQLite (the local default)
type SQLiteStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewSQLiteStore creates a new SQLite storage
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	db.Exec("PRAGMA journal_mode = WAL")

	store := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		project_name TEXT NOT NULL,
		project_path TEXT NOT NULL,
		status TEXT NOT NULL,
		files_discovered INTEGER NOT NULL DEFAULT 0,
		files_processed INTEGER NOT NULL DEFAULT 0,
		files_succeeded INTEGER NOT NULL DEFAULT 0,
		files_failed INTEGER NOT NULL DEFAULT 0,
		rag_records INTEGER NOT NULL DEFAULT 0,
		diagrams INTEGER NOT NULL DEFAULT 0,
		snapshot_path TEXT,
		started_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project_name, started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *RunRecord) error {
	query := `
		INSERT OR REPLACE INTO runs
		(id, project_name, project_path, status, files_discovered, files_processed,
		 files_succeeded, files_failed, rag_records, diagrams, snapshot_path,
		 started_at, completed_at)
		VALUES (:id, :project_name, :project_path, :status, :files_discovered, :files_processed,
		 :files_succeeded, :files_failed, :rag_records, :diagrams, :snapshot_path,
		 :started_at, :completed_at)
	`
	if _, err := s.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"run": run.ID, "status": run.Status}).Debug("run saved")
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	var run RunRecord
	err := s.db.GetContext(ctx, &run, `SELECT * FROM runs WHERE id = ?`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, project string, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []*RunRecord
	var err error
	if project == "" {
		err = s.db.SelectContext(ctx, &runs, `SELECT * FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	} else {
		err = s.db.SelectContext(ctx, &runs,
			`SELECT * FROM runs WHERE project_name = ? ORDER BY started_at DESC LIMIT ?`, project, limit)
	}
	if err != nil {
		return nil, err
	}
	return runs, nil
}
