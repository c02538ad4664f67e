package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// PostgresStore implements run history using PostgreSQL, for teams sharing
// one history database
type PostgresStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPostgresStore creates a new PostgreSQL storage
func NewPostgresStore(dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &PostgresStore{
		db:     db,
		logger: logger,
	}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) initSchema() error {
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
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project_name, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *RunRecord) error {
	query := `
		INSERT INTO runs (id, project_name, project_path, status, files_discovered,
			files_processed, files_succeeded, files_failed, rag_records, diagrams,
			snapshot_path, started_at, completed_at)
		VALUES (:id, :project_name, :project_path, :status, :files_discovered,
			:files_processed, :files_succeeded, :files_failed, :rag_records, :diagrams,
			:snapshot_path, :started_at, :completed_at)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			files_discovered = EXCLUDED.files_discovered,
			files_processed = EXCLUDED.files_processed,
			files_succeeded = EXCLUDED.files_succeeded,
			files_failed = EXCLUDED.files_failed,
			rag_records = EXCLUDED.rag_records,
			diagrams = EXCLUDED.diagrams,
			snapshot_path = EXCLUDED.snapshot_path,
			completed_at = EXCLUDED.completed_at
	`

	_, err := s.db.NamedExecContext(ctx, query, run)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"run": run.ID, "status": run.Status}).Debug("run saved")
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	var run RunRecord
	err := s.db.GetContext(ctx, &run, `SELECT * FROM runs WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, project string, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []*RunRecord
	var err error
	if project == "" {
		err = s.db.SelectContext(ctx, &runs, `SELECT * FROM runs ORDER BY started_at DESC LIMIT $1`, limit)
	} else {
		err = s.db.SelectContext(ctx, &runs,
			`SELECT * FROM runs WHERE project_name = $1 ORDER BY started_at DESC LIMIT $2`, project, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
