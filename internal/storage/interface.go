package storage

import (
	"context"
	"errors"
	"time"

	"github.com/rohankatakam/autodoc/internal/models"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")
)

// Run statuses recorded in history
const (
	RunRunning   = "running"
	RunCompleted = "completed"
)

// RunRecord is one row of run history
type RunRecord struct {
	ID              string     `db:"id"`
	ProjectName     string     `db:"project_name"`
	ProjectPath     string     `db:"project_path"`
	Status          string     `db:"status"`
	FilesDiscovered int        `db:"files_discovered"`
	FilesProcessed  int        `db:"files_processed"`
	FilesSucceeded  int        `db:"files_succeeded"`
	FilesFailed     int        `db:"files_failed"`
	RagRecords      int        `db:"rag_records"`
	Diagrams        int        `db:"diagrams"`
	SnapshotPath    string     `db:"snapshot_path"`
	StartedAt       time.Time  `db:"started_at"`
	CompletedAt     *time.Time `db:"completed_at"`
}

// Store defines the run-history interface
type Store interface {
	// SaveRun inserts or replaces a run by ID
	SaveRun(ctx context.Context, run *RunRecord) error
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	// ListRuns returns the newest runs first; an empty project lists all
	ListRuns(ctx context.Context, project string, limit int) ([]*RunRecord, error)

	Close() error
}

// RecordFromSummary derives a history row from the current project summary
func RecordFromSummary(p *models.ProjectSummary, snapshotPath string) *RunRecord {
	rec := &RunRecord{
		ID:              p.RunID,
		ProjectName:     p.ProjectName,
		ProjectPath:     p.ProjectPath,
		Status:          RunRunning,
		FilesDiscovered: p.FilesDiscovered,
		FilesProcessed:  len(p.CodeFiles),
		RagRecords:      len(p.RagData),
		Diagrams:        len(p.Diagrams),
		SnapshotPath:    snapshotPath,
		StartedAt:       p.StartedAt,
		CompletedAt:     p.CompletedAt,
	}
	for status, n := range p.StatusCounts() {
		switch status {
		case models.StatusSuccess, models.StatusEmpty:
			rec.FilesSucceeded += n
		default:
			rec.FilesFailed += n
		}
	}
	if p.CompletedAt != nil {
		rec.Status = RunCompleted
	}
	return rec
}
