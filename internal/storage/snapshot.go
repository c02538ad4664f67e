package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/autodoc/internal/errors"
	"github.com/rohankatakam/autodoc/internal/models"
)

// SnapshotFile is the name of the project summary snapshot in the output directory
const SnapshotFile = "project_summary.json"

// Checkpointer writes the project summary snapshot and mirrors the run into
// history. History is optional and its failures never fail a checkpoint.
type Checkpointer struct {
	dir     string
	history Store
	logger  *logrus.Logger
}

// NewCheckpointer writes snapshots into dir; history may be nil
func NewCheckpointer(dir string, history Store, logger *logrus.Logger) *Checkpointer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Checkpointer{dir: dir, history: history, logger: logger}
}

// Path returns the snapshot location
func (c *Checkpointer) Path() string {
	return filepath.Join(c.dir, SnapshotFile)
}

// Checkpoint replaces the snapshot atomically and records the run
func (c *Checkpointer) Checkpoint(ctx context.Context, summary *models.ProjectSummary) error {
	if err := WriteSnapshot(c.Path(), summary); err != nil {
		return err
	}
	if c.history != nil {
		if err := c.history.SaveRun(ctx, RecordFromSummary(summary, c.Path())); err != nil {
			c.logger.WithError(err).Warn("failed to record run history")
		}
	}
	return nil
}

// WriteSnapshot writes summary as indented JSON via a temp file and rename
func WriteSnapshot(path string, summary *models.ProjectSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return errors.InternalErrorf("encode snapshot: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.FileSystemError(err, "create snapshot directory")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return errors.FileSystemError(err, "create snapshot")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.FileSystemError(err, "write snapshot")
	}
	if err := tmp.Close(); err != nil {
		return errors.FileSystemError(err, "write snapshot")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.FileSystemError(err, "replace snapshot")
	}
	return nil
}

// LoadSnapshot reads a snapshot written by WriteSnapshot
func LoadSnapshot(path string) (*models.ProjectSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileSystemErrorf(err, "read snapshot %s", path)
	}
	var summary models.ProjectSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, errors.ParseErrorf(err, "decode snapshot %s", path)
	}
	if summary.ProjectName == "" {
		return nil, errors.ValidationErrorf("snapshot %s has no project name", path)
	}
	return &summary, nil
}
