package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/autodoc/internal/models"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func sampleSummary(completed bool) *models.ProjectSummary {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := &models.ProjectSummary{
		RunID:           "run-1",
		ProjectName:     "demo",
		ProjectPath:     "/src/demo",
		FilesDiscovered: 3,
		StartedAt:       started,
		CodeFiles: []models.CodeFileSummary{
			{FileName: "a.py", FileLocation: "a.py", ProcessingStatus: models.StatusSuccess,
				CodeObjects: models.ObjectMap{models.CategoryFunctions: {
					{Name: "alpha", Type: models.TypeFunction, CodeLine: models.At(4)},
				}}},
			{FileName: "b.py", FileLocation: "b.py", ProcessingStatus: models.StatusEmpty},
			{FileName: "c.py", FileLocation: "c.py", ProcessingStatus: models.StatusErrorRead},
		},
		RagData: []models.RagData{{DocumentData: "def alpha(): pass"}},
	}
	if completed {
		done := started.Add(time.Minute)
		p.CompletedAt = &done
	}
	return p
}

func TestRecordFromSummary(t *testing.T) {
	rec := RecordFromSummary(sampleSummary(false), "/out/project_summary.json")
	assert.Equal(t, RunRunning, rec.Status)
	assert.Equal(t, 3, rec.FilesProcessed)
	assert.Equal(t, 2, rec.FilesSucceeded)
	assert.Equal(t, 1, rec.FilesFailed)
	assert.Equal(t, 1, rec.RagRecords)
	assert.Nil(t, rec.CompletedAt)

	rec = RecordFromSummary(sampleSummary(true), "")
	assert.Equal(t, RunCompleted, rec.Status)
	require.NotNil(t, rec.CompletedAt)
}

func TestSQLiteStoreRuns(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "history.db"), quietLogger())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveRun(ctx, RecordFromSummary(sampleSummary(false), "snap.json")))
	// a later checkpoint replaces the row
	require.NoError(t, store.SaveRun(ctx, RecordFromSummary(sampleSummary(true), "snap.json")))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, got.Status)
	assert.Equal(t, "demo", got.ProjectName)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(time.Date(2026, 3, 1, 10, 1, 0, 0, time.UTC)))

	other := RecordFromSummary(sampleSummary(false), "")
	other.ID = "run-2"
	other.ProjectName = "other"
	other.StartedAt = other.StartedAt.Add(time.Hour)
	require.NoError(t, store.SaveRun(ctx, other))

	all, err := store.ListRuns(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "run-2", all[0].ID)

	demo, err := store.ListRuns(ctx, "demo", 10)
	require.NoError(t, err)
	require.Len(t, demo, 1)

	_, err = store.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

type failingHistory struct{ saves int }

func (f *failingHistory) SaveRun(context.Context, *RunRecord) error {
	f.saves++
	return assert.AnError
}
func (f *failingHistory) GetRun(context.Context, string) (*RunRecord, error) { return nil, ErrNotFound }
func (f *failingHistory) ListRuns(context.Context, string, int) ([]*RunRecord, error) {
	return nil, nil
}
func (f *failingHistory) Close() error { return nil }

func TestCheckpointerWritesSnapshotAndToleratesHistory(t *testing.T) {
	dir := t.TempDir()
	hist := &failingHistory{}
	cp := NewCheckpointer(dir, hist, quietLogger())

	require.NoError(t, cp.Checkpoint(context.Background(), sampleSummary(true)))
	assert.Equal(t, 1, hist.saves)

	loaded, err := LoadSnapshot(cp.Path())
	require.NoError(t, err)
	assert.Equal(t, "demo", loaded.ProjectName)
	require.Len(t, loaded.CodeFiles, 3)
	fn := loaded.CodeFiles[0].CodeObjects[models.CategoryFunctions][0]
	line, ok := fn.CodeLine.Line()
	require.True(t, ok)
	assert.Equal(t, 4, line)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestLoadSnapshotErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadSnapshot(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = LoadSnapshot(bad)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"codeFiles":[]}`), 0644))
	_, err = LoadSnapshot(empty)
	assert.Error(t, err)
}
