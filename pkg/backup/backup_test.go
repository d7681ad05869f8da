package backup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/harrisonrobin/tasker/pkg/model"
	"github.com/harrisonrobin/tasker/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*store.Store, *Manager) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "tasks.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, NewManager(s, filepath.Join(dir, "tasks_backup.db"))
}

func add(t *testing.T, s *store.Store, title string) int64 {
	t.Helper()
	id, err := s.Add(store.NewTaskInput{
		Title:    title,
		Priority: model.PriorityHigh,
		Status:   model.StatusPending,
		Deadline: "10/10/30",
		Category: model.CategoryWork,
	})
	require.NoError(t, err)
	return id
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	s, m := setup(t)
	kept := add(t, s, "keep me")
	add(t, s, "and me")

	snap, err := m.Backup()
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Positive(t, snap.Size)

	atBackup, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	slot, err := os.ReadFile(snap.Path)
	require.NoError(t, err)
	require.Equal(t, atBackup, slot)

	require.NoError(t, s.Delete(kept))
	add(t, s, "added later")

	require.NoError(t, m.Restore(snap))

	restored, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, atBackup, restored, "restored store must be byte-identical to the snapshot")

	tasks, err := s.List()
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "keep me", tasks[0].Title)
}

func TestLatestReadsManifest(t *testing.T) {
	s, m := setup(t)

	_, err := m.Latest()
	assert.True(t, errors.Is(err, ErrNoSnapshot))

	add(t, s, "x")
	snap, err := m.Backup()
	require.NoError(t, err)

	latest, err := m.Latest()
	require.NoError(t, err)
	assert.Equal(t, snap.ID, latest.ID)
	assert.Equal(t, snap.SHA256, latest.SHA256)
	assert.True(t, snap.CreatedAt.Equal(latest.CreatedAt))
}

func TestRestoreRejectsTamperedSnapshot(t *testing.T) {
	s, m := setup(t)
	add(t, s, "x")
	snap, err := m.Backup()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(snap.Path, []byte("not a database"), 0600))

	err = m.Restore(snap)
	var se *model.StorageError
	require.True(t, errors.As(err, &se))

	tasks, err := s.List()
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestRestoreNil(t *testing.T) {
	_, m := setup(t)
	assert.ErrorIs(t, m.Restore(nil), ErrNoSnapshot)
}
