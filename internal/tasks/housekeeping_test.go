package tasks

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadTimestamp(t *testing.T) {
	ts, ok := uploadTimestamp("2f1c9f6e-8a1b-4c3d-9e2f-aaaa0000bbbb_1714000000.mp4")
	require.True(t, ok)
	assert.Equal(t, int64(1714000000), ts)

	for _, name := range []string{
		"readme.txt",
		"noseparator.mp4",
		"name_notanumber.mp4",
		"name_-5.mp4",
		"name_0.mp4",
	} {
		_, ok := uploadTimestamp(name)
		assert.False(t, ok, name)
	}
}

func TestSweepOnceRemovesOnlyExpiredUploads(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	old := fmt.Sprintf("%s_%d.mp4", uuid.NewString(), now.Add(-48*time.Hour).Unix())
	fresh := fmt.Sprintf("%s_%d.mp4", uuid.NewString(), now.Add(-time.Hour).Unix())
	unrelated := "notes.txt"
	for _, name := range []string{old, fresh, unrelated} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	removed, err := sweepOnce(dir, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, filepath.Join(dir, old))
	assert.FileExists(t, filepath.Join(dir, fresh))
	assert.FileExists(t, filepath.Join(dir, unrelated), "files without the upload name shape are left alone")
}

func TestSweepOnceMissingDirIsNoop(t *testing.T) {
	removed, err := sweepOnce(filepath.Join(t.TempDir(), "does-not-exist"), time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
