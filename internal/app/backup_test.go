package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestPruneBackups(t *testing.T) {
	dir := t.TempDir()
	stamps := []int64{900, 1000, 1100, 999}
	for _, ts := range stamps {
		for _, f := range []string{ScheduleFile, TimetableFile} {
			name := fmt.Sprintf("%d_%s%s", ts, f, BackupSuffix)
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("[]"), 0644))
		}
	}
	// Unrelated files stay untouched.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	require.NoError(t, PruneBackups(dir, 2))

	assert.Equal(t, []string{
		"1000_" + ScheduleFile + BackupSuffix,
		"1000_" + TimetableFile + BackupSuffix,
		"1100_" + ScheduleFile + BackupSuffix,
		"1100_" + TimetableFile + BackupSuffix,
		"notes.txt",
	}, listDir(t, dir))
}

func TestRunBackup_KeepsNewest(t *testing.T) {
	forEachStore(t, func(t *testing.T, st Store, dir string) {
		ctx := context.Background()
		backupDir := filepath.Join(dir, BackupDir)

		var paths []string
		for i := 0; i < 3; i++ {
			path, err := RunBackup(ctx, st, backupDir, 2)
			require.NoError(t, err)
			paths = append(paths, path)
		}

		assert.NoFileExists(t, paths[0])
		assert.FileExists(t, paths[1])
		assert.FileExists(t, paths[2])
	})
}

func TestRunBackup_KeepZeroKeepsAll(t *testing.T) {
	dir := t.TempDir()
	st, err := OpenFileStore(dir, zerolog.Nop())
	require.NoError(t, err)
	backupDir := filepath.Join(dir, BackupDir)

	for i := 0; i < 3; i++ {
		_, err := RunBackup(context.Background(), st, backupDir, 0)
		require.NoError(t, err)
	}
	// Two files per generation.
	assert.Len(t, listDir(t, backupDir), 6)
}

func TestNewBackupScheduler(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	st, err := OpenFileStore(cfg.DataDir, zerolog.Nop())
	require.NoError(t, err)

	cfg.Backup.Schedule = ""
	b, err := NewBackupScheduler(cfg, st, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, b, "empty schedule disables backups")

	cfg.Backup.Schedule = "not a schedule"
	_, err = NewBackupScheduler(cfg, st, zerolog.Nop())
	assert.Error(t, err)

	cfg.Backup.Schedule = "@every 1h"
	b, err = NewBackupScheduler(cfg, st, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, b)
	b.Start()
	b.Stop()

	// A run writes into the configured backup path.
	b.run()
	assert.NotEmpty(t, listDir(t, cfg.BackupPath()))
}
