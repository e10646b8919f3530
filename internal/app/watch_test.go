package app

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_WatchReloadsExternalEdits(t *testing.T) {
	dir := t.TempDir()
	st, err := OpenFileStore(dir, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- st.Watch(ctx) }()

	edited := []byte(`[{"id":"ext","date":"2024-01-01","start":"09:00","end":"10:00","title":"edited by hand"}]`)

	// Rewrite on every tick until the watcher is up; the tick is longer than the debounce.
	require.Eventually(t, func() bool {
		if err := os.WriteFile(st.SchedulePath(), edited, 0644); err != nil {
			return false
		}
		list, _ := st.ListSchedules(context.Background())
		return len(list) == 1 && list[0].ID == "ext"
	}, 5*time.Second, 2*reloadDebounce+100*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestFileStore_IsDataFile(t *testing.T) {
	st := &FileStore{dir: "/data"}

	assert.True(t, st.isDataFile("/data/"+ScheduleFile))
	assert.True(t, st.isDataFile("/data/"+TimetableFile))
	assert.False(t, st.isDataFile("/data/"+ScheduleFile+TmpSuffix))
	assert.False(t, st.isDataFile("/data/"+ScheduleFile+BackupSuffix))
}
