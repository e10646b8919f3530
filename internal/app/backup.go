package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// backupTimeout bounds a single scheduled backup run
const backupTimeout = time.Minute

// RunBackup writes one backup of st into dir and prunes dir to the newest keep backups
// (keep == 0 keeps everything).
func RunBackup(ctx context.Context, st Store, dir string, keep int) (string, error) {
	path, err := st.Backup(ctx, dir)
	if err != nil {
		return "", err
	}
	if keep > 0 {
		if err := PruneBackups(dir, keep); err != nil {
			return path, fmt.Errorf("failed to prune backups: %w", err)
		}
	}
	return path, nil
}

// PruneBackups removes all but the newest keep backup generations in dir.
// Files of one generation share the timestamp prefix before the first underscore.
func PruneBackups(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	generations := make(map[string][]string)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, BackupSuffix) {
			continue
		}
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		generations[prefix] = append(generations[prefix], name)
	}

	stamps := make([]string, 0, len(generations))
	for stamp := range generations {
		stamps = append(stamps, stamp)
	}
	// Newest first.
	sort.Slice(stamps, func(i, j int) bool {
		if len(stamps[i]) != len(stamps[j]) {
			return len(stamps[i]) > len(stamps[j])
		}
		return stamps[i] > stamps[j]
	})

	for i, stamp := range stamps {
		if i < keep {
			continue
		}
		for _, name := range generations[stamp] {
			if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}
	return nil
}

// BackupScheduler runs backups on a cron schedule
type BackupScheduler struct {
	cron  *cron.Cron
	store Store
	dir   string
	keep  int
	log   zerolog.Logger
}

// NewBackupScheduler registers the backup job. An empty schedule returns nil (backups disabled).
func NewBackupScheduler(cfg Config, st Store, log zerolog.Logger) (*BackupScheduler, error) {
	if cfg.Backup.Schedule == "" {
		return nil, nil
	}
	b := &BackupScheduler{
		cron:  cron.New(cron.WithLocation(cfg.Location())),
		store: st,
		dir:   cfg.BackupPath(),
		keep:  cfg.Backup.Keep,
		log:   log.With().Str("component", "backup").Logger(),
	}
	if _, err := b.cron.AddFunc(cfg.Backup.Schedule, b.run); err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", cfg.Backup.Schedule, err)
	}
	return b, nil
}

func (b *BackupScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	path, err := RunBackup(ctx, b.store, b.dir, b.keep)
	if err != nil {
		b.log.Error().Err(err).Str("dir", b.dir).Msg("scheduled backup failed")
		return
	}
	b.log.Info().Str("path", path).Msg("scheduled backup done")
}

// Start begins running scheduled backups in the background
func (b *BackupScheduler) Start() {
	b.cron.Start()
	for _, e := range b.cron.Entries() {
		b.log.Info().Time("next", e.Next).Str("dir", b.dir).Msg("backups scheduled")
	}
}

// Stop stops the scheduler and waits for a running backup to finish
func (b *BackupScheduler) Stop() {
	<-b.cron.Stop().Done()
}
