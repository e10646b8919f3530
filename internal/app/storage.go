package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrScheduleNotFound is returned when no schedule has the requested id
var ErrScheduleNotFound = errors.New("schedule not found")

// Store persists schedules and the weekly timetable
type Store interface {
	ListSchedules(ctx context.Context) ([]Schedule, error)
	AddSchedule(ctx context.Context, s Schedule) (Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
	CompleteSchedule(ctx context.Context, id string) error
	Timetable(ctx context.Context) (Timetable, error)
	SaveTimetable(ctx context.Context, tt Timetable) error
	// Backup writes a timestamped copy of the data into dir and returns its path
	Backup(ctx context.Context, dir string) (string, error)
	Close() error
}

// OpenStore opens the storage backend selected by cfg
func OpenStore(cfg Config, log zerolog.Logger) (Store, error) {
	switch cfg.Storage {
	case StorageSQLite:
		return OpenSQLiteStore(filepath.Join(cfg.DataDir, SQLiteFile), log)
	case StorageJSON, "":
		return OpenFileStore(cfg.DataDir, log)
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}

// FileStore keeps schedules and the timetable in two JSON files inside a directory
type FileStore struct {
	dir string
	log zerolog.Logger

	mu        sync.RWMutex
	schedules []Schedule
	timetable Timetable
	// last bytes this store read or wrote per data file
	known map[string][]byte
}

// OpenFileStore loads the data files from dir, creating dir if needed.
// Missing files mean an empty schedule list and a blank timetable.
func OpenFileStore(dir string, log zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	s := &FileStore{
		dir:   dir,
		log:   log.With().Str("component", "filestore").Logger(),
		known: make(map[string][]byte),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// SchedulePath returns the path of the schedule file
func (s *FileStore) SchedulePath() string { return filepath.Join(s.dir, ScheduleFile) }

// TimetablePath returns the path of the timetable file
func (s *FileStore) TimetablePath() string { return filepath.Join(s.dir, TimetableFile) }

// Reload re-reads both data files from disk. Files whose content is what this
// store last wrote are left alone. Schedules without an id get one and the
// schedule file is rewritten.
func (s *FileStore) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scheduleData, err := readIfExists(s.SchedulePath())
	if err != nil {
		return fmt.Errorf("failed to load schedules: %w", err)
	}
	timetableData, err := readIfExists(s.TimetablePath())
	if err != nil {
		return fmt.Errorf("failed to load timetable: %w", err)
	}

	scheduleChanged := s.changed(s.SchedulePath(), scheduleData)
	timetableChanged := s.changed(s.TimetablePath(), timetableData)
	if !scheduleChanged && !timetableChanged {
		return nil
	}

	schedules := s.schedules
	if scheduleChanged {
		schedules = []Schedule{}
		if scheduleData != nil {
			if err := json.Unmarshal(scheduleData, &schedules); err != nil {
				return fmt.Errorf("failed to load schedules: %w", err)
			}
			if schedules == nil {
				schedules = []Schedule{}
			}
		}
	}

	tt := s.timetable
	if timetableChanged {
		tt = NewTimetable()
		if timetableData != nil {
			var raw Timetable
			if err := json.Unmarshal(timetableData, &raw); err != nil {
				return fmt.Errorf("failed to load timetable: %w", err)
			}
			if raw != nil {
				tt = raw.Normalize()
			}
		}
	}

	if scheduleChanged {
		if n := assignMissingIDs(schedules); n > 0 {
			if err := s.save(s.SchedulePath(), schedules); err != nil {
				return fmt.Errorf("failed to store assigned ids: %w", err)
			}
			s.log.Info().Int("count", n).Msg("assigned ids to schedules without one")
		} else {
			s.known[s.SchedulePath()] = scheduleData
		}
	}
	if timetableChanged {
		s.known[s.TimetablePath()] = timetableData
	}

	s.schedules = schedules
	s.timetable = tt
	return nil
}

// changed reports whether data differs from what the store last saw at path.
// Callers hold s.mu.
func (s *FileStore) changed(path string, data []byte) bool {
	last, ok := s.known[path]
	if !ok {
		return true
	}
	return (data == nil) != (last == nil) || !bytes.Equal(data, last)
}

// save writes v to path and remembers the written content. Callers hold s.mu.
func (s *FileStore) save(path string, v any) error {
	data, err := saveJSON(path, v)
	if err != nil {
		return err
	}
	s.known[path] = data
	return nil
}

// assignMissingIDs gives every schedule without an id a new one and returns how many it assigned
func assignMissingIDs(schedules []Schedule) int {
	n := 0
	for i := range schedules {
		if schedules[i].ID == "" {
			schedules[i].ID = uuid.NewString()
			n++
		}
	}
	return n
}

// ListSchedules returns all schedules in insertion order
func (s *FileStore) ListSchedules(ctx context.Context) ([]Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Schedule, len(s.schedules))
	copy(out, s.schedules)
	return out, nil
}

// AddSchedule appends a schedule, assigning a new id when it has none
func (s *FileStore) AddSchedule(ctx context.Context, sch Schedule) (Schedule, error) {
	if sch.ID == "" {
		sch.ID = uuid.NewString()
	}
	sch.Completed = false

	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(append([]Schedule(nil), s.schedules...), sch)
	if err := s.save(s.SchedulePath(), next); err != nil {
		return Schedule{}, err
	}
	s.schedules = next
	return sch, nil
}

// DeleteSchedule removes the schedule with the given id
func (s *FileStore) DeleteSchedule(ctx context.Context, id string) error {
	if id == "" {
		return ErrScheduleNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]Schedule, 0, len(s.schedules))
	for _, sch := range s.schedules {
		if sch.ID != id {
			next = append(next, sch)
		}
	}
	if len(next) == len(s.schedules) {
		return ErrScheduleNotFound
	}
	if err := s.save(s.SchedulePath(), next); err != nil {
		return err
	}
	s.schedules = next
	return nil
}

// CompleteSchedule marks the schedule with the given id as completed
func (s *FileStore) CompleteSchedule(ctx context.Context, id string) error {
	if id == "" {
		return ErrScheduleNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append([]Schedule(nil), s.schedules...)
	found := false
	for i := range next {
		if next[i].ID == id {
			next[i].Completed = true
			found = true
			break
		}
	}
	if !found {
		return ErrScheduleNotFound
	}
	if err := s.save(s.SchedulePath(), next); err != nil {
		return err
	}
	s.schedules = next
	return nil
}

// Timetable returns a copy of the weekly timetable
func (s *FileStore) Timetable(ctx context.Context) (Timetable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timetable.Normalize(), nil
}

// SaveTimetable replaces the weekly timetable
func (s *FileStore) SaveTimetable(ctx context.Context, tt Timetable) error {
	tt = tt.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(s.TimetablePath(), tt); err != nil {
		return err
	}
	s.timetable = tt
	return nil
}

// Backup copies both data files into dir with a shared timestamp prefix.
// The returned path is the schedule backup.
func (s *FileStore) Backup(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	timestamp := time.Now().UnixNano()
	schedulePath := filepath.Join(dir, fmt.Sprintf("%d_%s%s", timestamp, ScheduleFile, BackupSuffix))
	if err := writeJSONFile(schedulePath, s.schedules); err != nil {
		return "", fmt.Errorf("failed to back up schedules: %w", err)
	}
	timetablePath := filepath.Join(dir, fmt.Sprintf("%d_%s%s", timestamp, TimetableFile, BackupSuffix))
	if err := writeJSONFile(timetablePath, s.timetable); err != nil {
		return "", fmt.Errorf("failed to back up timetable: %w", err)
	}

	s.log.Info().Str("path", schedulePath).Msg("backup created")
	return schedulePath, nil
}

// Close is a no-op for the file store
func (s *FileStore) Close() error { return nil }

// readIfExists returns the content of path, or nil when it does not exist
func readIfExists(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// saveJSON writes v to path via a temp file, keeping the previous file as a backup.
// It returns the bytes written.
func saveJSON(path string, v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}

	tmpFile := path + TmpSuffix
	if err := os.WriteFile(tmpFile, data, FilePermissions); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err == nil {
		if err := copyFile(path, path+BackupSuffix); err != nil {
			return nil, fmt.Errorf("failed to create backup: %w", err)
		}
	}

	if err := os.Rename(tmpFile, path); err != nil {
		return nil, err
	}
	return data, nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, FilePermissions)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, FilePermissions)
}
