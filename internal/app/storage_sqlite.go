package app

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var sqliteSchema string

// SQLiteStore keeps schedules and the timetable in a SQLite database
type SQLiteStore struct {
	db   *sql.DB
	path string
	log  zerolog.Logger
}

// OpenSQLiteStore opens (or creates) the database at path and applies the schema
func OpenSQLiteStore(path string, log zerolog.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA busy_timeout = 5000")

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &SQLiteStore{
		db:   db,
		path: path,
		log:  log.With().Str("component", "sqlitestore").Logger(),
	}, nil
}

// ListSchedules returns all schedules in insertion order
func (s *SQLiteStore) ListSchedules(ctx context.Context) ([]Schedule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date, start, end_time, category, title, note, completed FROM schedules ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	out := []Schedule{}
	for rows.Next() {
		var sch Schedule
		var completed int
		if err := rows.Scan(&sch.ID, &sch.Date, &sch.Start, &sch.End, &sch.Category, &sch.Title, &sch.Note, &completed); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		sch.Completed = completed != 0
		out = append(out, sch)
	}
	return out, rows.Err()
}

// AddSchedule inserts a schedule, assigning a new id when it has none
func (s *SQLiteStore) AddSchedule(ctx context.Context, sch Schedule) (Schedule, error) {
	if sch.ID == "" {
		sch.ID = uuid.NewString()
	}
	sch.Completed = false

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schedules (id, date, start, end_time, category, title, note, completed) VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		sch.ID, sch.Date, sch.Start, sch.End, sch.Category, sch.Title, sch.Note)
	if err != nil {
		return Schedule{}, fmt.Errorf("insert schedule: %w", err)
	}
	return sch, nil
}

// DeleteSchedule removes the schedule with the given id
func (s *SQLiteStore) DeleteSchedule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return requireAffected(res)
}

// CompleteSchedule marks the schedule with the given id as completed
func (s *SQLiteStore) CompleteSchedule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE schedules SET completed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("complete schedule: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// Timetable returns the weekly timetable
func (s *SQLiteStore) Timetable(ctx context.Context) (Timetable, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT weekday, period, subject FROM timetable`)
	if err != nil {
		return nil, fmt.Errorf("load timetable: %w", err)
	}
	defer rows.Close()

	tt := NewTimetable()
	for rows.Next() {
		var weekday, subject string
		var period int
		if err := rows.Scan(&weekday, &period, &subject); err != nil {
			return nil, fmt.Errorf("scan timetable: %w", err)
		}
		if periods, ok := tt[weekday]; ok && period >= 0 && period < PeriodsPerDay {
			periods[period] = subject
		}
	}
	return tt, rows.Err()
}

// SaveTimetable replaces the weekly timetable in one transaction
func (s *SQLiteStore) SaveTimetable(ctx context.Context, tt Timetable) error {
	tt = tt.Normalize()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM timetable`); err != nil {
		return fmt.Errorf("clear timetable: %w", err)
	}
	for _, day := range Weekdays {
		for i, subject := range tt[day] {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO timetable (weekday, period, subject) VALUES (?, ?, ?)`, day, i, subject); err != nil {
				return fmt.Errorf("save timetable: %w", err)
			}
		}
	}
	return tx.Commit()
}

// Backup writes a consistent copy of the database into dir
func (s *SQLiteStore) Backup(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	target := filepath.Join(dir, fmt.Sprintf("%d_%s%s", time.Now().UnixNano(), SQLiteFile, BackupSuffix))
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, target); err != nil {
		return "", fmt.Errorf("backup database: %w", err)
	}
	s.log.Info().Str("db", s.path).Str("path", target).Msg("backup created")
	return target, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
