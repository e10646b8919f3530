package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// ServeIndex serves the schedule list page
func (s *Server) ServeIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(s.indexHTML); err != nil {
		s.log.Error().Err(err).Msg("error writing index HTML")
	}
}

// HandleHealth reports server status
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{
		"status":     "healthy",
		"version":    Version,
		"go_version": runtime.Version(),
		"uptime":     time.Since(s.startTime).Round(time.Second).String(),
		"storage":    s.cfg.Storage,
	})
}

// HandleCategories returns the category colors
func (s *Server) HandleCategories(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, Categories)
}

// HandleListSchedules returns the uncompleted schedules in stored order.
// This is the feed the schedule list page renders.
func (s *Server) HandleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.store.ListSchedules(r.Context())
	if err != nil {
		s.internalError(w, r, ErrInternalServer, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, Uncompleted(schedules))
}

// HandleAddSchedule adds a schedule from a JSON body or form fields
func (s *Server) HandleAddSchedule(w http.ResponseWriter, r *http.Request) {
	sch, err := decodeSchedule(r)
	if err != nil {
		switch {
		case errors.Is(err, errBadDate), errors.Is(err, errBadTime):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, ErrInvalidBody, http.StatusBadRequest)
		}
		return
	}

	created, err := s.store.AddSchedule(r.Context(), sch)
	if err != nil {
		s.internalError(w, r, ErrFailedToSave, err)
		return
	}

	s.log.Info().Str("id", created.ID).Str("date", created.Date).Msg("schedule added")
	s.writeJSON(w, r, http.StatusCreated, created)
}

// HandleDeleteSchedule deletes a schedule by id
func (s *Server) HandleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, ErrNotFound, http.StatusNotFound)
		return
	}
	if err := s.store.DeleteSchedule(r.Context(), id); err != nil {
		if errors.Is(err, ErrScheduleNotFound) {
			http.Error(w, ErrNotFound, http.StatusNotFound)
			return
		}
		s.internalError(w, r, ErrFailedToSave, err)
		return
	}
	s.log.Info().Str("id", id).Msg("schedule deleted")
	w.WriteHeader(http.StatusNoContent)
}

// HandleCompleteSchedule marks a schedule as completed
func (s *Server) HandleCompleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, ErrNotFound, http.StatusNotFound)
		return
	}
	if err := s.store.CompleteSchedule(r.Context(), id); err != nil {
		if errors.Is(err, ErrScheduleNotFound) {
			http.Error(w, ErrNotFound, http.StatusNotFound)
			return
		}
		s.internalError(w, r, ErrFailedToSave, err)
		return
	}
	s.log.Info().Str("id", id).Msg("schedule completed")
	s.writeStatusOK(w, r)
}

// HandleToday returns today's uncompleted schedules and today's timetable row
func (s *Server) HandleToday(w http.ResponseWriter, r *http.Request) {
	now := s.now().In(s.cfg.Location())
	today := formatDateFromTime(now)
	weekday := WeekdayName(now)

	schedules, err := s.store.ListSchedules(r.Context())
	if err != nil {
		s.internalError(w, r, ErrInternalServer, err)
		return
	}
	tt, err := s.store.Timetable(r.Context())
	if err != nil {
		s.internalError(w, r, ErrInternalServer, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"date":      today,
		"weekday":   weekday,
		"time":      now.Format(TimeLayout),
		"schedules": SchedulesOn(schedules, today),
		"timetable": tt.Day(weekday),
	})
}

// HandleCalendar returns the month grid and the schedules of the month
// Query params: year, month (optional, default to the current month)
func (s *Server) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	now := s.now().In(s.cfg.Location())
	year, month := now.Year(), now.Month()

	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			http.Error(w, ErrInvalidYear, http.StatusBadRequest)
			return
		}
		year = y
	}
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			http.Error(w, ErrInvalidMonth, http.StatusBadRequest)
			return
		}
		month = time.Month(m)
	}

	schedules, err := s.store.ListSchedules(r.Context())
	if err != nil {
		s.internalError(w, r, ErrInternalServer, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"year":             year,
		"month":            int(month),
		"month_name":       month.String(),
		"weeks":            MonthGrid(year, month),
		"schedules_by_day": SchedulesByDay(schedules, year, month),
		"categories":       Categories,
	})
}

// HandleGetTimetable returns the weekly timetable
func (s *Server) HandleGetTimetable(w http.ResponseWriter, r *http.Request) {
	tt, err := s.store.Timetable(r.Context())
	if err != nil {
		s.internalError(w, r, ErrInternalServer, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"weekdays":  Weekdays,
		"timetable": tt,
	})
}

// HandlePutTimetable replaces the weekly timetable
func (s *Server) HandlePutTimetable(w http.ResponseWriter, r *http.Request) {
	var tt Timetable
	if err := json.NewDecoder(r.Body).Decode(&tt); err != nil {
		http.Error(w, ErrInvalidBody, http.StatusBadRequest)
		return
	}
	if err := s.store.SaveTimetable(r.Context(), tt); err != nil {
		s.internalError(w, r, ErrFailedToSave, err)
		return
	}
	s.log.Info().Msg("timetable saved")
	s.writeStatusOK(w, r)
}

// HandleExport handles export downloads in ICS, CSV or JSON format.
// Completed schedules are included only with completed=true.
func (s *Server) HandleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	includeCompleted := r.URL.Query().Get("completed") == "true"

	schedules, err := s.store.ListSchedules(r.Context())
	if err != nil {
		s.internalError(w, r, ErrInternalServer, err)
		return
	}
	if !includeCompleted {
		schedules = Uncompleted(schedules)
	}
	SortSchedulesByDate(schedules)

	switch format {
	case "ics":
		s.GenerateICS(w, schedules)
	case "csv":
		s.GenerateCSV(w, schedules)
	case "json":
		s.GenerateJSON(w, schedules)
	default:
		http.Error(w, ErrInvalidFormat, http.StatusBadRequest)
	}
}
