package app

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"sort"
	"strings"
)

// writeJSON encodes v as the response body and logs any error
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("error encoding response")
	}
}

// writeStatusOK writes {"status":"ok"}
func (s *Server) writeStatusOK(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// internalError logs err and answers 500 with msg
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.log.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg(msg)
	http.Error(w, msg, http.StatusInternalServerError)
}

// SortSchedulesByDate sorts schedules by date then start time, keeping insertion order for ties
func SortSchedulesByDate(schedules []Schedule) {
	sort.SliceStable(schedules, func(i, j int) bool {
		if schedules[i].Date != schedules[j].Date {
			return schedules[i].Date < schedules[j].Date
		}
		return schedules[i].Start < schedules[j].Start
	})
}

var (
	errBadDate = errors.New(ErrInvalidDateFormat)
	errBadTime = errors.New(ErrInvalidTimeFormat)
)

// decodeSchedule reads a new schedule from a JSON body or from form fields
func decodeSchedule(r *http.Request) (Schedule, error) {
	var sch Schedule
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&sch); err != nil {
			return Schedule{}, err
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return Schedule{}, err
		}
		sch = Schedule{
			Date:     r.PostFormValue("date"),
			Start:    r.PostFormValue("start"),
			End:      r.PostFormValue("end"),
			Category: r.PostFormValue("category"),
			Title:    r.PostFormValue("title"),
			Note:     r.PostFormValue("note"),
		}
	}

	sch.ID = ""
	sch.Date = strings.TrimSpace(sch.Date)
	sch.Start = strings.TrimSpace(sch.Start)
	sch.End = strings.TrimSpace(sch.End)

	if !validDate(sch.Date) {
		return Schedule{}, errBadDate
	}
	if !validTime(sch.Start) || !validTime(sch.End) {
		return Schedule{}, errBadTime
	}
	return sch, nil
}
