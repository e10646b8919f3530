package app

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	ics "github.com/arran4/golang-ical"
)

// exportFilename is the download name without extension
const exportFilename = "my_schedule"

// scheduleTimes returns the start and end of a schedule in loc.
// An end before the start is taken to be on the next day.
func scheduleTimes(s Schedule, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(DateLayout+" "+TimeLayout, s.Date+" "+s.Start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.ParseInLocation(DateLayout+" "+TimeLayout, s.Date+" "+s.End, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}

// BuildICS builds an iCalendar feed of the schedules.
// Schedules with unparseable dates or times are skipped.
func BuildICS(schedules []Schedule, loc *time.Location, now time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(ICSProductID)
	cal.SetXWRCalName("My Schedule")
	cal.SetXWRTimezone(loc.String())

	for _, s := range schedules {
		start, end, err := scheduleTimes(s, loc)
		if err != nil {
			continue
		}

		event := cal.AddEvent(s.ID + "@my-schedule")
		event.SetDtStampTime(now)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(s.Title)
		if s.Note != "" {
			event.SetDescription(s.Note)
		}
		if s.Category != "" {
			event.AddProperty(ics.ComponentPropertyCategories, s.Category)
		}
		if s.Completed {
			event.SetStatus(ics.ObjectStatusCancelled)
		}
	}
	return cal
}

// GenerateICS writes the schedules as an ICS download
func (s *Server) GenerateICS(w http.ResponseWriter, schedules []Schedule) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.ics", exportFilename))

	cal := BuildICS(schedules, s.cfg.Location(), s.now())
	if err := cal.SerializeTo(w); err != nil {
		s.log.Error().Err(err).Msg("error writing ICS export")
	}
}

// GenerateCSV writes the schedules as a CSV download
func (s *Server) GenerateCSV(w http.ResponseWriter, schedules []Schedule) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", exportFilename))

	cw := csv.NewWriter(w)
	rows := [][]string{{"date", "start", "end", "category", "title", "note", "completed"}}
	for _, sch := range schedules {
		rows = append(rows, []string{
			sch.Date, sch.Start, sch.End, sch.Category, sch.Title, sch.Note, strconv.FormatBool(sch.Completed),
		})
	}
	if err := cw.WriteAll(rows); err != nil {
		s.log.Error().Err(err).Msg("error writing CSV export")
	}
}

// GenerateJSON writes the schedules as a JSON download
func (s *Server) GenerateJSON(w http.ResponseWriter, schedules []Schedule) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.json", exportFilename))

	data := map[string]any{
		"generated_at": s.now().Format(time.RFC3339),
		"schedules":    schedules,
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("error encoding JSON export")
		http.Error(w, ErrFailedToGenerateJSON, http.StatusInternalServerError)
	}
}
