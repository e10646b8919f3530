package app

import (
	"time"
)

// MonthGrid returns the weeks of a month, Sunday first.
// Days outside the month are 0.
func MonthGrid(year int, month time.Month) [][]int {
	first := time.Date(year, month, 1, 12, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	var weeks [][]int
	week := make([]int, 7)
	col := int(first.Weekday()) // Sunday == 0
	for day := 1; day <= daysInMonth; day++ {
		week[col] = day
		col++
		if col == 7 {
			weeks = append(weeks, week)
			week = make([]int, 7)
			col = 0
		}
	}
	if col > 0 {
		weeks = append(weeks, week)
	}
	return weeks
}

// WeekdayName returns the timetable weekday name of t
func WeekdayName(t time.Time) string {
	// time.Weekday is Sunday-first, Weekdays is Monday-first
	return Weekdays[(int(t.Weekday())+6)%7]
}

// SchedulesByDay groups the schedules of a month by day of month, completed ones included
func SchedulesByDay(schedules []Schedule, year int, month time.Month) map[int][]Schedule {
	byDay := make(map[int][]Schedule)
	for _, s := range schedules {
		d, err := time.Parse(DateLayout, s.Date)
		if err != nil {
			continue
		}
		if d.Year() == year && d.Month() == month {
			byDay[d.Day()] = append(byDay[d.Day()], s)
		}
	}
	return byDay
}

// SchedulesOn returns the uncompleted schedules of the given date
func SchedulesOn(schedules []Schedule, date string) []Schedule {
	out := []Schedule{}
	for _, s := range schedules {
		if s.Date == date && !s.Completed {
			out = append(out, s)
		}
	}
	return out
}

// formatDateFromTime formats a time.Time as YYYY-MM-DD
func formatDateFromTime(t time.Time) string {
	return t.Format(DateLayout)
}

// validDate reports whether s is a YYYY-MM-DD date
func validDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// validTime reports whether s is an HH:MM time
func validTime(s string) bool {
	_, err := time.Parse(TimeLayout, s)
	return err == nil
}
