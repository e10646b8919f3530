package app

// Schedule represents a single dated schedule entry
type Schedule struct {
	ID        string `json:"id"`
	Date      string `json:"date"`  // YYYY-MM-DD
	Start     string `json:"start"` // HH:MM
	End       string `json:"end"`   // HH:MM
	Category  string `json:"category"`
	Title     string `json:"title"`
	Note      string `json:"note"`
	Completed bool   `json:"completed"`
}

// Timetable maps a weekday name to its periods
type Timetable map[string][]string

// PeriodsPerDay is the number of timetable periods per weekday
const PeriodsPerDay = 6

// Weekdays lists the timetable weekdays, Monday first
var Weekdays = []string{"月", "火", "水", "木", "金", "土", "日"}

// Categories maps category names to their display colors
var Categories = map[string]string{
	"仕事":     "#ff9999",
	"勉強":     "#99ccff",
	"プライベート": "#99ff99",
	"その他":    "#cccccc",
}

// NewTimetable returns an empty timetable with every weekday present
func NewTimetable() Timetable {
	tt := make(Timetable, len(Weekdays))
	for _, day := range Weekdays {
		tt[day] = make([]string, PeriodsPerDay)
	}
	return tt
}

// Normalize returns a copy holding exactly PeriodsPerDay periods for every weekday.
// Unknown weekday keys are dropped.
func (tt Timetable) Normalize() Timetable {
	out := NewTimetable()
	for _, day := range Weekdays {
		copy(out[day], tt[day])
	}
	return out
}

// Day returns the periods of a weekday, or blank periods for an unknown day
func (tt Timetable) Day(weekday string) []string {
	if periods, ok := tt[weekday]; ok {
		return periods
	}
	return make([]string, PeriodsPerDay)
}

// Uncompleted returns the schedules that are not completed, keeping their order
func Uncompleted(schedules []Schedule) []Schedule {
	out := make([]Schedule, 0, len(schedules))
	for _, s := range schedules {
		if !s.Completed {
			out = append(out, s)
		}
	}
	return out
}
