package timetable

import "time"

// periodBounds are the half-open local-time intervals of the teaching periods,
// in minutes after midnight.
var periodBounds = [...]struct{ start, end int }{
	{7 * 60, 8*60 + 50},
	{8*60 + 50, 9*60 + 45},
	{9*60 + 45, 10*60 + 40},
	{10*60 + 40, 11*60 + 35},
	{11*60 + 35, 12*60 + 30},
	{12*60 + 30, 13*60 + 25},
}

// LessonHours describes the span covered by periodBounds, for user messages.
const LessonHours = "07:00-13:25"

// DayOf maps t to its teaching day. It returns false on Sunday.
func DayOf(t time.Time) (Day, bool) {
	switch wd := t.Weekday(); wd {
	case time.Sunday:
		return 0, false
	default:
		return Day(wd - time.Monday), true
	}
}

// PeriodAt maps the wall-clock time of t to a period number. It returns false
// outside lesson hours. Pass t in the school's location.
func PeriodAt(t time.Time) (int, bool) {
	minute := t.Hour()*60 + t.Minute()
	for i, b := range periodBounds {
		if minute >= b.start && minute < b.end {
			return i + 1, true
		}
	}
	return 0, false
}
