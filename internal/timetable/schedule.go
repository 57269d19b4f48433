package timetable

import (
	"slices"
	"strings"
)

// Day is a teaching day. Sunday has no timetable.
type Day int

const (
	Monday Day = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// Days lists the grid columns in document order.
var Days = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// dayCodes are the labels the school uses on its pages.
var dayCodes = [...]string{"LUN", "MAR", "MER", "GIO", "VEN", "SAB"}

var englishDayCodes = [...]string{"MON", "TUE", "WED", "THU", "FRI", "SAT"}

func (d Day) String() string {
	if d < Monday || d > Saturday {
		return "?"
	}
	return dayCodes[d]
}

// ParseDay accepts the Italian or English three-letter day codes in any case.
func ParseDay(s string) (Day, bool) {
	code := strings.ToUpper(strings.TrimSpace(s))
	for _, d := range Days {
		if code == dayCodes[d] || code == englishDayCodes[d] {
			return d, true
		}
	}
	return 0, false
}

// Slot is the normalized content of one grid cell.
type Slot struct {
	Text     []string `json:"text"`
	Classes  []string `json:"classes"`
	Teachers []string `json:"teachers"`
	Rooms    []string `json:"rooms"`
}

// IsEmpty reports whether the slot carries nothing at all.
func (s Slot) IsEmpty() bool {
	return len(s.Text) == 0 && len(s.Classes) == 0 && len(s.Teachers) == 0 && len(s.Rooms) == 0
}

// Clone returns a deep copy of the slot.
func (s Slot) Clone() Slot {
	return Slot{
		Text:     slices.Clone(s.Text),
		Classes:  slices.Clone(s.Classes),
		Teachers: slices.Clone(s.Teachers),
		Rooms:    slices.Clone(s.Rooms),
	}
}

type slotKey struct {
	day    Day
	period int
}

// Schedule is one parsed timetable page. Periods are numbered from 1; Periods[i]
// is the start-time label of period i+1.
type Schedule struct {
	Periods []string
	grid    map[slotKey]Slot
}

func newSchedule() *Schedule {
	return &Schedule{grid: make(map[slotKey]Slot)}
}

// PeriodCount returns the number of periods parsed.
func (s *Schedule) PeriodCount() int {
	return len(s.Periods)
}

// StartTime returns the start-time label of a period.
func (s *Schedule) StartTime(period int) (string, bool) {
	if period < 1 || period > len(s.Periods) {
		return "", false
	}
	return s.Periods[period-1], true
}

// Slot returns the content of one grid cell. The second result is false when the
// cell lies outside the grid; an in-range empty cell returns an empty slot and true.
func (s *Schedule) Slot(day Day, period int) (Slot, bool) {
	slot, ok := s.grid[slotKey{day, period}]
	return slot, ok
}

func (s *Schedule) set(day Day, period int, slot Slot) {
	s.grid[slotKey{day, period}] = slot
}
