package timetable

import (
	"fmt"
	"strconv"
	"strings"
)

const freeMarker = "libero / vuoto"

// FormatPeriod renders one period of one day: a header line followed by the rooms,
// teachers and classes of the slot, or the free marker when there is nothing to show.
func FormatPeriod(s *Schedule, day Day, period int) string {
	start, ok := s.StartTime(period)
	if !ok {
		start = "?"
	}
	header := fmt.Sprintf("%s - ora %d (inizio %s)", day, period, start)

	slot, _ := s.Slot(day, period)
	if slot.IsEmpty() {
		return header + "\n- " + freeMarker + " -"
	}

	lines := append([]string{header}, slotFields(slot)...)
	return strings.Join(lines, "\n")
}

// FormatDay renders every period of one day, one line each.
func FormatDay(s *Schedule, day Day) string {
	lines := []string{fmt.Sprintf("%s - orario giornaliero", day)}
	for i, start := range s.Periods {
		period := i + 1
		prefix := strconv.Itoa(period) + ". " + start + " - "

		slot, _ := s.Slot(day, period)
		if slot.IsEmpty() {
			lines = append(lines, prefix+freeMarker)
			continue
		}
		lines = append(lines, prefix+strings.Join(slotFields(slot), " | "))
	}
	return strings.Join(lines, "\n")
}

// slotFields renders the populated entity fields in display order.
func slotFields(slot Slot) []string {
	var fields []string
	if len(slot.Rooms) > 0 {
		fields = append(fields, "Aula: "+strings.Join(slot.Rooms, ", "))
	}
	if len(slot.Teachers) > 0 {
		fields = append(fields, "Prof: "+strings.Join(slot.Teachers, ", "))
	}
	if len(slot.Classes) > 0 {
		fields = append(fields, "Classe: "+strings.Join(slot.Classes, ", "))
	}
	return fields
}
