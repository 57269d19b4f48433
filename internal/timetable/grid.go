package timetable

import (
	"sort"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"orario/internal/core"
)

// carry is the pending rowspan of one day column.
type carry struct {
	remaining int
	slot      Slot
}

// gridState is threaded through the rows of a timetable table.
type gridState struct {
	period int
	days   [len(dayCodes)]carry
}

// ParseSchedule converts the timetable table of a class, teacher or room page into a
// Schedule. The table is the first one with border="2", or else the first table.
//
// The first row is a header. Every following row whose first cell has a label is a
// period; its remaining cells are assigned left to right to the days that are not
// still covered by a rowspan from an earlier row.
func ParseSchedule(doc *goquery.Document) (*Schedule, error) {
	var src string
	if doc != nil && doc.Url != nil {
		src = doc.Url.String()
	}
	if doc == nil || doc.Selection == nil {
		return nil, core.NewScheduleNotFoundError(src)
	}

	table := doc.Find(`table[border="2"]`).First()
	if table.Length() == 0 {
		table = doc.Find("table").First()
	}
	if table.Length() == 0 {
		return nil, core.NewScheduleNotFoundError(src)
	}

	rows := table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Closest("table").IsSelection(table)
	})

	schedule := newSchedule()
	var state gridState
	rows.Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}
		state = parseRow(state, tr.ChildrenFiltered("td"), schedule)
	})

	return schedule, nil
}

// parseRow consumes one table row and returns the state for the next one.
// Rows without cells or without a period label leave the state untouched.
func parseRow(state gridState, cells *goquery.Selection, schedule *Schedule) gridState {
	if cells.Length() == 0 {
		return state
	}
	label := Clean(textOf(cells.First()))
	if label == "" {
		return state
	}

	state.period++
	schedule.Periods = append(schedule.Periods, label)

	dayCells := cells.Slice(1, cells.Length())
	next := 0
	for _, day := range Days {
		pending := state.days[day]
		if pending.remaining > 0 {
			schedule.set(day, state.period, pending.slot.Clone())
			pending.remaining--
			state.days[day] = pending
			continue
		}

		if next >= dayCells.Length() {
			schedule.set(day, state.period, Slot{})
			state.days[day] = carry{}
			continue
		}
		cell := dayCells.Eq(next)
		next++

		slot := decodeCell(cell)
		schedule.set(day, state.period, slot)

		if span := rowspan(cell); span > 1 {
			state.days[day] = carry{remaining: span - 1, slot: slot}
		} else {
			state.days[day] = carry{}
		}
	}

	return state
}

// rowspan returns the declared rowspan of a cell, or 1 when it is absent or not a number.
func rowspan(cell *goquery.Selection) int {
	v, ok := cell.Attr("rowspan")
	if !ok || v == "" {
		return 1
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return 1
		}
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 1
	}
	return n
}

// decodeCell reads the paragraphs and entity links of one grid cell.
func decodeCell(cell *goquery.Selection) Slot {
	var slot Slot
	cell.Find("p").Each(func(_ int, p *goquery.Selection) {
		t := Clean(textOf(p))
		if t == "" || t == nbsp {
			return
		}
		slot.Text = append(slot.Text, t)
	})

	var found [len(pathMarkers)]map[string]struct{}
	cell.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		c, ok := Classify(href)
		if !ok {
			return
		}
		name := Normalize(textOf(a))
		if name == "" {
			return
		}
		if found[c] == nil {
			found[c] = make(map[string]struct{})
		}
		found[c][name] = struct{}{}
	})

	slot.Classes = sortedSet(found[CategoryClass])
	slot.Teachers = sortedSet(found[CategoryTeacher])
	slot.Rooms = sortedSet(found[CategoryRoom])
	return slot
}

func sortedSet(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
