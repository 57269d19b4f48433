package timetable

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orario/internal/core"
)

// row renders a period row: the label cell followed by one cell per entry.
func row(label string, cells ...string) string {
	var b strings.Builder
	b.WriteString("<tr><td>" + label + "</td>")
	for _, c := range cells {
		b.WriteString(c)
	}
	b.WriteString("</tr>\n")
	return b.String()
}

func cell(text string) string {
	return "<td><p>" + text + "</p></td>"
}

func spanCell(span int, text string) string {
	return fmt.Sprintf(`<td rowspan="%d"><p>%s</p></td>`, span, text)
}

func page(rows ...string) string {
	return `<html><body><table border="2">
<tr><td></td><td>LUN</td><td>MAR</td><td>MER</td><td>GIO</td><td>VEN</td><td>SAB</td></tr>
` + strings.Join(rows, "") + `</table></body></html>`
}

func parse(t *testing.T, markup string) *Schedule {
	t.Helper()
	s, err := ParseSchedule(mustDoc(t, "https://school.example/Classi/4F.html", markup))
	require.NoError(t, err)
	return s
}

func text(t *testing.T, s *Schedule, day Day, period int) string {
	t.Helper()
	slot, ok := s.Slot(day, period)
	require.True(t, ok, "slot %s/%d missing", day, period)
	return strings.Join(slot.Text, " ")
}

func TestParseSchedule_NoSpans(t *testing.T) {
	s := parse(t, page(
		row("08:00", cell("A1"), cell("B1"), cell("C1"), cell("D1"), cell("E1"), cell("F1")),
		row("09:00", cell("A2"), cell("B2"), cell("C2"), cell("D2"), cell("E2"), cell("F2")),
	))

	assert.Equal(t, []string{"08:00", "09:00"}, s.Periods)
	for i, day := range Days {
		col := string(rune('A' + i))
		assert.Equal(t, col+"1", text(t, s, day, 1))
		assert.Equal(t, col+"2", text(t, s, day, 2))
	}
}

func TestParseSchedule_RowspanCarriesForward(t *testing.T) {
	s := parse(t, page(
		row("08:00", spanCell(3, "MATEMATICA"), cell("B1"), cell("C1"), cell("D1"), cell("E1"), cell("F1")),
		row("09:00", cell("B2"), cell("C2"), cell("D2"), cell("E2"), cell("F2")),
		row("10:00", cell("B3"), cell("C3"), cell("D3"), cell("E3"), cell("F3")),
		row("11:00", cell("A4"), cell("B4"), cell("C4"), cell("D4"), cell("E4"), cell("F4")),
	))

	first, _ := s.Slot(Monday, 1)
	second, _ := s.Slot(Monday, 2)
	third, _ := s.Slot(Monday, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
	assert.Equal(t, []string{"MATEMATICA"}, first.Text)
	assert.Equal(t, "A4", text(t, s, Monday, 4))

	// the other days keep their own cells
	assert.Equal(t, "B2", text(t, s, Tuesday, 2))
	assert.Equal(t, "F3", text(t, s, Saturday, 3))
}

func TestParseSchedule_CarriedSlotIsACopy(t *testing.T) {
	s := parse(t, page(
		row("08:00", spanCell(2, "X"), cell("B1"), cell("C1"), cell("D1"), cell("E1"), cell("F1")),
		row("09:00", cell("B2"), cell("C2"), cell("D2"), cell("E2"), cell("F2")),
	))

	first, _ := s.Slot(Monday, 1)
	first.Text[0] = "CHANGED"

	second, _ := s.Slot(Monday, 2)
	assert.Equal(t, []string{"X"}, second.Text)
}

func TestParseSchedule_IndependentSpansPerDay(t *testing.T) {
	s := parse(t, page(
		row("08:00", cell("A1"), spanCell(2, "B"), cell("C1"), spanCell(3, "D"), cell("E1"), cell("F1")),
		row("09:00", cell("A2"), cell("C2"), cell("E2"), cell("F2")),
		row("10:00", cell("A3"), cell("B3"), cell("C3"), cell("E3"), cell("F3")),
	))

	assert.Equal(t, "B", text(t, s, Tuesday, 2))
	assert.Equal(t, "B3", text(t, s, Tuesday, 3))
	assert.Equal(t, "C2", text(t, s, Wednesday, 2))
	assert.Equal(t, "D", text(t, s, Thursday, 3))
	assert.Equal(t, "E2", text(t, s, Friday, 2))
	assert.Equal(t, "F3", text(t, s, Saturday, 3))
}

func TestParseSchedule_MissingCellsAreEmpty(t *testing.T) {
	s := parse(t, page(
		row("08:00", cell("A1"), cell("B1")),
	))

	assert.Equal(t, "B1", text(t, s, Tuesday, 1))
	slot, ok := s.Slot(Saturday, 1)
	require.True(t, ok)
	assert.True(t, slot.IsEmpty())
}

func TestParseSchedule_SkipsBlankAndUnlabelledRows(t *testing.T) {
	s := parse(t, page(
		"<tr></tr>\n",
		row("08:00", cell("A1")),
		row("&nbsp;", cell("ignored")),
		row("  ", cell("ignored")),
		row("09:00", cell("A2")),
	))

	assert.Equal(t, []string{"08:00", "09:00"}, s.Periods)
	assert.Equal(t, "A2", text(t, s, Monday, 2))
	_, ok := s.Slot(Monday, 3)
	assert.False(t, ok)
}

func TestParseSchedule_BadRowspanDefaultsToOne(t *testing.T) {
	s := parse(t, page(
		row("08:00", `<td rowspan="abc"><p>A1</p></td>`, `<td rowspan=" 2"><p>B1</p></td>`),
		row("09:00", cell("A2"), cell("B2")),
	))

	assert.Equal(t, "A2", text(t, s, Monday, 2))
	assert.Equal(t, "B2", text(t, s, Tuesday, 2))
}

func TestParseSchedule_IgnoresNestedTables(t *testing.T) {
	s := parse(t, page(
		row("08:00", `<td><p>A1</p><table><tr><td>inner</td><td>x</td></tr></table></td>`, cell("B1")),
		row("09:00", cell("A2")),
	))

	assert.Equal(t, []string{"08:00", "09:00"}, s.Periods)
	assert.Equal(t, "B1", text(t, s, Tuesday, 1))
}

func TestParseSchedule_FallsBackToFirstTable(t *testing.T) {
	markup := `<table><tr><td>h</td></tr><tr><td>08:00</td><td><p>A1</p></td></tr></table>`
	s := parse(t, markup)

	assert.Equal(t, []string{"08:00"}, s.Periods)
	assert.Equal(t, "A1", text(t, s, Monday, 1))
}

func TestParseSchedule_PrefersBorderedTable(t *testing.T) {
	markup := `<table><tr><td>layout</td></tr><tr><td>x</td><td><p>wrong</p></td></tr></table>` +
		page(row("08:00", cell("right")))
	s := parse(t, markup)

	assert.Equal(t, "right", text(t, s, Monday, 1))
}

func TestParseSchedule_NoTable(t *testing.T) {
	_, err := ParseSchedule(mustDoc(t, "https://school.example/Classi/4F.html", `<p>maintenance</p>`))

	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindScheduleNotFound))
	assert.Contains(t, err.Error(), "Classi/4F.html")
}

func TestDecodeCell(t *testing.T) {
	s := parse(t, page(row("08:00", `<td>
		<p>MATEMATICA</p>
		<p>&nbsp;</p>
		<p></p>
		<p><a href="../Docenti/Rossi.html">Rossi</a> <a href="../Docenti/Bianchi.html">Bianchi</a></p>
		<p><a href="../Docenti/Rossi.html">rossi</a></p>
		<a href="../Aule/69.html">Aula 69</a>
		<a href="../Classi/5A.html">5A</a>
		<a href="../Classi/4F.html">4F</a>
		<a href="../elsewhere.html">skip</a>
	</td>`)))

	slot, ok := s.Slot(Monday, 1)
	require.True(t, ok)
	assert.Equal(t, []string{"MATEMATICA", "Rossi Bianchi", "rossi"}, slot.Text)
	assert.Equal(t, []string{"BIANCHI", "ROSSI"}, slot.Teachers)
	assert.Equal(t, []string{"AULA 69"}, slot.Rooms)
	assert.Equal(t, []string{"4F", "5A"}, slot.Classes)
}

func TestScheduleAccessors(t *testing.T) {
	s := parse(t, page(row("08:00", cell("A1"))))

	start, ok := s.StartTime(1)
	assert.True(t, ok)
	assert.Equal(t, "08:00", start)

	_, ok = s.StartTime(0)
	assert.False(t, ok)
	_, ok = s.StartTime(2)
	assert.False(t, ok)
	assert.Equal(t, 1, s.PeriodCount())
}

func TestParseSchedule_SpanSurvivesSeparatorRow(t *testing.T) {
	s := parse(t, page(
		row("08:00", `<td rowspan="3"><p>A</p><a href="../Classi/4F.html">4F</a></td>`, cell("T1")),
		row("&nbsp;", cell("ignored")),
		row("09:00", cell("T2")),
		row("10:00", cell("T3")),
		row("11:00", cell("M4"), cell("T4")),
	))

	require.Equal(t, []string{"08:00", "09:00", "10:00", "11:00"}, s.Periods)
	for period := 1; period <= 3; period++ {
		slot, ok := s.Slot(Monday, period)
		require.True(t, ok)
		assert.Equal(t, []string{"A"}, slot.Text, "period %d", period)
		assert.Equal(t, []string{"4F"}, slot.Classes, "period %d", period)
		assert.Empty(t, slot.Teachers)
		assert.Empty(t, slot.Rooms)
	}
	assert.Equal(t, "M4", text(t, s, Monday, 4))
	for period := 1; period <= 4; period++ {
		assert.Equal(t, fmt.Sprintf("T%d", period), text(t, s, Tuesday, period))
	}
}
