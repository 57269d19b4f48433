package timetable

import "strings"

// Category is the kind of entity an index entry or a cell link refers to.
type Category int

const (
	CategoryClass Category = iota
	CategoryTeacher
	CategoryRoom
)

// Categories lists every category in lookup priority order.
var Categories = []Category{CategoryClass, CategoryTeacher, CategoryRoom}

// pathMarkers are matched against raw hrefs in Categories order; the first hit wins.
var pathMarkers = [...]string{
	CategoryClass:   "Classi/",
	CategoryTeacher: "Docenti/",
	CategoryRoom:    "Aule/",
}

func (c Category) String() string {
	switch c {
	case CategoryClass:
		return "class"
	case CategoryTeacher:
		return "teacher"
	case CategoryRoom:
		return "room"
	default:
		return "unknown"
	}
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Classify returns the category an href points into, judged by its path marker.
func Classify(href string) (Category, bool) {
	for _, c := range Categories {
		if strings.Contains(href, pathMarkers[c]) {
			return c, true
		}
	}
	return 0, false
}
