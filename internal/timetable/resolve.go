package timetable

import (
	"sort"
	"strings"
)

// Outcome is the kind of answer Resolve gives.
type Outcome int

const (
	NotFound Outcome = iota
	Found
	Ambiguous
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Ambiguous:
		return "ambiguous"
	default:
		return "not_found"
	}
}

// MarshalText encodes the outcome by name in JSON responses.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Resolution is the result of looking a free-text name up in one category.
// Name and URL are set when Outcome is Found, Candidates when it is Ambiguous.
type Resolution struct {
	Outcome    Outcome
	Name       string
	URL        string
	Candidates []string
}

// Resolve looks name up in entries: an exact match wins, otherwise a single name
// containing it is accepted, and several such names are returned sorted as candidates.
func Resolve(name string, entries map[string]string) Resolution {
	key := Normalize(name)
	if target, ok := entries[key]; ok {
		return Resolution{Outcome: Found, Name: key, URL: target}
	}

	var matches []string
	for candidate := range entries {
		if strings.Contains(candidate, key) {
			matches = append(matches, candidate)
		}
	}
	sort.Strings(matches)

	switch len(matches) {
	case 0:
		return Resolution{Outcome: NotFound}
	case 1:
		return Resolution{Outcome: Found, Name: matches[0], URL: entries[matches[0]]}
	default:
		return Resolution{Outcome: Ambiguous, Candidates: matches}
	}
}

// PickCategory chooses the category a query most likely refers to: the first one
// in Categories order with an exact match, then the first with a substring match,
// and CategoryClass when nothing matches anywhere.
func PickCategory(name string, ix *Index) Category {
	key := Normalize(name)
	for _, c := range Categories {
		if _, ok := ix.Entries(c)[key]; ok {
			return c
		}
	}
	for _, c := range Categories {
		for candidate := range ix.Entries(c) {
			if strings.Contains(candidate, key) {
				return c
			}
		}
	}
	return CategoryClass
}
