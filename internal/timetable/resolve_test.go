package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testIndex() *Index {
	return NewIndex(map[Category]map[string]string{
		CategoryClass: {
			"4A": "https://s/Classi/4A.html",
			"5A": "https://s/Classi/5A.html",
			"4F": "https://s/Classi/4F.html",
		},
		CategoryTeacher: {
			"ROSSI":        "https://s/Docenti/Rossi.html",
			"ROSSINI LUCA": "https://s/Docenti/Rossini.html",
			"BURGIO":       "https://s/Docenti/Burgio.html",
		},
		CategoryRoom: {
			"AULA 69":    "https://s/Aule/69.html",
			"LAB FISICA": "https://s/Aule/LabF.html",
		},
	})
}

func TestResolve(t *testing.T) {
	ix := testIndex()

	tests := []struct {
		name     string
		query    string
		category Category
		want     Resolution
	}{
		{
			name:     "exact match any case",
			query:    "4f",
			category: CategoryClass,
			want:     Resolution{Outcome: Found, Name: "4F", URL: "https://s/Classi/4F.html"},
		},
		{
			name:     "exact match beats substring",
			query:    "rossi",
			category: CategoryTeacher,
			want:     Resolution{Outcome: Found, Name: "ROSSI", URL: "https://s/Docenti/Rossi.html"},
		},
		{
			name:     "single substring match",
			query:    " burg ",
			category: CategoryTeacher,
			want:     Resolution{Outcome: Found, Name: "BURGIO", URL: "https://s/Docenti/Burgio.html"},
		},
		{
			name:     "ambiguous substring sorted",
			query:    "A",
			category: CategoryClass,
			want:     Resolution{Outcome: Ambiguous, Candidates: []string{"4A", "5A"}},
		},
		{
			name:     "whitespace collapsed",
			query:    "aula   69",
			category: CategoryRoom,
			want:     Resolution{Outcome: Found, Name: "AULA 69", URL: "https://s/Aule/69.html"},
		},
		{
			name:     "not found",
			query:    "3Z",
			category: CategoryClass,
			want:     Resolution{Outcome: NotFound},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.query, ix.Entries(tt.category))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	entries := testIndex().Entries(CategoryClass)
	for _, q := range []string{"4F", "A", "nothing"} {
		assert.Equal(t, Resolve(q, entries), Resolve(q, entries), q)
	}
}

func TestResolve_EmptyMapping(t *testing.T) {
	assert.Equal(t, Resolution{Outcome: NotFound}, Resolve("4F", nil))
}

func TestPickCategory(t *testing.T) {
	ix := testIndex()

	tests := []struct {
		query string
		want  Category
	}{
		{"4f", CategoryClass},
		{"Rossi", CategoryTeacher},
		{"aula 69", CategoryRoom},
		{"ROSS", CategoryTeacher},
		{"fisica", CategoryRoom},
		// "A" is contained in class names, which are tried first
		{"a", CategoryClass},
		{"nobody", CategoryClass},
		{"", CategoryClass},
	}

	for _, tt := range tests {
		if got := PickCategory(tt.query, ix); got != tt.want {
			t.Errorf("PickCategory(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestPickCategory_ExactBeatsEarlierSubstring(t *testing.T) {
	ix := NewIndex(map[Category]map[string]string{
		CategoryClass:   {"LAB1": "c"},
		CategoryTeacher: {"LAB": "t"},
	})

	assert.Equal(t, CategoryTeacher, PickCategory("lab", ix))
}

func TestPickCategory_DefaultsToClassWhenNothingMatches(t *testing.T) {
	for _, q := range []string{"zzz", "qwerty 12", "ÀÈ"} {
		assert.Equal(t, CategoryClass, PickCategory(q, testIndex()), q)
		assert.Equal(t, CategoryClass, PickCategory(q, NewIndex(nil)), q)
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "found", Found.String())
	assert.Equal(t, "ambiguous", Ambiguous.String())
	assert.Equal(t, "not_found", NotFound.String())
}
