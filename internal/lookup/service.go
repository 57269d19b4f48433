// Package lookup answers timetable queries: it resolves a free-text name against
// the cached index, downloads the matching timetable page and renders the
// requested slot or day.
package lookup

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"orario/internal/cache"
	"orario/internal/core"
	"orario/internal/observability"
	"orario/internal/timetable"
)

// Errors returned before any network access when the clock rules out an answer.
var (
	ErrNoLessonsToday     = core.NewInvalidInputError("no lessons on sunday")
	ErrOutsideLessonHours = core.NewInvalidInputError("outside lesson hours " + timetable.LessonHours)
)

// PageFetcher downloads and parses one HTML page.
type PageFetcher interface {
	GetDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// Options configures a Service. Zero values fall back to the defaults.
type Options struct {
	// Schools maps a keyword to the index URL SwitchSource selects.
	Schools       map[string]string
	Location      *time.Location
	MaxLength     int
	MaxCandidates int
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Defaults for Options.
const (
	DefaultMaxLength     = 60
	DefaultMaxCandidates = 30
)

// Result is the answer to one query.
type Result struct {
	Outcome  timetable.Outcome  `json:"outcome"`
	Category timetable.Category `json:"category"`
	Name     string             `json:"name,omitempty"`
	URL      string             `json:"url,omitempty"`
	// Candidates holds at most MaxCandidates names; CandidateCount is the full count.
	Candidates     []string `json:"candidates,omitempty"`
	CandidateCount int      `json:"candidate_count,omitempty"`
	Day            string   `json:"day,omitempty"`
	// Period is zero for a whole-day answer.
	Period int    `json:"period,omitempty"`
	Text   string `json:"text,omitempty"`
}

// Service runs queries against one IndexCache.
type Service struct {
	index   cache.IndexCache
	fetcher PageFetcher

	schools       map[string]string
	location      *time.Location
	maxLength     int
	maxCandidates int
	now           func() time.Time
}

// NewService creates a query service.
func NewService(index cache.IndexCache, fetcher PageFetcher, opts Options) *Service {
	s := &Service{
		index:         index,
		fetcher:       fetcher,
		schools:       make(map[string]string, len(opts.Schools)),
		location:      opts.Location,
		maxLength:     opts.MaxLength,
		maxCandidates: opts.MaxCandidates,
		now:           opts.Now,
	}
	for k, v := range opts.Schools {
		s.schools[strings.ToLower(k)] = v
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.maxLength <= 0 {
		s.maxLength = DefaultMaxLength
	}
	if s.maxCandidates <= 0 {
		s.maxCandidates = DefaultMaxCandidates
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// MaxLength is the longest query the service accepts, in characters.
func (s *Service) MaxLength() int { return s.maxLength }

// Now returns the current time in the school's location.
func (s *Service) Now() time.Time { return s.now().In(s.location) }

// Current answers for the period in progress today.
func (s *Service) Current(ctx context.Context, name string) (*Result, error) {
	now := s.Now()
	day, ok := timetable.DayOf(now)
	if !ok {
		return nil, ErrNoLessonsToday
	}
	period, ok := timetable.PeriodAt(now)
	if !ok {
		return nil, ErrOutsideLessonHours
	}
	return s.At(ctx, name, day, period)
}

// Day answers with today's whole timetable.
func (s *Service) Day(ctx context.Context, name string) (*Result, error) {
	day, ok := timetable.DayOf(s.Now())
	if !ok {
		return nil, ErrNoLessonsToday
	}
	return s.At(ctx, name, day, 0)
}

// Locate answers like Current, but resolves the name before looking at the hour,
// so an unknown or ambiguous name gets its candidates outside lesson hours too.
func (s *Service) Locate(ctx context.Context, name string) (result *Result, err error) {
	defer func() { recordQuery(result, err) }()

	now := s.Now()
	day, ok := timetable.DayOf(now)
	if !ok {
		return nil, ErrNoLessonsToday
	}
	result, err = s.resolve(ctx, name, day)
	if err != nil || result.Outcome != timetable.Found {
		return result, err
	}
	period, ok := timetable.PeriodAt(now)
	if !ok {
		return nil, ErrOutsideLessonHours
	}
	if err := s.render(ctx, result, day, period); err != nil {
		return nil, err
	}
	return result, nil
}

// At answers for an explicit day. A period of zero selects the whole day.
func (s *Service) At(ctx context.Context, name string, day timetable.Day, period int) (result *Result, err error) {
	defer func() { recordQuery(result, err) }()

	if period < 0 {
		return nil, core.NewInvalidInputError("period must be positive")
	}
	result, err = s.resolve(ctx, name, day)
	if err != nil || result.Outcome != timetable.Found {
		return result, err
	}
	if err := s.render(ctx, result, day, period); err != nil {
		return nil, err
	}
	return result, nil
}

// resolve validates name and looks it up in the index. Ambiguous candidates are
// capped at maxCandidates.
func (s *Service) resolve(ctx context.Context, name string, day timetable.Day) (*Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, core.NewInvalidInputError("name is required")
	}
	if utf8.RuneCountInString(name) > s.maxLength {
		return nil, core.NewInvalidInputError("name is too long")
	}

	ix, err := s.index.GetIndex(ctx, s.Now())
	if err != nil {
		return nil, err
	}

	category := timetable.PickCategory(name, ix)
	res := timetable.Resolve(name, ix.Entries(category))
	result := &Result{
		Outcome:  res.Outcome,
		Category: category,
		Name:     res.Name,
		URL:      res.URL,
		Day:      day.String(),
	}
	if res.Outcome == timetable.Ambiguous {
		result.CandidateCount = len(res.Candidates)
		result.Candidates = res.Candidates
		if len(result.Candidates) > s.maxCandidates {
			result.Candidates = result.Candidates[:s.maxCandidates]
		}
	}
	return result, nil
}

// render fetches the resolved page and fills in the text for one period, or the
// whole day when period is zero.
func (s *Service) render(ctx context.Context, result *Result, day timetable.Day, period int) error {
	doc, err := s.fetcher.GetDocument(ctx, result.URL)
	if err != nil {
		return err
	}
	schedule, err := timetable.ParseSchedule(doc)
	if err != nil {
		return err
	}

	result.Period = period
	if period == 0 {
		result.Text = timetable.FormatDay(schedule, day)
	} else {
		result.Text = timetable.FormatPeriod(schedule, day, period)
	}

	slog.DebugContext(ctx, "query answered",
		"name", result.Name,
		"category", result.Category.String(),
		"day", result.Day,
		"period", period)
	return nil
}

func recordQuery(result *Result, err error) {
	if err == nil {
		observability.QueryAnswered(result.Outcome.String())
		return
	}
	kind := core.KindOf(err)
	if kind == "" {
		kind = "error"
	}
	observability.QueryAnswered(string(kind))
}

// ErrUnknownSchool is returned by SwitchSource for a keyword with no URL.
var ErrUnknownSchool = errors.New("school not configured")

// SwitchSource points the index cache at the school named by keyword.
func (s *Service) SwitchSource(keyword string) (string, error) {
	url, ok := s.schools[strings.ToLower(strings.TrimSpace(keyword))]
	if !ok || url == "" {
		return "", ErrUnknownSchool
	}
	s.index.SetSource(url)
	slog.Info("index source switched", "school", keyword, "url", url)
	return url, nil
}

// IsSchool reports whether text is one of the configured school keywords,
// whether or not its URL is set.
func (s *Service) IsSchool(text string) bool {
	_, ok := s.schools[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// Schools returns the configured keywords in sorted order.
func (s *Service) Schools() []string {
	keys := make([]string, 0, len(s.schools))
	for k := range s.schools {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot exposes the index cache state.
func (s *Service) Snapshot() cache.Snapshot { return s.index.Snapshot() }
