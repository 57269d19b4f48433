// Package cache keeps the entity index in memory so that queries do not refetch the
// index page every time.
package cache

import (
	"context"
	"time"

	"orario/internal/timetable"
)

// DefaultTTL is how long a built index is reused before it is rebuilt.
const DefaultTTL = 6 * time.Hour

// Loader fetches the index page at url and builds an index from it.
type Loader func(ctx context.Context, url string) (*timetable.Index, error)

// Snapshot describes the cached record.
type Snapshot struct {
	Source      string         `json:"source"`
	BuiltAt     time.Time      `json:"built_at,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Entries     map[string]int `json:"entries,omitempty"`
}

// IndexCache defines the interface for index storage.
// Implementations must be safe for concurrent use.
type IndexCache interface {
	// GetIndex returns the cached index, rebuilding it first when there is none or
	// when it is at least one TTL older than now.
	GetIndex(ctx context.Context, now time.Time) (*timetable.Index, error)

	// SetSource replaces the index page URL and drops the cached index.
	SetSource(url string)

	// Source returns the index page URL in use.
	Source() string

	// Snapshot describes the current record without touching it.
	Snapshot() Snapshot
}
