package database

import (
	"time"
)

// Lookup is one entry of the lookup log. The activity itself is never stored.
type Lookup struct {
	ID         int64     `json:"id"`
	URL        string    `json:"url"`
	Vendor     string    `json:"vendor"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

type Stats struct {
	Total     int            `json:"total"`
	ByOutcome map[string]int `json:"by_outcome"`
	ByVendor  map[string]int `json:"by_vendor"`
}

type LookupFilters struct {
	Vendor  string
	Outcome string
	Since   *time.Time
	Limit   int
}
