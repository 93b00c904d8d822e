package domain

import "time"

// SearchResult is what a keyword search returns to the serving layer.
type SearchResult struct {
	Origin   string    `json:"origin"` // "cache" or "live"
	Keyword  string    `json:"keyword"`
	Listings []Listing `json:"listings"`
}

// PoolStats summarizes one maintenance cycle.
type PoolStats struct {
	Purged   int64
	Keywords int
	Refilled int
	Inserted int
	Enriched int
	Errors   int
	Duration time.Duration
}

// CollectStats summarizes one fetch cycle for a single (source, keyword) pair.
type CollectStats struct {
	Source   string
	Keyword  string
	Fetched  int
	Accepted int
	Rejected int
	Fallback bool
}
