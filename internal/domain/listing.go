package domain

import "time"

// Listing is a normalized internship posting. The link is the identity key:
// no two stored listings share one, regardless of source or keyword.
type Listing struct {
	ID        int64      `db:"id" json:"id"`
	Title     string     `db:"title" json:"title"`
	Company   string     `db:"company" json:"company"`
	Link      string     `db:"link" json:"link"`
	Source    string     `db:"source" json:"source"`
	Keyword   string     `db:"keyword" json:"keyword"`
	Location  string     `db:"location" json:"location"`
	Duration  string     `db:"duration" json:"duration"`
	Stipend   string     `db:"stipend" json:"stipend"`
	Skills    string     `db:"skills" json:"skills"`
	ApplyBy   *time.Time `db:"apply_by" json:"applyBy,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
}

// HasRealSkills reports whether the skills field carries extracted data
// rather than a placeholder left by a fetch that could not read it.
func (l Listing) HasRealSkills() bool {
	switch l.Skills {
	case "N/A", "Loading...", "View Details":
		return false
	}
	return len(l.Skills) >= 5
}

// RawListing is what a source fetcher extracts from a posting element before
// normalization. Fields are uncleaned text; missing ones hold the source's
// per-field defaults.
type RawListing struct {
	Title       string
	Company     string
	Link        string
	Source      string
	Keyword     string
	Location    string
	DurationRaw string
	StipendRaw  string
	SkillsRaw   string
	DeadlineRaw string
}
