// Package normalize turns raw extracted postings into canonical listings with
// bounded, cleaned fields. Postings failing the minimum title/link validity
// are rejected; everything else is defensively defaulted.
package normalize

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"intern_radar/internal/domain"
)

const (
	maxTitleLen    = 200
	maxCompanyLen  = 100
	maxLocationLen = 100
	maxDurationLen = 50
	maxStipendLen  = 100
	maxSkillsLen   = 200
)

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	numberRe       = regexp.MustCompile(`\d+`)
	durationRe     = regexp.MustCompile(`(?i)(\d+)\s?(month|week)s?`)
	deadlineRe     = regexp.MustCompile(`(?i)(?:apply by\s*)?(\d{1,2})\s([A-Za-z]{3})'?\s?(\d{2})`)
	companyNoiseRe = regexp.MustCompile(`(?i)\b(actively hiring|hiring now|urgent hiring)\b`)
	skillsMoreRe   = regexp.MustCompile(`\+\d+\s*more`)
)

// ErrRejected marks a posting that failed the validity invariant and must
// never reach the store.
type ErrRejected struct {
	Reason string
}

func (e *ErrRejected) Error() string {
	return fmt.Sprintf("posting rejected: %s", e.Reason)
}

// Normalizer converts RawListings to Listings.
type Normalizer struct {
	now func() time.Time
}

func New() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewWithClock is for tests that pin the discovery date.
func NewWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Normalize cleans and bounds every field of raw. It returns *ErrRejected if
// the title is shorter than 2 characters or the link is not an absolute URL.
func (n *Normalizer) Normalize(raw domain.RawListing) (*domain.Listing, error) {
	title := collapse(raw.Title)
	if len(title) < 2 {
		return nil, &ErrRejected{Reason: "title too short"}
	}

	link := strings.TrimSpace(raw.Link)
	if u, err := url.Parse(link); err != nil || !u.IsAbs() || u.Host == "" {
		return nil, &ErrRejected{Reason: "link is not an absolute URL"}
	}

	listing := &domain.Listing{
		Title:     truncate(title, maxTitleLen),
		Company:   n.cleanCompany(raw.Company),
		Link:      link,
		Source:    raw.Source,
		Keyword:   raw.Keyword,
		Location:  truncate(defaultIfEmpty(collapse(raw.Location), "Remote"), maxLocationLen),
		Duration:  truncate(n.parseDuration(raw.DurationRaw), maxDurationLen),
		Stipend:   truncate(n.parseStipend(raw.StipendRaw), maxStipendLen),
		Skills:    truncate(n.cleanSkills(raw.SkillsRaw), maxSkillsLen),
		ApplyBy:   n.parseDeadline(raw.DeadlineRaw),
		CreatedAt: n.now(),
	}

	return listing, nil
}

// parseStipend extracts a numeric range from free text: two numbers become
// "low-high", one number stands alone, none means the posting is unpaid.
func (n *Normalizer) parseStipend(text string) string {
	nums := numberRe.FindAllString(strings.ReplaceAll(text, ",", ""), 2)
	switch len(nums) {
	case 2:
		return nums[0] + "-" + nums[1]
	case 1:
		return nums[0]
	}
	return "unpaid"
}

func (n *Normalizer) parseDuration(text string) string {
	if m := durationRe.FindString(text); m != "" {
		return strings.ToLower(collapse(m))
	}
	return "flexible"
}

// parseDeadline reads the site's locale date format ("Apply by 12 Mar' 26",
// quote mark and prefix optional) and maps an "immediate" marker to today.
// Nil means nothing was extractable; the store supplies its horizon default
// on first insert, and a nil on re-discovery must never clobber a deadline a
// richer fetch already extracted.
func (n *Normalizer) parseDeadline(text string) *time.Time {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return nil
	}
	if strings.Contains(lower, "immediate") {
		today := n.today()
		return &today
	}

	if m := deadlineRe.FindStringSubmatch(text); m != nil {
		clean := fmt.Sprintf("%s %s %s", m[1], m[2], m[3])
		if parsed, err := time.Parse("2 Jan 06", clean); err == nil {
			return &parsed
		}
	}

	return nil
}

func (n *Normalizer) cleanCompany(text string) string {
	cleaned := collapse(companyNoiseRe.ReplaceAllString(text, ""))
	return truncate(defaultIfEmpty(cleaned, "Unknown"), maxCompanyLen)
}

// cleanSkills splits on commas and newlines, drops "+N more" counters and
// single characters, and returns a sorted, deduplicated list. "N/A" stands
// for skills the card did not expose.
func (n *Normalizer) cleanSkills(text string) string {
	if strings.TrimSpace(text) == "" {
		return "N/A"
	}

	lowered := skillsMoreRe.ReplaceAllString(strings.ToLower(text), "")
	parts := strings.Split(strings.ReplaceAll(lowered, "\n", ","), ",")

	seen := make(map[string]struct{})
	var skills []string
	for _, p := range parts {
		p = collapse(p)
		if len(p) < 2 {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		skills = append(skills, p)
	}

	if len(skills) == 0 {
		return "N/A"
	}
	sort.Strings(skills)
	return strings.Join(skills, ", ")
}

func (n *Normalizer) today() time.Time {
	now := n.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// truncate caps s at max runes. Slicing bytes could split a multi-byte rune
// (stipend and title text carry "₹" and Devanagari) and store invalid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func defaultIfEmpty(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
