// Package source defines the capability contract each listing site implements
// and the extraction helpers shared by the per-site fetchers.
package source

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"intern_radar/internal/domain"
)

// Fetcher retrieves raw postings for a keyword from one external site.
// Implementations return an empty slice, not an error, when the site times
// out, withholds content, or serves a challenge page; errors are reserved for
// the automation engine itself failing to start.
type Fetcher interface {
	ID() string
	Name() string
	Domain() string
	Fetch(ctx context.Context, keyword string, limit int) ([]domain.RawListing, error)
}

// FieldSelectors is an ordered list of candidate selectors for one field.
// Site layouts drift; evaluating first-match-wins isolates that brittleness
// to data instead of control flow.
type FieldSelectors []string

// Text returns the first candidate's non-empty trimmed text under sel.
func (fs FieldSelectors) Text(sel *goquery.Selection) string {
	for _, candidate := range fs {
		if text := strings.TrimSpace(sel.Find(candidate).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// Attr returns the first candidate's non-empty attribute value under sel.
func (fs FieldSelectors) Attr(sel *goquery.Selection, attr string) string {
	for _, candidate := range fs {
		if val, ok := sel.Find(candidate).First().Attr(attr); ok && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

// blockMarkers appear in the title of challenge and anti-bot pages. A match
// aborts the source for the current cycle; the fallback chain takes over.
var blockMarkers = []string{
	"just a moment",
	"attention required",
	"access denied",
	"verify you are human",
	"security check",
	"cloudflare",
}

// LooksBlocked reports whether a page title belongs to a challenge page.
func LooksBlocked(title string) bool {
	lower := strings.ToLower(title)
	for _, marker := range blockMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// CleanKeyword strips role-type filler from the keyword before templating it
// into a site URL. A keyword that is nothing but filler is kept as-is.
func CleanKeyword(keyword string) string {
	var kept []string
	for _, tok := range strings.Fields(strings.ToLower(keyword)) {
		switch tok {
		case "internship", "intern", "job":
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		return strings.ToLower(strings.TrimSpace(keyword))
	}
	return strings.Join(kept, " ")
}

// AbsoluteURL resolves href against base when the site emits relative links.
func AbsoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(href, "/")
}
