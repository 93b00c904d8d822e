// Package filter implements the title/keyword acceptance heuristic that gates
// which raw postings are kept.
package filter

import "strings"

// stopwords carry no signal about the role itself and are dropped from the
// keyword before matching.
var stopwords = map[string]struct{}{
	"intern":     {},
	"internship": {},
	"job":        {},
	"summer":     {},
	"fresher":    {},
	"part-time":  {},
	"full-time":  {},
	"remote":     {},
}

// categorySynonyms expands a recognized domain term into the titles it
// commonly appears under. Site postings rarely repeat the search keyword
// verbatim ("python" postings are titled "Backend Developer" and so on).
var categorySynonyms = map[string][]string{
	"software":  {"developer", "engineer", "backend", "frontend", "full-stack", "data", "web", "app"},
	"marketing": {"sales", "brand", "growth", "seo", "content"},
	"data":      {"analyst", "analytics", "scientist", "engineer", "machine learning", "ai"},
	"design":    {"designer", "ui", "ux", "graphic", "visual"},
}

// Relevance accepts or rejects posting titles against a search keyword.
type Relevance struct{}

func NewRelevance() *Relevance {
	return &Relevance{}
}

// IsRelevant reports whether title matches keyword after stopword removal and
// category expansion. An empty term set degrades to accept-all: ambiguous
// input must never reject everything.
func (r *Relevance) IsRelevant(title, keyword string) bool {
	terms := r.ExpandTerms(keyword)
	if len(terms) == 0 {
		return true
	}

	lowerTitle := strings.ToLower(title)
	for _, term := range terms {
		if strings.Contains(lowerTitle, term) {
			return true
		}
	}
	return false
}

// ExpandTerms tokenizes the keyword, drops stopwords and appends category
// synonyms for any recognized domain term.
func (r *Relevance) ExpandTerms(keyword string) []string {
	var terms []string
	seen := make(map[string]struct{})

	add := func(term string) {
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	for _, tok := range strings.Fields(strings.ToLower(keyword)) {
		if _, ok := stopwords[tok]; ok {
			continue
		}
		add(tok)
		for _, syn := range categorySynonyms[tok] {
			add(syn)
		}
	}

	return terms
}
