package fallback

import (
	"context"
	"errors"
	"log/slog"

	"intern_radar/internal/domain"
	"intern_radar/internal/filter"
	"intern_radar/internal/normalize"
	"intern_radar/internal/source"
)

// Searcher is the secondary strategy: a web-search pass scoped to the
// source's domain.
type Searcher interface {
	Search(ctx context.Context, sourceID, siteDomain, keyword string, limit int) ([]domain.RawListing, error)
}

// Orchestrator wraps one site fetcher with the web-search fallback. The
// secondary fires at most once per Collect call, and only when the primary
// produced zero accepted listings.
type Orchestrator struct {
	source source.Fetcher
	search Searcher
	filter *filter.Relevance
	norm   *normalize.Normalizer
	logger *slog.Logger
}

func NewOrchestrator(src source.Fetcher, search Searcher, relevance *filter.Relevance, norm *normalize.Normalizer, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		source: src,
		search: search,
		filter: relevance,
		norm:   norm,
		logger: logger.With("source", src.ID()),
	}
}

// SourceID identifies the wrapped site fetcher.
func (o *Orchestrator) SourceID() string {
	return o.source.ID()
}

// Collect runs the primary fetch, falls back to the secondary on an empty
// result, and normalizes everything that survives. It never fails: a cycle
// where both strategies come up short returns an empty slice and lets the
// caller serve whatever the store already holds.
func (o *Orchestrator) Collect(ctx context.Context, keyword string, limit int) ([]domain.Listing, *domain.CollectStats) {
	stats := &domain.CollectStats{Source: o.source.ID(), Keyword: keyword}

	raws, err := o.source.Fetch(ctx, keyword, limit)
	if err != nil {
		o.logger.Warn("primary fetch failed", "keyword", keyword, "error", err)
	}
	listings := o.accept(raws, stats)

	if len(listings) == 0 {
		stats.Fallback = true
		o.logger.Info("primary yielded nothing, trying web search", "keyword", keyword)

		secondary, err := o.search.Search(ctx, o.source.ID(), o.source.Domain(), keyword, limit)
		if err != nil {
			o.logger.Warn("web search failed", "keyword", keyword, "error", err)
		}
		listings = o.accept(secondary, stats)
	}

	o.logger.Info("collect finished",
		"keyword", keyword,
		"fetched", stats.Fetched,
		"accepted", stats.Accepted,
		"rejected", stats.Rejected,
		"fallback", stats.Fallback,
	)
	return listings, stats
}

// accept filters and normalizes raws, tallying the outcome into stats.
func (o *Orchestrator) accept(raws []domain.RawListing, stats *domain.CollectStats) []domain.Listing {
	var listings []domain.Listing

	for _, raw := range raws {
		stats.Fetched++

		if !o.filter.IsRelevant(raw.Title, raw.Keyword) {
			stats.Rejected++
			continue
		}

		listing, err := o.norm.Normalize(raw)
		if err != nil {
			var rejected *normalize.ErrRejected
			if errors.As(err, &rejected) {
				o.logger.Debug("posting rejected", "title", raw.Title, "reason", rejected.Reason)
			}
			stats.Rejected++
			continue
		}

		stats.Accepted++
		listings = append(listings, *listing)
	}

	return listings
}
