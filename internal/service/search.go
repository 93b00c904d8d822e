package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"intern_radar/internal/config"
	"intern_radar/internal/domain"
)

// SearchService answers keyword searches. Stored listings are served
// immediately when the keyword's pool is warm enough; otherwise the fastest
// site is scraped synchronously and the remaining sites refresh the pool in
// the background.
type SearchService struct {
	store      ListingStore
	collectors []Collector
	publisher  Publisher
	logger     *slog.Logger
	config     config.SearchConfig

	limiter *rate.Limiter
	bg      sync.WaitGroup
}

func NewSearchService(
	store ListingStore,
	collectors []Collector,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.SearchConfig,
) *SearchService {
	return &SearchService{
		store:      store,
		collectors: collectors,
		publisher:  publisher,
		logger:     logger.With("service", "search"),
		config:     cfg,
		limiter:    rate.NewLimiter(rate.Every(cfg.SourcePause), 1),
	}
}

// Search returns listings for keyword, from the store when it holds enough
// usable rows, otherwise from a synchronous scrape of the fastest site. A
// live scrape also kicks off a background refresh across the slower sites.
func (s *SearchService) Search(ctx context.Context, keyword string) (*domain.SearchResult, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return nil, fmt.Errorf("empty keyword")
	}

	cached, err := s.store.QueryByKeyword(ctx, keyword, s.config.FetchLimit)
	if err != nil {
		return nil, fmt.Errorf("query stored listings: %w", err)
	}

	if s.isCacheHit(cached) {
		s.logger.Info("serving stored listings", "keyword", keyword, "count", len(cached))
		return &domain.SearchResult{Origin: "cache", Keyword: keyword, Listings: cached}, nil
	}

	s.logger.Info("pool too thin, scraping live", "keyword", keyword, "stored", len(cached))

	liveCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	fast := s.fastCollector()
	listings, _ := fast.Collect(liveCtx, keyword, s.config.FetchLimit)
	s.persist(liveCtx, listings)

	s.refreshInBackground(keyword, fast.SourceID())

	result, err := s.store.QueryByKeyword(ctx, keyword, s.config.FetchLimit)
	if err != nil {
		// The scrape itself succeeded; serve it rather than failing the search.
		s.logger.Warn("re-query after scrape failed", "keyword", keyword, "error", err)
		result = listings
	}

	return &domain.SearchResult{Origin: "live", Keyword: keyword, Listings: result}, nil
}

// Wait blocks until all in-flight background refreshes finish. Called on
// shutdown so slow sites get a chance to land their results.
func (s *SearchService) Wait() {
	s.bg.Wait()
}

// isCacheHit requires a minimum row count and at least one listing with real
// skills, so a pool of half-extracted placeholders does not mask a refresh.
func (s *SearchService) isCacheHit(listings []domain.Listing) bool {
	if len(listings) < s.config.CacheMinRows {
		return false
	}
	for _, l := range listings {
		if l.HasRealSkills() {
			return true
		}
	}
	return false
}

// fastCollector picks the configured low-latency site, falling back to the
// first registered collector.
func (s *SearchService) fastCollector() Collector {
	for _, c := range s.collectors {
		if c.SourceID() == s.config.FastSource {
			return c
		}
	}
	return s.collectors[0]
}

// refreshInBackground collects from every site except skipID, paced by the
// shared rate limiter. The work is detached from the request context; a
// client hanging up must not abort a half-done refresh.
func (s *SearchService) refreshInBackground(keyword, skipID string) {
	remaining := make([]Collector, 0, len(s.collectors))
	for _, c := range s.collectors {
		if c.SourceID() != skipID {
			remaining = append(remaining, c)
		}
	}
	if len(remaining) == 0 {
		return
	}

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(len(remaining))*s.config.RequestTimeout)
		defer cancel()

		for _, c := range remaining {
			if err := s.limiter.Wait(ctx); err != nil {
				s.logger.Warn("background refresh aborted", "keyword", keyword, "error", err)
				return
			}

			listings, stats := c.Collect(ctx, keyword, s.config.FetchLimit)
			created, updated := s.persist(ctx, listings)
			s.logger.Info("background refresh finished",
				"source", c.SourceID(),
				"keyword", keyword,
				"accepted", stats.Accepted,
				"created", created,
				"updated", updated,
			)
		}
	}()
}

// persist upserts listings one by one and notifies the publisher. Store
// errors are logged and skipped; one bad row must not sink the batch.
func (s *SearchService) persist(ctx context.Context, listings []domain.Listing) (created, updated int) {
	for i := range listings {
		listing := &listings[i]

		exists, err := s.store.Exists(ctx, listing.Link)
		if err != nil {
			s.logger.Warn("existence check failed", "link", listing.Link, "error", err)
			continue
		}

		if _, err := s.store.Upsert(ctx, listing); err != nil {
			s.logger.Warn("upsert failed", "link", listing.Link, "error", err)
			continue
		}

		if exists {
			updated++
		} else {
			created++
		}

		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, listing, !exists); err != nil {
				s.logger.Warn("publish failed", "link", listing.Link, "error", err)
			}
		}
	}
	return created, updated
}
