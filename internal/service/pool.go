package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"intern_radar/internal/config"
	"intern_radar/internal/domain"
)

// PoolService keeps the stored listing pool healthy: expired postings are
// purged and every (site, keyword) pair that fell below the target count is
// refilled. One cycle is idempotent; running it twice in a row is a no-op
// apart from fresh scrapes.
type PoolService struct {
	store      ListingStore
	collectors []Collector
	publisher  Publisher
	logger     *slog.Logger
	config     config.PoolConfig

	now func() time.Time
}

func NewPoolService(
	store ListingStore,
	collectors []Collector,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.PoolConfig,
) *PoolService {
	return &PoolService{
		store:      store,
		collectors: collectors,
		publisher:  publisher,
		logger:     logger.With("service", "pool"),
		config:     cfg,
		now:        time.Now,
	}
}

// RunMaintenanceCycle purges listings whose deadline passed and tops up every
// tracked keyword back to the per-site target. Collection failures count as
// errors but never abort the cycle.
func (p *PoolService) RunMaintenanceCycle(ctx context.Context) (*domain.PoolStats, error) {
	start := p.now()
	stats := &domain.PoolStats{}

	// Midnight in the deployment zone, not UTC: "expired" means the local
	// calendar day of the deadline has passed, matching how deadlines are
	// assigned at normalization.
	y, m, d := start.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, start.Location())
	purged, err := p.store.DeleteExpired(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("purge expired listings: %w", err)
	}
	stats.Purged = purged
	p.logger.Info("purged expired listings", "count", purged)

	keywords, err := p.store.DistinctKeywords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tracked keywords: %w", err)
	}
	stats.Keywords = len(keywords)

	for _, keyword := range keywords {
		for _, collector := range p.collectors {
			if err := p.refill(ctx, collector, keyword, stats); err != nil {
				stats.Errors++
				p.logger.Warn("refill failed",
					"source", collector.SourceID(),
					"keyword", keyword,
					"error", err,
				)
			}
		}
	}

	stats.Duration = time.Since(start)
	p.logger.Info("maintenance cycle completed",
		"purged", stats.Purged,
		"keywords", stats.Keywords,
		"refilled", stats.Refilled,
		"inserted", stats.Inserted,
		"enriched", stats.Enriched,
		"errors", stats.Errors,
		"duration", stats.Duration,
	)

	return stats, nil
}

// refill tops up one (site, keyword) pair when it sits below the target.
func (p *PoolService) refill(ctx context.Context, collector Collector, keyword string, stats *domain.PoolStats) error {
	count, err := p.store.CountBySourceKeyword(ctx, collector.SourceID(), keyword)
	if err != nil {
		return fmt.Errorf("count listings: %w", err)
	}

	deficit := p.config.TargetPerSource - count
	if deficit <= 0 {
		return nil
	}

	stats.Refilled++
	p.logger.Debug("refilling pair",
		"source", collector.SourceID(),
		"keyword", keyword,
		"held", count,
		"deficit", deficit,
	)

	listings, _ := collector.Collect(ctx, keyword, deficit)

	for i := range listings {
		listing := &listings[i]

		exists, err := p.store.Exists(ctx, listing.Link)
		if err != nil {
			stats.Errors++
			continue
		}

		if _, err := p.store.Upsert(ctx, listing); err != nil {
			stats.Errors++
			continue
		}

		if exists {
			stats.Enriched++
		} else {
			stats.Inserted++
		}

		if p.publisher != nil {
			if err := p.publisher.Publish(ctx, listing, !exists); err != nil {
				p.logger.Warn("publish failed", "link", listing.Link, "error", err)
			}
		}
	}

	return nil
}
