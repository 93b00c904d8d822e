package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"intern_radar/internal/domain"
)

type ListingStore interface {
	Exists(ctx context.Context, link string) (bool, error)
	Upsert(ctx context.Context, listing *domain.Listing) (int64, error)
	QueryByKeyword(ctx context.Context, keyword string, limit int) ([]domain.Listing, error)
	CountBySourceKeyword(ctx context.Context, source, keyword string) (int, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	DistinctKeywords(ctx context.Context) ([]string, error)
}

// Collector runs one site's full collection strategy (browser fetch plus
// web-search fallback) and yields normalized listings. It absorbs fetch
// failures: an empty result is a valid outcome.
type Collector interface {
	SourceID() string
	Collect(ctx context.Context, keyword string, limit int) ([]domain.Listing, *domain.CollectStats)
}

type Publisher interface {
	Publish(ctx context.Context, listing *domain.Listing, isNew bool) error
	Close() error
}
