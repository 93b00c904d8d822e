package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"intern_radar/internal/domain"
)

type ListingStore struct {
	db *sqlx.DB
}

func NewListingStore(db *sqlx.DB) *ListingStore {
	return &ListingStore{db: db}
}

// Exists reports whether a listing with the given link is already stored.
func (s *ListingStore) Exists(ctx context.Context, link string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM listings WHERE link = $1)", link)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Upsert inserts the listing or, on a link collision, merges the fresher
// fields into the stored row. Skills are only overwritten when the stored
// value is a placeholder and the incoming one is real, so an enriched row is
// never degraded by a later shallow fetch. A listing discovered without a
// deadline gets a 14-day expiry horizon on first insert; on re-discovery a
// missing deadline keeps the stored one, which may be an extracted date a
// shallow fetch could not see. EXCLUDED.apply_by carries the horizon
// default, so the merge must compare against the bare parameter instead.
func (s *ListingStore) Upsert(ctx context.Context, listing *domain.Listing) (int64, error) {
	query := `
		INSERT INTO listings (
			title, company, link, source, keyword, location,
			duration, stipend, skills, apply_by, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, CURRENT_DATE + 14), $11
		)
		ON CONFLICT (link) DO UPDATE SET
			title = EXCLUDED.title,
			company = EXCLUDED.company,
			location = EXCLUDED.location,
			duration = EXCLUDED.duration,
			stipend = EXCLUDED.stipend,
			skills = CASE
				WHEN (listings.skills IN ('N/A', 'Loading...', 'View Details') OR length(listings.skills) < 5)
					AND EXCLUDED.skills NOT IN ('N/A', 'Loading...', 'View Details')
					AND length(EXCLUDED.skills) >= 5
				THEN EXCLUDED.skills
				ELSE listings.skills
			END,
			apply_by = COALESCE($10, listings.apply_by)
		RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		listing.Title,
		listing.Company,
		listing.Link,
		listing.Source,
		listing.Keyword,
		listing.Location,
		listing.Duration,
		listing.Stipend,
		listing.Skills,
		listing.ApplyBy,
		listing.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

// QueryByKeyword returns the newest stored listings for a keyword, up to limit.
func (s *ListingStore) QueryByKeyword(ctx context.Context, keyword string, limit int) ([]domain.Listing, error) {
	query := `
		SELECT id, title, company, link, source, keyword, location,
		       duration, stipend, skills, apply_by, created_at
		FROM listings
		WHERE keyword = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	listings := []domain.Listing{}
	if err := s.db.SelectContext(ctx, &listings, query, keyword, limit); err != nil {
		return nil, err
	}
	return listings, nil
}

// CountBySourceKeyword returns how many listings a (source, keyword) pair
// currently holds. The pool maintainer uses it to size refills.
func (s *ListingStore) CountBySourceKeyword(ctx context.Context, source, keyword string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM listings WHERE source = $1 AND keyword = $2", source, keyword)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteExpired removes listings whose application deadline passed before the
// given cutoff and returns how many rows went away.
func (s *ListingStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM listings WHERE apply_by IS NOT NULL AND apply_by < $1", before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DistinctKeywords lists every keyword that has at least one stored listing.
func (s *ListingStore) DistinctKeywords(ctx context.Context) ([]string, error) {
	keywords := []string{}
	err := s.db.SelectContext(ctx, &keywords,
		"SELECT DISTINCT keyword FROM listings ORDER BY keyword")
	if err != nil {
		return nil, err
	}
	return keywords, nil
}
