//go:build integration

package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"intern_radar/internal/domain"
	"intern_radar/testdata/utils"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_listings.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM listings")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func testListing(link string) *domain.Listing {
	return &domain.Listing{
		Title:     "Python Developer Intern",
		Company:   "Acme Labs",
		Link:      link,
		Source:    "internshala",
		Keyword:   "python",
		Location:  "Bangalore",
		Duration:  "3 months",
		Stipend:   "10000-15000",
		Skills:    "django, python",
		ApplyBy:   utils.Ptr(time.Now().AddDate(0, 0, 14).Truncate(24 * time.Hour)),
		CreatedAt: time.Now().Truncate(time.Microsecond),
	}
}

func (s *PostgresIntegrationSuite) TestListingStore_Upsert_Insert() {
	store := NewListingStore(s.db)

	id, err := store.Upsert(s.ctx, testListing("https://internshala.com/internship/detail/python-1"))
	s.NoError(err)
	s.Greater(id, int64(0))

	exists, err := store.Exists(s.ctx, "https://internshala.com/internship/detail/python-1")
	s.NoError(err)
	s.True(exists)

	exists, err = store.Exists(s.ctx, "https://internshala.com/internship/detail/missing")
	s.NoError(err)
	s.False(exists)
}

func (s *PostgresIntegrationSuite) TestListingStore_Upsert_SameLinkKeepsOneRow() {
	store := NewListingStore(s.db)
	link := "https://internshala.com/internship/detail/python-1"

	id1, err := store.Upsert(s.ctx, testListing(link))
	s.NoError(err)

	updated := testListing(link)
	updated.Title = "Python Developer Intern (Updated)"
	id2, err := store.Upsert(s.ctx, updated)
	s.NoError(err)
	s.Equal(id1, id2)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM listings WHERE link = $1", link)
	s.NoError(err)
	s.Equal(1, count)

	var title string
	err = s.db.GetContext(s.ctx, &title, "SELECT title FROM listings WHERE id = $1", id1)
	s.NoError(err)
	s.Equal("Python Developer Intern (Updated)", title)
}

func (s *PostgresIntegrationSuite) TestListingStore_Upsert_SkillsMergeRules() {
	store := NewListingStore(s.db)
	link := "https://internshala.com/internship/detail/python-1"

	shallow := testListing(link)
	shallow.Skills = "N/A"
	id, err := store.Upsert(s.ctx, shallow)
	s.NoError(err)

	enriched := testListing(link)
	enriched.Skills = "django, python"
	_, err = store.Upsert(s.ctx, enriched)
	s.NoError(err)

	var skills string
	err = s.db.GetContext(s.ctx, &skills, "SELECT skills FROM listings WHERE id = $1", id)
	s.NoError(err)
	s.Equal("django, python", skills)

	// A later shallow pass must not wipe the enrichment.
	again := testListing(link)
	again.Skills = "Loading..."
	_, err = store.Upsert(s.ctx, again)
	s.NoError(err)

	err = s.db.GetContext(s.ctx, &skills, "SELECT skills FROM listings WHERE id = $1", id)
	s.NoError(err)
	s.Equal("django, python", skills)
}

func (s *PostgresIntegrationSuite) TestListingStore_Upsert_MissingDeadlineGetsHorizonOnInsert() {
	store := NewListingStore(s.db)

	first := testListing("https://internshala.com/internship/detail/python-1")
	first.ApplyBy = nil
	id, err := store.Upsert(s.ctx, first)
	s.NoError(err)

	var applyBy time.Time
	err = s.db.GetContext(s.ctx, &applyBy, "SELECT apply_by FROM listings WHERE id = $1", id)
	s.NoError(err)
	s.Equal(time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 14), applyBy.UTC())
}

func (s *PostgresIntegrationSuite) TestListingStore_Upsert_RediscoveryKeepsExtractedDeadline() {
	store := NewListingStore(s.db)
	link := "https://internshala.com/internship/detail/python-1"

	extracted := time.Date(2026, time.March, 28, 0, 0, 0, 0, time.UTC)
	first := testListing(link)
	first.ApplyBy = utils.Ptr(extracted)
	id, err := store.Upsert(s.ctx, first)
	s.NoError(err)

	// A shallow re-discovery of the same card carries no deadline. The
	// stored date must survive, not revert to the insert-time horizon.
	second := testListing(link)
	second.ApplyBy = nil
	_, err = store.Upsert(s.ctx, second)
	s.NoError(err)

	var applyBy time.Time
	err = s.db.GetContext(s.ctx, &applyBy, "SELECT apply_by FROM listings WHERE id = $1", id)
	s.NoError(err)
	s.Equal(extracted, applyBy.UTC())
}

func (s *PostgresIntegrationSuite) TestListingStore_QueryByKeyword() {
	store := NewListingStore(s.db)

	for i, link := range []string{
		"https://internshala.com/internship/detail/python-1",
		"https://internshala.com/internship/detail/python-2",
		"https://unstop.com/internships/python-3",
	} {
		l := testListing(link)
		l.CreatedAt = time.Now().Add(time.Duration(i) * time.Minute).Truncate(time.Microsecond)
		_, err := store.Upsert(s.ctx, l)
		s.NoError(err)
	}
	other := testListing("https://internshala.com/internship/detail/design-1")
	other.Keyword = "design"
	_, err := store.Upsert(s.ctx, other)
	s.NoError(err)

	listings, err := store.QueryByKeyword(s.ctx, "python", 10)
	s.NoError(err)
	s.Len(listings, 3)
	// Newest first.
	s.Equal("https://unstop.com/internships/python-3", listings[0].Link)

	listings, err = store.QueryByKeyword(s.ctx, "python", 2)
	s.NoError(err)
	s.Len(listings, 2)

	listings, err = store.QueryByKeyword(s.ctx, "golang", 10)
	s.NoError(err)
	s.Empty(listings)
}

func (s *PostgresIntegrationSuite) TestListingStore_CountBySourceKeyword() {
	store := NewListingStore(s.db)

	_, err := store.Upsert(s.ctx, testListing("https://internshala.com/internship/detail/python-1"))
	s.NoError(err)

	unstop := testListing("https://unstop.com/internships/python-2")
	unstop.Source = "unstop"
	_, err = store.Upsert(s.ctx, unstop)
	s.NoError(err)

	count, err := store.CountBySourceKeyword(s.ctx, "internshala", "python")
	s.NoError(err)
	s.Equal(1, count)

	count, err = store.CountBySourceKeyword(s.ctx, "prosple", "python")
	s.NoError(err)
	s.Equal(0, count)
}

func (s *PostgresIntegrationSuite) TestListingStore_DeleteExpired() {
	store := NewListingStore(s.db)
	today := time.Now().Truncate(24 * time.Hour)

	expired := testListing("https://internshala.com/internship/detail/old-1")
	expired.ApplyBy = utils.Ptr(today.AddDate(0, 0, -3))
	_, err := store.Upsert(s.ctx, expired)
	s.NoError(err)

	open := testListing("https://internshala.com/internship/detail/open-1")
	_, err = store.Upsert(s.ctx, open)
	s.NoError(err)

	noDeadline := testListing("https://internshala.com/internship/detail/nodl-1")
	noDeadline.ApplyBy = nil
	_, err = store.Upsert(s.ctx, noDeadline)
	s.NoError(err)

	purged, err := store.DeleteExpired(s.ctx, today)
	s.NoError(err)
	s.Equal(int64(1), purged)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM listings")
	s.NoError(err)
	s.Equal(2, count)
}

func (s *PostgresIntegrationSuite) TestListingStore_DistinctKeywords() {
	store := NewListingStore(s.db)

	_, err := store.Upsert(s.ctx, testListing("https://internshala.com/internship/detail/python-1"))
	s.NoError(err)
	_, err = store.Upsert(s.ctx, testListing("https://internshala.com/internship/detail/python-2"))
	s.NoError(err)

	design := testListing("https://internshala.com/internship/detail/design-1")
	design.Keyword = "design"
	_, err = store.Upsert(s.ctx, design)
	s.NoError(err)

	keywords, err := store.DistinctKeywords(s.ctx)
	s.NoError(err)
	s.Equal([]string{"design", "python"}, keywords)
}
