package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"intern_radar/internal/config"
	"intern_radar/internal/domain"
	"intern_radar/internal/service/mocks"
)

type SearchServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	store     *mocks.MockListingStore
	fast      *mocks.MockCollector
	publisher *mocks.MockPublisher

	service *SearchService
	cfg     config.SearchConfig
	logger  *slog.Logger
}

func (s *SearchServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.store = mocks.NewMockListingStore(s.ctrl)
	s.fast = mocks.NewMockCollector(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)

	s.cfg = config.SearchConfig{
		FastSource:     "internshala",
		FetchLimit:     10,
		CacheMinRows:   2,
		RequestTimeout: 5 * time.Second,
		SourcePause:    time.Millisecond,
	}

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.fast.EXPECT().SourceID().Return("internshala").AnyTimes()

	s.service = NewSearchService(s.store, []Collector{s.fast}, s.publisher, s.logger, s.cfg)
}

func (s *SearchServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestSearchServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SearchServiceTestSuite))
}

func storedListing(link, skills string) domain.Listing {
	return domain.Listing{
		Title:   "Python Developer Intern",
		Company: "Acme Labs",
		Link:    link,
		Source:  "internshala",
		Keyword: "python",
		Skills:  skills,
	}
}

func (s *SearchServiceTestSuite) TestSearch_CacheHit() {
	ctx := context.Background()

	cached := []domain.Listing{
		storedListing("https://internshala.com/a", "django, python"),
		storedListing("https://internshala.com/b", "N/A"),
		storedListing("https://internshala.com/c", "N/A"),
	}
	s.store.EXPECT().QueryByKeyword(ctx, "python", 10).Return(cached, nil)

	result, err := s.service.Search(ctx, "python")

	s.NoError(err)
	s.Equal("cache", result.Origin)
	s.Equal("python", result.Keyword)
	s.Len(result.Listings, 3)
}

func (s *SearchServiceTestSuite) TestSearch_CacheMissScrapesFastSource() {
	ctx := context.Background()

	scraped := []domain.Listing{
		storedListing("https://internshala.com/new-1", "python"),
		storedListing("https://internshala.com/new-2", "sql"),
	}

	s.store.EXPECT().QueryByKeyword(ctx, "python", 10).
		Return([]domain.Listing{storedListing("https://internshala.com/old", "python")}, nil)

	s.fast.EXPECT().Collect(gomock.Any(), "python", 10).
		Return(scraped, &domain.CollectStats{Source: "internshala", Keyword: "python", Accepted: 2})

	s.store.EXPECT().Exists(gomock.Any(), "https://internshala.com/new-1").Return(false, nil)
	s.store.EXPECT().Upsert(gomock.Any(), &scraped[0]).Return(int64(1), nil)
	s.publisher.EXPECT().Publish(gomock.Any(), &scraped[0], true).Return(nil)

	s.store.EXPECT().Exists(gomock.Any(), "https://internshala.com/new-2").Return(false, nil)
	s.store.EXPECT().Upsert(gomock.Any(), &scraped[1]).Return(int64(2), nil)
	s.publisher.EXPECT().Publish(gomock.Any(), &scraped[1], true).Return(nil)

	s.store.EXPECT().QueryByKeyword(ctx, "python", 10).Return(scraped, nil)

	result, err := s.service.Search(ctx, "python")

	s.NoError(err)
	s.Equal("live", result.Origin)
	s.Len(result.Listings, 2)
}

func (s *SearchServiceTestSuite) TestSearch_PlaceholderPoolForcesLiveScrape() {
	ctx := context.Background()

	// Enough rows, but none with real skills: still a miss.
	cached := []domain.Listing{
		storedListing("https://internshala.com/a", "N/A"),
		storedListing("https://internshala.com/b", "Loading..."),
		storedListing("https://internshala.com/c", "View Details"),
	}
	s.store.EXPECT().QueryByKeyword(ctx, "python", 10).Return(cached, nil)

	s.fast.EXPECT().Collect(gomock.Any(), "python", 10).
		Return(nil, &domain.CollectStats{Source: "internshala", Keyword: "python"})

	s.store.EXPECT().QueryByKeyword(ctx, "python", 10).Return(cached, nil)

	result, err := s.service.Search(ctx, "python")

	s.NoError(err)
	s.Equal("live", result.Origin)
	s.Len(result.Listings, 3)
}

func (s *SearchServiceTestSuite) TestSearch_KeywordIsNormalized() {
	ctx := context.Background()

	cached := []domain.Listing{
		storedListing("https://internshala.com/a", "python"),
		storedListing("https://internshala.com/b", "sql"),
	}
	s.store.EXPECT().QueryByKeyword(ctx, "python", 10).Return(cached, nil)

	result, err := s.service.Search(ctx, "  Python ")

	s.NoError(err)
	s.Equal("python", result.Keyword)
}

func (s *SearchServiceTestSuite) TestSearch_EmptyKeywordRejected() {
	_, err := s.service.Search(context.Background(), "   ")
	s.Error(err)
}

func (s *SearchServiceTestSuite) TestSearch_ExistingListingPublishedAsUpdate() {
	ctx := context.Background()

	scraped := []domain.Listing{storedListing("https://internshala.com/known", "python, sql")}

	s.store.EXPECT().QueryByKeyword(ctx, "python", 10).Return(nil, nil)

	s.fast.EXPECT().Collect(gomock.Any(), "python", 10).
		Return(scraped, &domain.CollectStats{Accepted: 1})

	s.store.EXPECT().Exists(gomock.Any(), "https://internshala.com/known").Return(true, nil)
	s.store.EXPECT().Upsert(gomock.Any(), &scraped[0]).Return(int64(7), nil)
	s.publisher.EXPECT().Publish(gomock.Any(), &scraped[0], false).Return(nil)

	s.store.EXPECT().QueryByKeyword(ctx, "python", 10).Return(scraped, nil)

	result, err := s.service.Search(ctx, "python")

	s.NoError(err)
	s.Equal("live", result.Origin)
}

func (s *SearchServiceTestSuite) TestSearch_BackgroundRefreshCoversRemainingSources() {
	ctx := context.Background()

	slow := mocks.NewMockCollector(s.ctrl)
	slow.EXPECT().SourceID().Return("unstop").AnyTimes()

	svc := NewSearchService(s.store, []Collector{s.fast, slow}, s.publisher, s.logger, s.cfg)

	s.store.EXPECT().QueryByKeyword(ctx, "python", 10).Return(nil, nil)

	s.fast.EXPECT().Collect(gomock.Any(), "python", 10).
		Return(nil, &domain.CollectStats{})

	s.store.EXPECT().QueryByKeyword(ctx, "python", 10).Return(nil, nil)

	fromSlow := []domain.Listing{storedListing("https://unstop.com/internships/x", "python")}
	slow.EXPECT().Collect(gomock.Any(), "python", 10).
		Return(fromSlow, &domain.CollectStats{Source: "unstop", Accepted: 1})

	s.store.EXPECT().Exists(gomock.Any(), "https://unstop.com/internships/x").Return(false, nil)
	s.store.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(int64(9), nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), true).Return(nil)

	result, err := svc.Search(ctx, "python")
	s.NoError(err)
	s.Equal("live", result.Origin)

	svc.Wait()
}

func (s *SearchServiceTestSuite) TestSearch_UpsertErrorSkipsPublish() {
	ctx := context.Background()

	scraped := []domain.Listing{storedListing("https://internshala.com/bad", "python")}

	s.store.EXPECT().QueryByKeyword(ctx, "python", 10).Return(nil, nil)

	s.fast.EXPECT().Collect(gomock.Any(), "python", 10).
		Return(scraped, &domain.CollectStats{Accepted: 1})

	s.store.EXPECT().Exists(gomock.Any(), "https://internshala.com/bad").Return(false, nil)
	s.store.EXPECT().Upsert(gomock.Any(), &scraped[0]).Return(int64(0), context.DeadlineExceeded)

	s.store.EXPECT().QueryByKeyword(ctx, "python", 10).Return(nil, nil)

	_, err := s.service.Search(ctx, "python")
	s.NoError(err)
}
