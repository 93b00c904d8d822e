// Package unstop fetches internship postings from unstop.com. The site
// renders cards as anchor tiles without a stable card class, so extraction
// keys off internship detail links.
package unstop

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"intern_radar/internal/browser"
	"intern_radar/internal/domain"
	"intern_radar/internal/filter"
	"intern_radar/internal/source"
)

const (
	SourceID   = "unstop"
	SourceName = "Unstop"

	baseURL      = "https://unstop.com"
	siteDomain   = "unstop.com"
	cardSelector = "a[href*='/internships/']"
)

var (
	titleSelectors   = source.FieldSelectors{"strong", "h2", ".double-wrap h4"}
	companySelectors = source.FieldSelectors{".company-name", "p", ".un-subtitle"}
	detailSelectors  = source.FieldSelectors{".other_fields", ".seperate_box"}
)

type Source struct {
	launcher *browser.Launcher
	filter   *filter.Relevance
	logger   *slog.Logger
}

func New(launcher *browser.Launcher, relevance *filter.Relevance, logger *slog.Logger) *Source {
	return &Source{
		launcher: launcher,
		filter:   relevance,
		logger:   logger.With("source", SourceID),
	}
}

func (s *Source) ID() string {
	return SourceID
}

func (s *Source) Name() string {
	return SourceName
}

func (s *Source) Domain() string {
	return siteDomain
}

func (s *Source) Fetch(ctx context.Context, keyword string, limit int) ([]domain.RawListing, error) {
	sess, err := s.launcher.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer sess.Close()

	searchURL := fmt.Sprintf("%s/internships?searchTerm=%s", baseURL, url.QueryEscape(source.CleanKeyword(keyword)))

	if err := sess.Navigate(searchURL); err != nil {
		s.logger.Warn("navigation failed", "url", searchURL, "error", err)
		return nil, nil
	}

	if title, err := sess.Title(); err == nil && source.LooksBlocked(title) {
		s.logger.Warn("challenge page detected, aborting for this cycle", "title", title)
		return nil, nil
	}

	if err := sess.WaitForSelector(cardSelector); err != nil {
		s.logger.Warn("listing tiles never appeared", "error", err)
		return nil, nil
	}

	html, err := sess.HTML()
	if err != nil {
		s.logger.Warn("could not read document", "error", err)
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		s.logger.Warn("could not parse document", "error", err)
		return nil, nil
	}

	raws := s.extractTiles(doc, keyword, limit)
	s.logger.Info("fetched tiles", "keyword", keyword, "accepted", len(raws))
	return raws, nil
}

func (s *Source) extractTiles(doc *goquery.Document, keyword string, limit int) []domain.RawListing {
	var raws []domain.RawListing
	seen := make(map[string]struct{})

	doc.Find(cardSelector).EachWithBreak(func(_ int, tile *goquery.Selection) bool {
		if len(raws) >= limit {
			return false
		}

		title := titleSelectors.Text(tile)
		if title == "" || !s.filter.IsRelevant(title, keyword) {
			return true
		}

		href, _ := tile.Attr("href")
		link := source.AbsoluteURL(baseURL, href)
		if link == "" {
			return true
		}
		// The same posting is linked from several tiles on one page.
		if _, dup := seen[link]; dup {
			return true
		}
		seen[link] = struct{}{}

		detail := detailSelectors.Text(tile)
		raws = append(raws, domain.RawListing{
			Title:       title,
			Company:     firstNonEmpty(companySelectors.Text(tile), "Unstop Partner"),
			Link:        link,
			Source:      SourceID,
			Keyword:     keyword,
			DurationRaw: detail,
			StipendRaw:  detail,
		})
		return true
	})

	return raws
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
