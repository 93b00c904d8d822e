// Package prosple fetches internship postings from in.prosple.com.
package prosple

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
	SourceID   = "prosple"
	SourceName = "Prosple"

	baseURL      = "https://in.prosple.com"
	siteDomain   = "in.prosple.com"
	cardSelector = ".SearchJobCard"
)

var (
	titleSelectors    = source.FieldSelectors{"h2", "h3", ".job-title"}
	linkSelectors     = source.FieldSelectors{"h2 a", "a"}
	companySelectors  = source.FieldSelectors{".EmployerName", ".employer", "h4"}
	locationSelectors = source.FieldSelectors{".LocationText", ".location"}
	salarySelectors   = source.FieldSelectors{".SalaryRange", ".salary"}
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

	searchURL := fmt.Sprintf("%s/search-jobs?keywords=%s&locations=India",
		baseURL, url.QueryEscape(source.CleanKeyword(keyword)))

	if err := sess.Navigate(searchURL); err != nil {
		s.logger.Warn("navigation failed", "url", searchURL, "error", err)
		return nil, nil
	}

	if title, err := sess.Title(); err == nil && source.LooksBlocked(title) {
		s.logger.Warn("challenge page detected, aborting for this cycle", "title", title)
		return nil, nil
	}

	if err := sess.WaitForSelector(cardSelector); err != nil {
		s.logger.Warn("listing cards never appeared", "error", err)
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

	raws := s.extractCards(doc, keyword, limit)
	s.logger.Info("fetched cards", "keyword", keyword, "accepted", len(raws))
	return raws, nil
}

func (s *Source) extractCards(doc *goquery.Document, keyword string, limit int) []domain.RawListing {
	var raws []domain.RawListing

	doc.Find(cardSelector).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if len(raws) >= limit {
			return false
		}

		title := titleSelectors.Text(card)
		if title == "" || !s.filter.IsRelevant(title, keyword) {
			return true
		}

		href := linkSelectors.Attr(card, "href")
		link := source.AbsoluteURL(baseURL, href)
		if link == "" {
			return true
		}

		company := companySelectors.Text(card)
		if company == "" {
			company = "Prosple Employer"
		}

		raws = append(raws, domain.RawListing{
			Title:      title,
			Company:    company,
			Link:       link,
			Source:     SourceID,
			Keyword:    keyword,
			Location:   locationSelectors.Text(card),
			StipendRaw: salarySelectors.Text(card),
		})
		return true
	})

	return raws
}
