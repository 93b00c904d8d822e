// Package fallback implements the primary/secondary strategy chain: direct
// site fetch first, a domain-scoped web-search query only when the direct
// path yields nothing.
package fallback

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"

	"intern_radar/internal/browser"
	"intern_radar/internal/config"
	"intern_radar/internal/domain"
)

// WebSearch queries a generic search engine's HTML endpoint and parses its
// result blocks for title/link pairs. It never drives a browser: the
// endpoint serves static markup.
type WebSearch struct {
	client   *http.Client
	endpoint string
	cfg      config.FallbackConfig
	logger   *slog.Logger
}

func NewWebSearch(cfg config.FallbackConfig, logger *slog.Logger) *WebSearch {
	return &WebSearch{
		client:   &http.Client{Timeout: cfg.Timeout},
		endpoint: cfg.Endpoint,
		cfg:      cfg,
		logger:   logger.With("component", "websearch"),
	}
}

// Search issues a "site:<domain> <keyword>" query and returns raw listings
// scoped to siteDomain, at most limit. Transient HTTP failures are retried
// with exponential backoff until the configured elapsed budget runs out.
func (w *WebSearch) Search(ctx context.Context, sourceID, siteDomain, keyword string, limit int) ([]domain.RawListing, error) {
	query := fmt.Sprintf("site:%s %s", siteDomain, keyword)
	reqURL := fmt.Sprintf("%s?q=%s", w.endpoint, url.QueryEscape(query))

	var doc *goquery.Document
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", browser.RandomUserAgent())
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		resp, err := w.client.Do(req)
		if err != nil {
			return fmt.Errorf("search request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("search returned %d", resp.StatusCode)
		}

		doc, err = goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("parse results: %w", err))
		}
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime = w.cfg.MaxElapsedTime
	if err := backoff.Retry(operation, backoff.WithContext(expo, ctx)); err != nil {
		return nil, fmt.Errorf("query %q: %w", query, err)
	}

	return w.parseResults(doc, sourceID, siteDomain, keyword, limit), nil
}

func (w *WebSearch) parseResults(doc *goquery.Document, sourceID, siteDomain, keyword string, limit int) []domain.RawListing {
	var raws []domain.RawListing

	doc.Find(".result").EachWithBreak(func(_ int, block *goquery.Selection) bool {
		if len(raws) >= limit {
			return false
		}

		anchor := block.Find("a.result__a").First()
		title := strings.TrimSpace(anchor.Text())
		href, _ := anchor.Attr("href")
		link := resolveRedirect(href)

		if title == "" || link == "" || !strings.Contains(link, siteDomain) {
			return true
		}

		raws = append(raws, domain.RawListing{
			Title:   title,
			Link:    link,
			Source:  sourceID,
			Keyword: keyword,
		})
		return true
	})

	w.logger.Debug("parsed search results", "domain", siteDomain, "keyword", keyword, "count", len(raws))
	return raws
}

// resolveRedirect unwraps the engine's click-tracking URL ("uddg" parameter)
// back to the target link.
func resolveRedirect(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
