// Package internshala fetches internship cards from internshala.com, the
// designated fast-path source. Cards hide apply-by dates and often lazy-load
// skills, so a bounded number of detail pages are read to backfill them.
package internshala

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"intern_radar/internal/browser"
	"intern_radar/internal/domain"
	"intern_radar/internal/filter"
	"intern_radar/internal/source"
)

const (
	SourceID   = "internshala"
	SourceName = "Internshala"

	baseURL      = "https://internshala.com"
	siteDomain   = "internshala.com"
	cardSelector = ".individual_internship"

	// maxDetailReads bounds per-cycle deep fetches; dates are nice to have,
	// not worth a full page load per card.
	maxDetailReads = 3
)

var (
	titleSelectors    = source.FieldSelectors{"h3", ".job-internship-name", ".profile h3", "h4.heading"}
	linkSelectors     = source.FieldSelectors{".view_detail_button", "a"}
	companySelectors  = source.FieldSelectors{".company_name", ".company-name", ".company h4"}
	locationSelectors = source.FieldSelectors{".locations", "#location_names", ".location_link"}
	stipendSelectors  = source.FieldSelectors{".stipend", "span.stipend"}
	durationSelectors = source.FieldSelectors{".internship_other_details_container .item_body", ".duration"}
	skillsSelectors   = source.FieldSelectors{".job_skills", ".tags_container"}
	deadlineSelectors = source.FieldSelectors{".apply_by .item_body", ".status-info"}

	applyByRe       = regexp.MustCompile(`(?i)apply by\s*\d{1,2}\s[A-Za-z]{3}'?\s?\d{2}`)
	skillsSectionRe = regexp.MustCompile(`(?is)skills required(.*?)(?:who can apply|perks|salary|$)`)
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

// Fetch opens an isolated session, loads the keyword search page and extracts
// up to limit relevant cards. Timeouts, missing containers and challenge
// pages all degrade to an empty result.
func (s *Source) Fetch(ctx context.Context, keyword string, limit int) ([]domain.RawListing, error) {
	sess, err := s.launcher.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer sess.Close()

	term := source.CleanKeyword(keyword)
	searchURL := fmt.Sprintf("%s/internships/keywords-%s", baseURL, strings.ReplaceAll(term, " ", "-"))

	if err := sess.Navigate(searchURL); err != nil {
		s.logger.Warn("navigation failed", "url", searchURL, "error", err)
		return nil, nil
	}

	if title, err := sess.Title(); err == nil && source.LooksBlocked(title) {
		s.logger.Warn("challenge page detected, aborting for this cycle", "title", title)
		return nil, nil
	}

	if err := sess.WaitForSelector(cardSelector); err != nil {
		s.logger.Warn("listing container never appeared", "error", err)
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
	s.enrichFromDetails(sess, raws)

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

		href, ok := card.Attr("data-href")
		if !ok || strings.TrimSpace(href) == "" {
			href = linkSelectors.Attr(card, "href")
		}
		if strings.TrimSpace(href) == "" {
			return true
		}

		cardText := card.Text()
		raws = append(raws, domain.RawListing{
			Title:       title,
			Company:     companySelectors.Text(card),
			Link:        source.AbsoluteURL(baseURL, href),
			Source:      SourceID,
			Keyword:     keyword,
			Location:    locationSelectors.Text(card),
			DurationRaw: firstNonEmpty(durationSelectors.Text(card), cardText),
			StipendRaw:  firstNonEmpty(stipendSelectors.Text(card), cardText),
			SkillsRaw:   skillsSelectors.Text(card),
			DeadlineRaw: deadlineSelectors.Text(card),
		})
		return true
	})

	return raws
}

// enrichFromDetails backfills missing skills and deadlines from posting
// pages, a few per cycle. Failures leave the card's defaults in place.
func (s *Source) enrichFromDetails(sess *browser.Session, raws []domain.RawListing) {
	reads := 0
	for i := range raws {
		if reads >= maxDetailReads {
			return
		}
		if raws[i].SkillsRaw != "" && raws[i].DeadlineRaw != "" {
			continue
		}

		body, err := sess.BodyText(raws[i].Link)
		if err != nil {
			s.logger.Debug("detail read failed", "link", raws[i].Link, "error", err)
			continue
		}
		reads++

		if raws[i].DeadlineRaw == "" {
			raws[i].DeadlineRaw = applyByRe.FindString(body)
		}
		if raws[i].SkillsRaw == "" {
			if m := skillsSectionRe.FindStringSubmatch(body); m != nil {
				raws[i].SkillsRaw = m[1]
			}
		}

		sess.Pause(500 * time.Millisecond)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
