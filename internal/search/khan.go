// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/pdiddy/edusearch/internal/logger"
	"github.com/pdiddy/edusearch/pkg/types"
)

// khanSearchBase is the Khan Academy search page. Declared as a var so
// tests can point the scraper elsewhere.
var khanSearchBase = "https://www.khanacademy.org/search"

// khanIdleWait bounds the wait for the results list to settle after the
// container appears.
const khanIdleWait = 5 * time.Second

// KhanSelectors locate result fields on the rendered search page. The
// site uses generated class names, so these drift and are overridable.
type KhanSelectors struct {
	Container   string
	Item        string
	Title       string
	Description string
	Image       string
	Link        string
	Type        string
}

// DefaultKhanSelectors match the search page layout at time of writing.
var DefaultKhanSelectors = KhanSelectors{
	Container:   "#indexed-search-results",
	Item:        "#indexed-search-results > div._xu2jcg > ul > li",
	Title:       "div > a > div > div._pxfwtyj > div._2dibcm7",
	Description: "div > a > div > div._pxfwtyj > span",
	Image:       ".thumbnail img",
	Link:        "a",
	Type:        ".type",
}

// ScrapedItem is one result as read off the page, before normalization.
type ScrapedItem struct {
	Title       string
	Description string
	ImageURL    string
	Link        string
	TypeLabel   string
}

// BrowserSession is an acquired headless browser. Close must release it.
type BrowserSession interface {
	Scrape(ctx context.Context, pageURL string, sel KhanSelectors) ([]ScrapedItem, error)
	Close() error
}

// BrowserOpener acquires a fresh BrowserSession.
type BrowserOpener func(ctx context.Context) (BrowserSession, error)

// KhanAcademyBackend scrapes the Khan Academy search page with a headless
// browser. Every fetch acquires its own session and releases it on every
// exit path.
type KhanAcademyBackend struct {
	Open      BrowserOpener
	Selectors *KhanSelectors
	Timeout   time.Duration
	Logger    *zap.Logger

	// Classify maps the type label; nil uses KhanClassifier.
	Classify Classifier
}

// Name returns the source identifier.
func (b *KhanAcademyBackend) Name() types.Source { return types.SourceKhanAcademy }

// FetchTimeout overrides the aggregator's per-source timeout.
func (b *KhanAcademyBackend) FetchTimeout() time.Duration { return b.Timeout }

// Fetch renders the search page for query and reads the result list.
func (b *KhanAcademyBackend) Fetch(ctx context.Context, query string) ([]types.CandidateResult, error) {
	open := b.Open
	if open == nil {
		open = RodOpener("")
	}
	sel := DefaultKhanSelectors
	if b.Selectors != nil {
		sel = *b.Selectors
	}
	classify := b.Classify
	if classify == nil {
		classify = KhanClassifier
	}

	sess, err := open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening browser: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.OrNop(b.Logger).Warn("closing browser session", zap.Error(cerr))
		}
	}()

	params := url.Values{
		"search_again":      {"1"},
		"page_search_query": {query},
	}
	items, err := sess.Scrape(ctx, khanSearchBase+"?"+params.Encode(), sel)
	if err != nil {
		return nil, fmt.Errorf("scraping Khan Academy: %w", err)
	}

	var results []types.CandidateResult
	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		results = append(results, types.CandidateResult{
			Title:       title,
			Description: collapseSpace(it.Description),
			ImageURL:    imageOrPlaceholder(it.ImageURL),
			Link:        strings.TrimSpace(it.Link),
			ContentType: classify(it.TypeLabel),
			Source:      types.SourceKhanAcademy,
		})
	}
	return results, nil
}

// RodOpener launches a local headless Chromium through rod. bin selects
// the browser binary; empty lets rod find or download one.
func RodOpener(bin string) BrowserOpener {
	return func(ctx context.Context) (BrowserSession, error) {
		l := launcher.New().Context(ctx).Headless(true)
		if bin != "" {
			l = l.Bin(bin)
		}
		controlURL, err := l.Launch()
		if err != nil {
			l.Kill()
			l.Cleanup()
			return nil, fmt.Errorf("launching browser: %w", err)
		}

		browser := rod.New().ControlURL(controlURL)
		if err := browser.Connect(); err != nil {
			l.Kill()
			l.Cleanup()
			return nil, fmt.Errorf("connecting to browser: %w", err)
		}
		return &rodSession{launcher: l, browser: browser}, nil
	}
}

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func (s *rodSession) Scrape(ctx context.Context, pageURL string, sel KhanSelectors) ([]ScrapedItem, error) {
	page, err := s.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	defer page.Close()

	if _, err := page.Element(sel.Container); err != nil {
		return nil, fmt.Errorf("waiting for results container: %w", err)
	}
	if err := page.WaitIdle(khanIdleWait); err != nil {
		return nil, fmt.Errorf("waiting for page to settle: %w", err)
	}

	lis, err := page.Elements(sel.Item)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}

	items := make([]ScrapedItem, 0, len(lis))
	for _, li := range lis {
		items = append(items, ScrapedItem{
			Title:       childText(li, sel.Title),
			Description: childText(li, sel.Description),
			ImageURL:    childAttr(li, sel.Image, "src"),
			Link:        childHref(li, sel.Link),
			TypeLabel:   childText(li, sel.Type),
		})
	}
	return items, nil
}

func (s *rodSession) Close() error {
	err := s.browser.Close()
	if err != nil {
		s.launcher.Kill()
	}
	s.launcher.Cleanup()
	return err
}

// Field readers return "" for missing children; one broken result must
// not drop the rest.

func childText(el *rod.Element, selector string) string {
	has, child, err := el.Has(selector)
	if err != nil || !has {
		return ""
	}
	txt, err := child.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(txt)
}

func childAttr(el *rod.Element, selector, name string) string {
	has, child, err := el.Has(selector)
	if err != nil || !has {
		return ""
	}
	v, err := child.Attribute(name)
	if err != nil || v == nil {
		return ""
	}
	return *v
}

func childHref(el *rod.Element, selector string) string {
	has, child, err := el.Has(selector)
	if err != nil || !has {
		return ""
	}
	v, err := child.Property("href")
	if err != nil {
		return ""
	}
	return v.Str()
}
