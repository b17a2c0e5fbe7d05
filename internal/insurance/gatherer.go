// Package insurance crawls clinic websites and extracts accepted
// insurance and payment information with an LLM.
package insurance

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clinic-atlas/directory-cli/internal/model"
	"github.com/clinic-atlas/directory-cli/internal/scrape"
)

// Character budgets for the combined extraction context. The main page
// gets a short excerpt; a dedicated insurance page deserves a longer
// one; the total stays within a small prompt.
const (
	mainPageBudget  = 3000
	innerPageBudget = 5000
	totalBudget     = 8000
)

// DefaultCandidatePaths are the site paths tried after the main page,
// in order. Kept short: every path adds a fetch per clinic.
var DefaultCandidatePaths = []string{
	"/insurance",
	"/billing",
	"/patient-information",
	"/payment",
}

// insuranceKeywords gate candidate pages: a page without any of these
// is navigation noise, not an insurance page.
var insuranceKeywords = []string{
	"insurance", "medicare", "medicaid", "blue cross",
	"aetna", "cigna", "united", "humana", "payment",
	"billing", "accepted", "we accept",
}

// Fetcher fetches one URL through the scraper chain.
type Fetcher interface {
	Scrape(ctx context.Context, url string) (*scrape.Result, error)
}

// PageCache stores fetched pages between runs.
type PageCache interface {
	GetCachedPage(ctx context.Context, url string) (*model.CrawledPage, error)
	SetCachedPage(ctx context.Context, url string, page model.CrawledPage, source string, ttl time.Duration) error
}

// Gatherer assembles the extraction context for one clinic website:
// a main-page excerpt, the first candidate page that looks like an
// insurance page, and the site homepage as a fallback.
type Gatherer struct {
	fetch    Fetcher
	cache    PageCache // optional
	cacheTTL time.Duration
	paths    []string
}

// NewGatherer creates a Gatherer. cache may be nil to disable caching.
func NewGatherer(fetch Fetcher, cache PageCache, cacheTTL time.Duration, paths []string) *Gatherer {
	if len(paths) == 0 {
		paths = DefaultCandidatePaths
	}
	return &Gatherer{
		fetch:    fetch,
		cache:    cache,
		cacheTTL: cacheTTL,
		paths:    paths,
	}
}

// NormalizeWebsite makes a directory website value fetchable: a missing
// scheme becomes https, and a trailing slash is dropped.
func NormalizeWebsite(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	if !strings.HasPrefix(website, "http") {
		website = "https://" + website
	}
	return strings.TrimRight(website, "/")
}

// siteRoot reduces a URL to scheme://host.
func siteRoot(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "insurance: parse url %s", rawURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", eris.Errorf("insurance: url %s has no host", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// hasInsuranceKeywords reports whether page content mentions insurance
// or payment terms.
func hasInsuranceKeywords(content string) bool {
	lower := strings.ToLower(content)
	for _, k := range insuranceKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// page fetches one URL, consulting and filling the cache.
func (g *Gatherer) page(ctx context.Context, pageURL string) (*model.CrawledPage, error) {
	if g.cache != nil {
		cached, err := g.cache.GetCachedPage(ctx, pageURL)
		if err != nil {
			zap.L().Warn("insurance: cache read failed", zap.String("url", pageURL), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	result, err := g.fetch.Scrape(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		if err := g.cache.SetCachedPage(ctx, pageURL, result.Page, result.Source, g.cacheTTL); err != nil {
			zap.L().Warn("insurance: cache write failed", zap.String("url", pageURL), zap.Error(err))
		}
	}
	return &result.Page, nil
}

// Gather crawls a clinic website and returns the combined extraction
// context, or "" when nothing useful was found.
func (g *Gatherer) Gather(ctx context.Context, website string) string {
	baseURL := NormalizeWebsite(website)
	if baseURL == "" {
		return ""
	}
	root, err := siteRoot(baseURL)
	if err != nil {
		zap.L().Debug("insurance: bad website url", zap.String("website", website), zap.Error(err))
		return ""
	}

	var sections []string

	// The directory URL itself, which may be a deep page.
	if page, err := g.page(ctx, baseURL); err != nil {
		zap.L().Debug("insurance: main page fetch failed", zap.String("url", baseURL), zap.Error(err))
	} else if scrape.Useful(page.Content) {
		sections = append(sections, "=== MAIN PAGE ===\n"+truncate(page.Content, mainPageBudget))
	}

	// Candidate insurance pages live on the site root, not the deep URL.
	foundInsurancePage := false
	for _, path := range g.paths {
		page, err := g.page(ctx, root+path)
		if err != nil {
			continue
		}
		if !scrape.Useful(page.Content) || !hasInsuranceKeywords(page.Content) {
			continue
		}
		zap.L().Debug("insurance: found insurance page",
			zap.String("root", root),
			zap.String("path", path),
		)
		sections = append(sections, fmt.Sprintf("=== PAGE: %s ===\n%s", path, truncate(page.Content, innerPageBudget)))
		foundInsurancePage = true
		break
	}

	// Without a dedicated insurance page, the homepage may still carry
	// a plans blurb. Only worth fetching when the base URL was deep.
	if !foundInsurancePage && root != baseURL {
		if page, err := g.page(ctx, root); err == nil && scrape.Useful(page.Content) {
			sections = append(sections, "=== SITE HOMEPAGE ===\n"+truncate(page.Content, innerPageBudget))
		}
	}

	if len(sections) == 0 {
		return ""
	}
	return truncate(strings.Join(sections, "\n\n"), totalBudget)
}
