package marketplace

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"listing-fraud-detector/config"
	"listing-fraud-detector/models"
	"listing-fraud-detector/utils"
)

const source = "marketplace"

// productJS reads the schema.org Product block of a page, falling back to
// common DOM selectors for anything the block does not carry.
const productJS = `
(function() {
	var out = {title: '', description: '', price: '', seller: '', rating: '', reviews: '', images: []};

	function first(v) { return Array.isArray(v) ? v[0] : v; }

	var blocks = document.querySelectorAll('script[type="application/ld+json"]');
	for (var i = 0; i < blocks.length; i++) {
		var data;
		try { data = JSON.parse(blocks[i].textContent); } catch (e) { continue; }
		var items = Array.isArray(data) ? data : (data['@graph'] || [data]);
		for (var j = 0; j < items.length; j++) {
			var p = items[j];
			if (!p || [].concat(p['@type']).indexOf('Product') < 0) continue;

			out.title = p.name || '';
			out.description = p.description || '';
			var offer = first(p.offers) || {};
			out.price = String(offer.price || offer.lowPrice || '');
			var seller = offer.seller || p.brand || {};
			out.seller = typeof seller === 'string' ? seller : (seller.name || '');
			var agg = p.aggregateRating || {};
			out.rating = String(agg.ratingValue || '');
			out.reviews = String(agg.reviewCount || agg.ratingCount || '');
			out.images = [].concat(p.image || []).map(function(im) {
				return typeof im === 'string' ? im : (im.url || '');
			});
			break;
		}
		if (out.title) break;
	}

	function text(sel) {
		var el = document.querySelector(sel);
		return el ? el.innerText.trim() : '';
	}
	if (!out.title) out.title = text('h1') || document.title;
	if (!out.price) out.price = text('[itemprop="price"]') || text('[class*="price"]');
	if (!out.seller) out.seller = text('[itemprop="seller"]') || text('[class*="seller"]');
	if (!out.description) {
		var meta = document.querySelector('meta[name="description"]');
		out.description = meta ? meta.content : '';
	}
	if (out.images.length === 0) {
		var og = document.querySelectorAll('meta[property="og:image"]');
		for (var k = 0; k < og.length; k++) out.images.push(og[k].content);
	}
	return out;
})()
`

// productPayload is the object returned by productJS.
type productPayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	Seller      string   `json:"seller"`
	Rating      string   `json:"rating"`
	Reviews     string   `json:"reviews"`
	Images      []string `json:"images"`
}

// Scraper collects raw listings from individual product pages.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
	pool   *utils.WorkerPool
	seen   *utils.SeenSet
	retry  *utils.RetryConfig

	mu       sync.Mutex
	listings []*models.RawListing
}

func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:    cfg,
		logger: logger,
		pool:   utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimit()),
		seen:   utils.NewSeenSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Collect visits every product URL once and returns what it could read.
// Pages that keep failing after retries are logged and skipped.
func (s *Scraper) Collect(ctx context.Context, urls []string) ([]*models.RawListing, error) {
	targets := make([]string, 0, len(urls))
	for _, raw := range urls {
		u, err := normaliseURL(raw)
		if err != nil {
			s.logger.Warn("[marketplace] Skipping %q: %v", raw, err)
			continue
		}
		if !s.seen.Add(u) {
			s.logger.Debug("[marketplace] Skipping duplicate: %s", u)
			continue
		}
		targets = append(targets, u)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("marketplace: no valid product URLs")
	}

	chromeBin := s.cfg.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	s.logger.Info("[marketplace] Collecting %d product pages (browser: %s)", len(targets), chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	// Start the browser up front so a missing binary fails once, not per page.
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, fmt.Errorf("marketplace: start browser: %w", err)
	}

	for _, target := range targets {
		u := target
		s.pool.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			raw, err := s.scrapeProduct(browserCtx, u)
			if err != nil {
				s.logger.Warn("[marketplace] %s failed: %v", u, err)
				return
			}
			s.mu.Lock()
			s.listings = append(s.listings, raw)
			s.mu.Unlock()
			s.logger.Debug("[marketplace] Collected: %s", raw.Title)
		})
	}
	s.pool.Wait()

	if err := ctx.Err(); err != nil {
		return s.listings, err
	}
	s.logger.Info("[marketplace] Collected %d / %d listings", len(s.listings), len(targets))
	return s.listings, nil
}

func (s *Scraper) scrapeProduct(browserCtx context.Context, pageURL string) (*models.RawListing, error) {
	var listing *models.RawListing

	err := s.retry.Do(browserCtx, "product-page", func() error {
		tabCtx, cancel := chromedp.NewContext(browserCtx)
		defer cancel()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 60*time.Second)
		defer cancelTimeout()

		var payload productPayload
		err := chromedp.Run(tabCtx,
			chromedp.Navigate(pageURL),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(2*time.Second),
			chromedp.Evaluate(productJS, &payload),
		)
		if err != nil {
			return fmt.Errorf("chromedp product extract: %w", err)
		}
		if strings.TrimSpace(payload.Title) == "" {
			return fmt.Errorf("no product title on page")
		}

		listing = payload.toRaw(pageURL, s.cfg.ScrapeCategory, s.cfg.ScrapeCountry, time.Now())
		return nil
	})
	return listing, err
}

func (p productPayload) toRaw(pageURL, category, country string, at time.Time) *models.RawListing {
	images := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}

	return &models.RawListing{
		Title:          p.Title,
		Description:    p.Description,
		RawPrice:       p.Price,
		Seller:         p.Seller,
		RawRating:      p.Rating,
		RawReviewCount: p.Reviews,
		Category:       category,
		Country:        country,
		Images:         images,
		URL:            pageURL,
		ScrapedAt:      at,
		Source:         source,
	}
}

// normaliseURL canonicalises a product URL so the same page is visited
// once: the host is lowercased and the fragment and tracking parameters
// are dropped.
func normaliseURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for key := range q {
		k := strings.ToLower(key)
		if strings.HasPrefix(k, "utm_") || k == "ref" || k == "gclid" || k == "fbclid" {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ReadURLFile reads one URL per line, ignoring blank lines and # comments.
func ReadURLFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, nil
}

// findChromeBinary locates a Chrome or Chromium binary, returning "" to let
// chromedp use its own lookup.
func findChromeBinary() string {
	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
