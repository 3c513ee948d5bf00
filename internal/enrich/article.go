// Package enrich fetches full articles from the publisher's own site.
package enrich

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go-kuensel-scraper/internal/models"
	"go-kuensel-scraper/internal/textnorm"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

const (
	defaultUserAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	defaultMaxBodyBytes = 5 << 20
)

var titleSelectors = []string{
	"h1.entry-title",
	"h1.post-title",
	"h1.article-title",
	".title h1",
	"h1",
	"title",
}

var bodySelectors = []string{
	".entry-content",
	".post-content",
	".article-content",
	".content",
	"article",
	".main-content p",
	".post-body",
	".entry-body",
}

var blankLinesRegex = regexp.MustCompile(`\n+`)

// Fetcher downloads article pages and extracts their title and body.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
}

type Option func(*Fetcher)

func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.client.Timeout = d
	}
}

func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the client. Its timeout is kept as is.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

func WithMaxBodyBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodyBytes = n
		}
	}
}

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:       &http.Client{Timeout: 10 * time.Second},
		userAgent:    defaultUserAgent,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchArticle downloads rawURL and extracts the article. A page without a
// recognisable body yields an Article with an empty Body, not an error.
func (f *Fetcher) FetchArticle(ctx context.Context, rawURL string) (*models.Article, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid article URL: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch article: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read article: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse article: %w", err)
	}

	article := &models.Article{
		URL:   rawURL,
		Title: articleTitle(doc),
		Body:  articleBody(doc),
	}

	if article.Body == "" {
		if parsedArticle, err := readability.FromReader(bytes.NewReader(raw), parsed); err == nil {
			article.Body = textnorm.CollapseSpace(parsedArticle.TextContent)
			if article.Title == "" {
				article.Title = strings.TrimSpace(parsedArticle.Title)
			}
		}
	}

	return article, nil
}

func articleTitle(doc *goquery.Document) string {
	for _, selector := range titleSelectors {
		if text := textnorm.CollapseSpace(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// articleBody tries every body selector and keeps the longest text. Inside a
// match, paragraphs are joined by blank lines; without paragraphs the whole
// text is used.
func articleBody(doc *goquery.Document) string {
	best := ""
	for _, selector := range bodySelectors {
		elem := doc.Find(selector).First()
		if elem.Length() == 0 {
			continue
		}

		var text string
		paragraphs := elem.Find("p")
		if paragraphs.Length() > 0 {
			var parts []string
			paragraphs.Each(func(_ int, p *goquery.Selection) {
				if t := strings.TrimSpace(p.Text()); t != "" {
					parts = append(parts, t)
				}
			})
			text = strings.Join(parts, "\n\n")
		} else {
			text = strings.TrimSpace(elem.Text())
		}

		if len(text) > len(best) {
			best = text
		}
	}

	if best == "" {
		return ""
	}
	best = blankLinesRegex.ReplaceAllString(best, "\n\n")
	return textnorm.CollapseSpace(best)
}
