// Package extract turns rendered feed markup into post records.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-kuensel-scraper/internal/models"
	"go-kuensel-scraper/internal/textnorm"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// ArticleFetcher loads a page from the publisher's own site.
type ArticleFetcher interface {
	FetchArticle(ctx context.Context, url string) (*models.Article, error)
}

type Options struct {
	PageName       string
	PageID         string
	BaseURL        string
	ArticleDomains []string

	SkipPhotos        bool
	MaxPhotoLinks     int
	PhotoLinkTimeout  time.Duration
	PhotoTotalTimeout time.Duration

	PriorityPhrases []Category
	Categories      []Category
}

func DefaultOptions() Options {
	return Options{
		PageName:          "Kuensel",
		PageID:            "kuensel",
		BaseURL:           "https://www.facebook.com",
		ArticleDomains:    []string{"kuenselonline.com", "kuensel.bt"},
		MaxPhotoLinks:     2,
		PhotoLinkTimeout:  5 * time.Second,
		PhotoTotalTimeout: 15 * time.Second,
		PriorityPhrases:   DefaultPriorityPhrases,
		Categories:        DefaultCategories,
	}
}

var postSelectors = []string{
	"[role='article']",
	"[data-pagelet*='FeedUnit']",
	".userContentWrapper",
	"div[data-ft*='top_level_post_id']",
	"div[data-ad-preview='message']",
	".x1yztbdb",
}

var authorSelectors = []string{
	"[data-testid='story-subtitle']",
	"[data-testid='story-footer']",
	"h3 a",
	".fcg a",
}

const candidateKeyBytes = 300

type Extractor struct {
	opts     Options
	pages    PhotoPages
	articles ArticleFetcher
	now      func() time.Time
}

// NewExtractor builds an extractor. pages and articles may be nil, which
// turns off photo resolution and article enrichment respectively.
func NewExtractor(opts Options, pages PhotoPages, articles ArticleFetcher) *Extractor {
	defaults := DefaultOptions()
	if opts.PageName == "" {
		opts.PageName = defaults.PageName
	}
	if opts.PageID == "" {
		opts.PageID = defaults.PageID
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaults.BaseURL
	}
	if opts.MaxPhotoLinks <= 0 {
		opts.MaxPhotoLinks = defaults.MaxPhotoLinks
	}
	if opts.PhotoLinkTimeout <= 0 {
		opts.PhotoLinkTimeout = defaults.PhotoLinkTimeout
	}
	if opts.PhotoTotalTimeout <= 0 {
		opts.PhotoTotalTimeout = defaults.PhotoTotalTimeout
	}
	if opts.Categories == nil {
		opts.Categories = defaults.Categories
	}
	if opts.PriorityPhrases == nil {
		opts.PriorityPhrases = defaults.PriorityPhrases
	}

	return &Extractor{
		opts:     opts,
		pages:    pages,
		articles: articles,
		now:      time.Now,
	}
}

// SetClock replaces the wall clock used for createdAt.
func (e *Extractor) SetClock(now func() time.Time) {
	e.now = now
}

// ExtractAll parses a rendered page and returns one post per candidate
// subtree. A candidate that fails is logged and skipped.
func (e *Extractor) ExtractAll(ctx context.Context, page string) []models.Post {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		log.Errorf("❌ Parsing page: %v", err)
		return nil
	}

	candidates := Candidates(doc)
	log.Debugf("found %d unique post candidates", len(candidates))

	posts := make([]models.Post, 0, len(candidates))
	for i, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		post, err := e.safeExtract(ctx, c, i)
		if err != nil {
			log.WithField("candidate", i).Warnf("⚠️ Skipping candidate: %v", err)
			continue
		}
		posts = append(posts, *post)
	}
	return posts
}

// Candidates returns the post subtrees of a page in document order per
// selector, without comment articles nested in posts and without repeats.
func Candidates(doc *goquery.Document) []*goquery.Selection {
	seen := make(map[string]bool)
	var out []*goquery.Selection

	for _, selector := range postSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if s.Is("[role='article']") && s.ParentsFiltered("[role='article']").Length() > 0 {
				return
			}
			outer, err := goquery.OuterHtml(s)
			if err != nil {
				return
			}
			key := outer
			if len(key) > candidateKeyBytes {
				key = key[:candidateKeyBytes]
			}
			if seen[key] {
				return
			}
			seen[key] = true
			out = append(out, s)
		})
	}
	return out
}

func (e *Extractor) safeExtract(ctx context.Context, sel *goquery.Selection, index int) (post *models.Post, err error) {
	defer func() {
		if r := recover(); r != nil {
			post, err = nil, fmt.Errorf("panic extracting candidate %d: %v", index, r)
		}
	}()
	return e.Extract(ctx, sel, index)
}

// Extract builds one post from a candidate subtree.
func (e *Extractor) Extract(ctx context.Context, sel *goquery.Selection, index int) (*models.Post, error) {
	if sel == nil || sel.Length() == 0 {
		return nil, fmt.Errorf("empty candidate %d", index)
	}

	content := SelectContent(sel)
	timestamp := postTimestamp(sel)
	authorName, authorID := e.postAuthor(sel)

	aggregate := sel.Text()
	engagement := models.Engagement{
		Reactions: firstCount(reactionRegex, aggregate),
		Comments:  firstCount(commentRegex, aggregate),
		Shares:    firstCount(shareRegex, aggregate),
	}

	links := ExtractLinks(sel, e.opts.BaseURL)
	media := ExtractMedia(sel)
	images := newURLSet()
	for _, img := range media.Images {
		images.add(img)
	}

	if e.pages != nil && !e.opts.SkipPhotos && len(links) > 0 {
		for _, img := range e.resolvePhotos(ctx, links) {
			images.add(img)
		}
	}

	finalContent := content
	source := models.SourceFacebookPost
	var article *models.Article
	if e.articles != nil {
		article = e.fetchArticle(ctx, links)
	}
	if article != nil && textnorm.RuneLen(article.Body) > textnorm.RuneLen(content) {
		finalContent = article.Body
		source = models.SourceFullArticle
		log.Printf("📰 Using full article (%d chars) from %s", textnorm.RuneLen(article.Body), article.URL)
	}

	var title string
	if article != nil && textnorm.RuneLen(article.Title) > 10 {
		title = article.Title
	} else {
		title = DeriveTitle(finalContent)
	}

	createdAt := e.now().Format(time.RFC3339)
	publishAt := timestamp
	if publishAt == "" {
		publishAt = createdAt
	}

	attachment := models.NewAttachment()
	attachment.Images = images.list()
	attachment.Videos = media.Videos
	attachment.Links = links

	return &models.Post{
		ID:               PostID(finalContent, timestamp, index),
		Title:            title,
		Description:      DeriveDescription(finalContent, title),
		Content:          finalContent,
		Category:         Categorize(finalContent, e.opts.PriorityPhrases, e.opts.Categories),
		AuthorID:         authorID,
		AuthorName:       authorName,
		Attachment:       attachment,
		Engagement:       engagement,
		CreatedAt:        createdAt,
		PublishAt:        publishAt,
		RawContentLength: textnorm.RuneLen(finalContent),
		ArticleSource:    source,
	}, nil
}

// the machine-readable datetime wins over the displayed text
func postTimestamp(sel *goquery.Selection) string {
	t := sel.Find("time").First()
	if t.Length() == 0 {
		return ""
	}
	if dt := strings.TrimSpace(t.AttrOr("datetime", "")); dt != "" {
		return dt
	}
	return textnorm.CollapseSpace(t.Text())
}

func (e *Extractor) postAuthor(sel *goquery.Selection) (name, id string) {
	for _, selector := range authorSelectors {
		elem := sel.Find(selector).First()
		if elem.Length() == 0 {
			continue
		}
		// subtitles carry "4h · Shared with Public"; Clean leaves nothing of that
		text := textnorm.Clean(elem.Text())
		if text == "" || text == e.opts.PageName {
			continue
		}
		if slug := slugify(text); slug != "" {
			return text, slug
		}
	}
	return e.opts.PageName, e.opts.PageID
}

func (e *Extractor) fetchArticle(ctx context.Context, links []string) *models.Article {
	for _, link := range links {
		if !containsAny(link, e.opts.ArticleDomains) {
			continue
		}
		article, err := e.articles.FetchArticle(ctx, link)
		if err != nil {
			log.Warnf("⚠️ Fetching article %s: %v", link, err)
			return nil
		}
		return article
	}
	return nil
}
