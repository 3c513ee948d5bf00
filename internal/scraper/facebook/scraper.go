// Scroll through a Facebook page feed
// Extract posts from each snapshot
// Validate and deduplicate them
// Stop on target, budget or stale feed
// Return the accepted posts

package facebook

import (
	"context"
	"fmt"
	"time"

	"go-kuensel-scraper/internal/dedup"
	"go-kuensel-scraper/internal/filter"
	"go-kuensel-scraper/internal/models"
	"go-kuensel-scraper/internal/scraper"
	"go-kuensel-scraper/internal/textnorm"

	log "github.com/sirupsen/logrus"
)

// SeeMoreSelector matches the buttons that expand truncated post text.
const SeeMoreSelector = "div[role='button']:has-text('See more')"

const DefaultPageURL = "https://www.facebook.com/Kuensel"

// Extractor turns one page snapshot into candidate posts.
type Extractor interface {
	ExtractAll(ctx context.Context, page string) []models.Post
}

// Pauses are the waits that let the feed load after an action. Zero means no
// wait.
type Pauses struct {
	BetweenScrolls time.Duration
	AfterExpand    time.Duration
}

type Options struct {
	PageURL                  string
	TargetCount              int
	MaxScrolls               int
	MaxConsecutiveEmpty      int
	MaxConsecutiveOld        int
	MinScrollsBeforeOldCheck int
	OverallTimeout           time.Duration
	ExpandEvery              int
	MaxExpansions            int
	ExpansionTimeout         time.Duration
	Pauses                   Pauses
	// polled once per scroll; true ends the run
	RuntimeCheck func() bool
	Dedup        dedup.Options
}

func DefaultOptions() Options {
	return Options{
		PageURL:                  DefaultPageURL,
		TargetCount:              25,
		MaxScrolls:               15,
		MaxConsecutiveEmpty:      3,
		MaxConsecutiveOld:        8,
		MinScrollsBeforeOldCheck: 3,
		OverallTimeout:           15 * time.Minute,
		ExpandEvery:              2,
		MaxExpansions:            10,
		ExpansionTimeout:         30 * time.Second,
		Pauses: Pauses{
			BetweenScrolls: time.Second,
			AfterExpand:    2 * time.Second,
		},
		Dedup: dedup.DefaultOptions(),
	}
}

// withDefaults fills unset limits. Pauses are left alone.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PageURL == "" {
		o.PageURL = d.PageURL
	}
	if o.TargetCount <= 0 {
		o.TargetCount = d.TargetCount
	}
	if o.MaxScrolls <= 0 {
		o.MaxScrolls = d.MaxScrolls
	}
	if o.MaxConsecutiveEmpty <= 0 {
		o.MaxConsecutiveEmpty = d.MaxConsecutiveEmpty
	}
	if o.MaxConsecutiveOld <= 0 {
		o.MaxConsecutiveOld = d.MaxConsecutiveOld
	}
	if o.MinScrollsBeforeOldCheck <= 0 {
		o.MinScrollsBeforeOldCheck = d.MinScrollsBeforeOldCheck
	}
	if o.OverallTimeout <= 0 {
		o.OverallTimeout = d.OverallTimeout
	}
	if o.ExpandEvery <= 0 {
		o.ExpandEvery = d.ExpandEvery
	}
	if o.MaxExpansions <= 0 {
		o.MaxExpansions = d.MaxExpansions
	}
	if o.ExpansionTimeout <= 0 {
		o.ExpansionTimeout = d.ExpansionTimeout
	}
	return o
}

type FacebookScraper struct {
	renderer  scraper.Renderer
	extractor Extractor
	validator *filter.Validator
	known     map[string]bool
	opts      Options
	now       func() time.Time
}

// New builds a scraper for one run. knownIDs are the ids already archived.
func New(renderer scraper.Renderer, extractor Extractor, validator *filter.Validator, knownIDs map[string]bool, opts Options) *FacebookScraper {
	return &FacebookScraper{
		renderer:  renderer,
		extractor: extractor,
		validator: validator,
		known:     knownIDs,
		opts:      opts.withDefaults(),
		now:       time.Now,
	}
}

func (s *FacebookScraper) Name() string {
	return "Facebook"
}

// Scrape opens the page and collects posts scroll by scroll. Budget and
// staleness stops are reported in Result.StopReason, never as errors. Only a
// failed navigation returns an error, wrapping scraper.ErrNavigation, together
// with an empty result.
func (s *FacebookScraper) Scrape(ctx context.Context) (*scraper.Result, error) {
	opts := s.opts
	start := s.now()
	deadline := start.Add(opts.OverallTimeout)
	session := dedup.NewSession(s.known, opts.Dedup)
	result := &scraper.Result{Posts: []models.Post{}}

	log.Printf("📋 Scraping up to %d posts from %s (%d archived ids)", opts.TargetCount, opts.PageURL, len(s.known))

	if err := s.renderer.Navigate(ctx, opts.PageURL); err != nil {
		log.Printf("❌ Could not open %s: %v", opts.PageURL, err)
		result.StopReason = scraper.StopNavigationFailed
		return result, fmt.Errorf("%w: %w", scraper.ErrNavigation, err)
	}

	var scrolls, consecutiveEmpty, consecutiveOld int

	for {
		if session.Len() >= opts.TargetCount {
			result.StopReason = scraper.StopTargetReached
			break
		}
		if scrolls >= opts.MaxScrolls {
			result.StopReason = scraper.StopMaxScrolls
			break
		}
		if ctx.Err() != nil {
			result.StopReason = scraper.StopCancelled
			break
		}
		if s.now().After(deadline) {
			log.Printf("⏰ Overall scraping timeout (%v) reached, stopping...", opts.OverallTimeout)
			result.StopReason = scraper.StopOverallTimeout
			break
		}
		if opts.RuntimeCheck != nil && opts.RuntimeCheck() {
			log.Println("⏰ Runtime limit reached, stopping scraping...")
			result.StopReason = scraper.StopRuntimeLimit
			break
		}

		result.Scrolls++
		log.WithField("scroll", result.Scrolls).Infof("📜 Scroll #%d (%d new posts so far, %v elapsed)",
			result.Scrolls, session.Len(), s.now().Sub(start).Round(time.Second))

		if err := s.renderer.Scroll(ctx); err != nil {
			log.Warnf("⚠️ Scroll failed: %v", err)
		}
		if scrolls%opts.ExpandEvery == 0 {
			result.Stats.Expanded += s.expand(ctx)
		}

		page, err := s.renderer.HTML(ctx)
		if err != nil {
			log.Warnf("⚠️ Could not read page HTML: %v", err)
		}

		posts := s.extractor.ExtractAll(ctx, page)
		unique := session.FilterBatch(posts)
		result.Stats.Extracted += len(posts)
		result.Stats.Duplicates += len(posts) - len(unique)
		log.Printf("📦 Extracted %d raw posts, %d unique in batch", len(posts), len(unique))

		oldCount := session.Len()
		valid, alreadyScraped := 0, 0

		for _, p := range unique {
			if s.now().After(deadline) {
				log.Println("⏰ Timeout reached during post processing, breaking...")
				break
			}

			switch status := session.Check(p); status {
			case dedup.StatusKnown:
				alreadyScraped++
				result.Stats.Known++
				log.Debugf("skipping archived post: %s", textnorm.Truncate(p.Title, 50))
			case dedup.StatusSeen, dedup.StatusSimilar:
				alreadyScraped++
				if status == dedup.StatusSimilar {
					result.Stats.Similar++
				} else {
					result.Stats.Duplicates++
				}
				log.Debugf("skipping %s post: %s", status, textnorm.Truncate(p.Title, 50))
			default:
				verdict := s.validator.Validate(p)
				if !verdict.Valid {
					result.Stats.Rejected++
					log.Debugf("🚫 rejected (%s): %s", verdict.Reason, textnorm.Truncate(p.Title, 30))
					continue
				}
				session.Accept(p)
				valid++
				log.Printf("  ✅ Added new post: %s", textnorm.Truncate(p.Title, 50))
			}
		}

		newCount := session.Len()
		log.Printf("🔎 %d valid posts in this scroll, %d total", valid, newCount)

		if alreadyScraped > 0 && valid == 0 {
			consecutiveOld++
			if scrolls >= opts.MinScrollsBeforeOldCheck && consecutiveOld >= opts.MaxConsecutiveOld {
				log.Printf("🛑 %d scrolls with only already-scraped posts after %d scrolls, reached old content", consecutiveOld, scrolls)
				result.StopReason = scraper.StopReachedOldContent
				break
			}
		} else {
			consecutiveOld = 0
		}

		if newCount == oldCount {
			consecutiveEmpty++
			if consecutiveEmpty >= opts.MaxConsecutiveEmpty {
				log.Println("🛑 No new content found after multiple scrolls. Stopping...")
				result.StopReason = scraper.StopConsecutiveEmpty
				break
			}
		} else {
			consecutiveEmpty = 0
		}

		if kept := session.Compact(); kept != newCount {
			log.Printf("🧹 Dropped %d duplicates, %d unique posts", newCount-kept, kept)
		}

		scrolls++
		pause(ctx, opts.Pauses.BetweenScrolls)
	}

	result.Posts = session.Accepted()
	result.Stats.Accepted = len(result.Posts)
	log.Printf("✅ Scraping finished (%s) in %v: %d new posts after %d scrolls",
		result.StopReason, s.now().Sub(start).Round(time.Second), len(result.Posts), result.Scrolls)
	return result, nil
}

// expand clicks "See more" buttons within the expansion budget and waits for
// the text to load when anything was clicked.
func (s *FacebookScraper) expand(ctx context.Context) int {
	ectx, cancel := context.WithTimeout(ctx, s.opts.ExpansionTimeout)
	defer cancel()

	clicked, err := s.renderer.ClickAll(ectx, SeeMoreSelector, s.opts.MaxExpansions)
	if err != nil {
		log.Debugf("expanding 'See more' stopped early: %v", err)
	}
	if clicked > 0 {
		log.Printf("📖 Expanded %d 'See more' links", clicked)
		pause(ctx, s.opts.Pauses.AfterExpand)
	}
	return clicked
}

func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
