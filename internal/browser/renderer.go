package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-kuensel-scraper/internal/extract"
	"go-kuensel-scraper/internal/scraper"
	"go-kuensel-scraper/utils"

	"github.com/playwright-community/playwright-go"
	log "github.com/sirupsen/logrus"
)

const postsTabSelector = "a[role='tab']:has-text('Posts'), div[role='tab']:has-text('Posts')"

type RendererOptions struct {
	NavigationTimeout time.Duration
	ClickTimeout      time.Duration
	ScrollSteps       int
	ScrollPause       time.Duration
	// settle time after the page and the Posts tab load
	SettleDelay   time.Duration
	ScreenshotDir string
}

func DefaultRendererOptions() RendererOptions {
	return RendererOptions{
		NavigationTimeout: 30 * time.Second,
		ClickTimeout:      2 * time.Second,
		ScrollSteps:       3,
		ScrollPause:       time.Second,
		SettleDelay:       3 * time.Second,
		ScreenshotDir:     utils.DefaultScreenshotDir,
	}
}

var (
	_ scraper.Renderer   = (*Renderer)(nil)
	_ extract.PhotoPages = (*Renderer)(nil)
)

// Renderer drives one primary page plus at most one secondary tab.
type Renderer struct {
	bctx  playwright.BrowserContext
	page  playwright.Page
	tab   playwright.Page
	shots *utils.ScreenShotDebugger
	opts  RendererOptions
}

func NewRenderer(bctx playwright.BrowserContext, opts RendererOptions) (*Renderer, error) {
	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("new page: %w", err)
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}
	if opts.ClickTimeout <= 0 {
		opts.ClickTimeout = 2 * time.Second
	}
	return &Renderer{
		bctx:  bctx,
		page:  page,
		shots: utils.NewScreenShotDebugger(opts.ScreenshotDir),
		opts:  opts,
	}, nil
}

func (r *Renderer) current() playwright.Page {
	if r.tab != nil {
		return r.tab
	}
	return r.page
}

// Navigate opens url in the primary page and switches to the Posts tab when
// the page shows one.
func (r *Renderer) Navigate(ctx context.Context, url string) error {
	log.Printf("🏠 Navigating to %s", url)
	if _, err := r.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   timeoutMillis(ctx, r.opts.NavigationTimeout),
	}); err != nil {
		r.shots.CaptureAndLog(r.page, "navigation-failed", "🚨 Navigation failed")
		return fmt.Errorf("goto %s: %w", url, err)
	}
	RandomDelay(ctx, r.opts.SettleDelay, r.opts.SettleDelay+time.Second)

	postsTab := r.page.Locator(postsTabSelector).First()
	if visible, _ := postsTab.IsVisible(); visible {
		if err := postsTab.Click(playwright.LocatorClickOptions{
			Timeout: timeoutMillis(ctx, r.opts.ClickTimeout),
		}); err != nil {
			log.Debugf("posts tab click failed: %v", err)
		} else {
			log.Println("📰 Switched to Posts tab")
			RandomDelay(ctx, r.opts.SettleDelay, r.opts.SettleDelay+time.Second)
		}
	}

	if title, err := r.page.Title(); err == nil {
		log.Printf("✅ Page loaded: %s", title)
	}
	return ctx.Err()
}

func (r *Renderer) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return r.current().Content()
}

func (r *Renderer) Scroll(ctx context.Context) error {
	return StepScroll(ctx, r.page, r.opts.ScrollSteps, r.opts.ScrollPause)
}

// ClickAll clicks up to limit visible matches of selector in the primary
// page. Individual click failures are skipped; ctx ends the pass early.
func (r *Renderer) ClickAll(ctx context.Context, selector string, limit int) (int, error) {
	buttons, err := r.page.Locator(selector).All()
	if err != nil {
		return 0, fmt.Errorf("locate %s: %w", selector, err)
	}

	clicked := 0
	for _, button := range buttons {
		if limit > 0 && clicked >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return clicked, err
		}
		if visible, _ := button.IsVisible(); !visible {
			continue
		}
		if err := button.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{
			Timeout: timeoutMillis(ctx, r.opts.ClickTimeout),
		}); err != nil {
			log.Debugf("scroll into view failed: %v", err)
		}
		if err := button.Click(playwright.LocatorClickOptions{
			Timeout: timeoutMillis(ctx, r.opts.ClickTimeout),
		}); err != nil {
			log.Debugf("click %s failed: %v", selector, err)
			continue
		}
		clicked++
		RandomDelay(ctx, 300*time.Millisecond, 800*time.Millisecond)
	}
	return clicked, nil
}

// OpenTab loads url in a fresh secondary tab. A tab left open by an earlier
// call is closed first.
func (r *Renderer) OpenTab(ctx context.Context, url string) error {
	if r.tab != nil {
		if err := r.CloseTab(ctx); err != nil {
			log.Debugf("closing stale tab: %v", err)
		}
	}

	tab, err := r.bctx.NewPage()
	if err != nil {
		return fmt.Errorf("new tab: %w", err)
	}
	r.tab = tab

	if _, err := tab.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   timeoutMillis(ctx, r.opts.NavigationTimeout),
	}); err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

// CloseTab closes the secondary tab, if any, and brings the primary page
// back to the front.
func (r *Renderer) CloseTab(context.Context) error {
	if r.tab == nil {
		return nil
	}
	tab := r.tab
	r.tab = nil

	var err error
	if !tab.IsClosed() {
		err = tab.Close()
	}
	if frontErr := r.page.BringToFront(); frontErr != nil {
		err = errors.Join(err, frontErr)
	}
	return err
}

// Close releases both pages. The browser context belongs to the caller.
func (r *Renderer) Close() error {
	err := r.CloseTab(context.Background())
	if !r.page.IsClosed() {
		err = errors.Join(err, r.page.Close())
	}
	return err
}

// timeoutMillis is the playwright timeout for one call: fallback, capped by
// what is left of ctx.
func timeoutMillis(ctx context.Context, fallback time.Duration) *float64 {
	d := fallback
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			d = left
		}
	}
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return playwright.Float(float64(d.Milliseconds()))
}
