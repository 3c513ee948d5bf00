// Load the archive
// Open the browser and scrape the feed
// Merge new posts into the archive
// Regenerate the static API
// Notify and record the run

package runner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go-kuensel-scraper/internal/archive"
	"go-kuensel-scraper/internal/config"
	"go-kuensel-scraper/internal/database"
	"go-kuensel-scraper/internal/extract"
	"go-kuensel-scraper/internal/filter"
	"go-kuensel-scraper/internal/models"
	"go-kuensel-scraper/internal/scheduler"
	"go-kuensel-scraper/internal/scraper"
	"go-kuensel-scraper/internal/scraper/facebook"
	"go-kuensel-scraper/internal/staticapi"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Page is the rendered feed for one run. Closing it releases the browser.
type Page interface {
	scraper.Renderer
	Close() error
}

// OpenFunc starts a browser session.
type OpenFunc func(ctx context.Context) (Page, error)

// History records runs. A nil History disables run history and cooldowns.
type History interface {
	RecordRun(ctx context.Context, run *models.Run) error
	LastRun(ctx context.Context, modes ...models.RunMode) (*models.Run, error)
}

// Notifier is implemented by reporter.Reporter. Send failures are logged
// there and never fail a run.
type Notifier interface {
	NewPosts(posts []models.Post) error
	Completed(totalPosts, newPosts int) error
	Failed(err error) error
	Recovery(recovered, totalPosts, daysBack int) error
}

type Options struct {
	Mode       models.RunMode
	MaxPosts   int
	MaxScrolls int
	// Force ignores the cooldown since the last run
	Force bool
}

// Summary describes a finished (or skipped) run.
type Summary struct {
	Run       models.Run
	Stats     scraper.Stats
	Fresh     []models.Post
	Recovered int
	Skipped   bool
	Cooldown  time.Duration
}

type Runner struct {
	cfg      *config.Config
	store    *archive.Store
	history  History
	notifier Notifier
	open     OpenFunc
	articles extract.ArticleFetcher
	policy   scheduler.Policy
	now      func() time.Time
	build    func(page Page, validator *filter.Validator, known map[string]bool, opts facebook.Options) scraper.Scraper
}

func New(cfg *config.Config, store *archive.Store, history History, notifier Notifier, open OpenFunc, articles extract.ArticleFetcher) *Runner {
	policy := scheduler.DefaultPolicy()
	policy.MinInterval = cfg.Scheduler.MinInterval
	r := &Runner{
		cfg:      cfg,
		store:    store,
		history:  history,
		notifier: notifier,
		open:     open,
		articles: articles,
		policy:   policy,
		now:      time.Now,
	}
	r.build = r.facebookScraper
	return r
}

func (r *Runner) facebookScraper(page Page, validator *filter.Validator, known map[string]bool, opts facebook.Options) scraper.Scraper {
	extractor := extract.NewExtractor(r.cfg.ExtractOptions(), page, r.articles)
	return facebook.New(page, extractor, validator, known, opts)
}

// SetClock overrides the wall clock for run timestamps and the runtime limit.
func (r *Runner) SetClock(now func() time.Time) {
	r.now = now
}

// Run performs one complete scrape. The archive is saved even when the
// browser or navigation fails, so a fresh install always ends with a valid
// (possibly empty) archive. Navigation failures are returned together with
// the summary; budget stops are not errors.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Mode == "" {
		opts.Mode = models.ModeManual
	}
	start := r.now()
	run := models.Run{ID: uuid.NewString(), Mode: opts.Mode, StartedAt: start}
	logger := log.WithFields(log.Fields{"run_id": run.ID, "mode": opts.Mode})

	if !opts.Force && opts.Mode != models.ModeRecovery {
		if wait := r.cooldown(ctx, start); wait > 0 {
			logger.Printf("⏳ Last run was too recent, next run in %s (use -force to override)", wait.Round(time.Second))
			run.Status = models.RunSkipped
			run.FinishedAt = r.now()
			r.record(ctx, &run)
			return &Summary{Run: run, Skipped: true, Cooldown: wait}, nil
		}
	}

	logger.Println("🚀 Starting Kuensel scraper...")

	known, err := r.store.KnownIDs()
	if err != nil {
		return r.fail(ctx, &run, fmt.Errorf("load archive: %w", err))
	}
	validator, err := filter.NewValidator(r.cfg.Filter.ExtraCommentPatterns)
	if err != nil {
		return r.fail(ctx, &run, fmt.Errorf("build validator: %w", err))
	}

	page, err := r.open(ctx)
	if err != nil {
		if _, saveErr := r.store.MergeAndSave(nil); saveErr != nil {
			logger.Warnf("⚠️ Could not write empty archive: %v", saveErr)
		}
		return r.fail(ctx, &run, fmt.Errorf("open browser: %w", err))
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Debugf("closing browser: %v", err)
		}
	}()

	fb := r.build(page, validator, known, r.scrapeOptions(opts, start))
	result, scrapeErr := fb.Scrape(ctx)
	if scrapeErr != nil && !errors.Is(scrapeErr, scraper.ErrNavigation) {
		return r.fail(ctx, &run, scrapeErr)
	}

	posts := result.Posts
	if opts.Mode == models.ModeRecovery {
		posts = r.recent(posts, start)
	}

	saved, err := r.store.MergeAndSave(posts)
	if err != nil {
		return r.fail(ctx, &run, fmt.Errorf("save archive: %w", err))
	}
	//only what reached the archive is announced
	fresh := saved.Fresh

	summary := &Summary{Stats: result.Stats, Fresh: fresh}
	if opts.Mode == models.ModeRecovery {
		summary.Recovered = saved.NewPosts
		rewritten, err := r.store.Rewrite(func(a *models.Archive) error {
			a.ScrapingSession.RecoveredPosts = saved.NewPosts
			return nil
		})
		if err != nil {
			logger.Warnf("⚠️ Could not record recovered count: %v", err)
		} else {
			saved.TotalPosts = rewritten.TotalPosts
		}
	}

	if _, err := staticapi.Generate(r.store.Path(), r.cfg.Paths.StaticAPI, r.now()); err != nil {
		logger.Warnf("⚠️ Failed to update static API: %v", err)
	}

	run.PostsFound = len(result.Posts)
	run.NewPosts = saved.NewPosts
	run.TotalPosts = saved.TotalPosts
	run.Scrolls = result.Scrolls
	run.StopReason = string(result.StopReason)
	run.FinishedAt = r.now()

	if scrapeErr != nil {
		run.Status = models.RunFailed
		run.Error = scrapeErr.Error()
		_ = r.notifier.Failed(scrapeErr)
	} else {
		run.Status = models.RunCompleted
		if opts.Mode == models.ModeRecovery {
			_ = r.notifier.Recovery(summary.Recovered, saved.TotalPosts, r.cfg.Recovery.DaysBack)
		} else {
			_ = r.notifier.NewPosts(fresh)
			_ = r.notifier.Completed(saved.TotalPosts, saved.NewPosts)
		}
	}
	r.record(ctx, &run)
	summary.Run = run

	logger.WithFields(log.Fields{
		"posts_found": run.PostsFound,
		"new_posts":   run.NewPosts,
		"total_posts": run.TotalPosts,
		"scrolls":     run.Scrolls,
		"stop_reason": run.StopReason,
	}).Println("🏁 Execution finished.")
	return summary, scrapeErr
}

func (r *Runner) scrapeOptions(opts Options, start time.Time) facebook.Options {
	sc := r.cfg.Scraper
	fbOpts := facebook.Options{
		PageURL:                  sc.PageURL,
		TargetCount:              sc.TargetCount,
		MaxScrolls:               sc.MaxScrolls,
		MaxConsecutiveEmpty:      sc.MaxConsecutiveEmpty,
		MaxConsecutiveOld:        sc.MaxConsecutiveOld,
		MinScrollsBeforeOldCheck: sc.MinScrollsBeforeOldCheck,
		OverallTimeout:           sc.OverallTimeout,
		ExpandEvery:              sc.ExpandEvery,
		MaxExpansions:            sc.MaxExpansions,
		ExpansionTimeout:         sc.ExpansionTimeout,
		Pauses: facebook.Pauses{
			BetweenScrolls: sc.ScrollPause,
			AfterExpand:    sc.ExpandPause,
		},
		Dedup: r.cfg.Dedup,
	}
	if sc.MaxRuntime > 0 {
		fbOpts.RuntimeCheck = func() bool {
			return r.now().Sub(start) >= sc.MaxRuntime
		}
	}

	if opts.Mode == models.ModeRecovery {
		//deep scroll: only the scroll budget and empty streaks stop it
		fbOpts.TargetCount = math.MaxInt
		fbOpts.MaxConsecutiveOld = math.MaxInt
		fbOpts.MaxScrolls = r.cfg.Recovery.MaxScrolls
		fbOpts.MaxConsecutiveEmpty = r.cfg.Recovery.MaxConsecutiveEmpty
	}
	if opts.MaxPosts > 0 {
		fbOpts.TargetCount = opts.MaxPosts
	}
	if opts.MaxScrolls > 0 {
		fbOpts.MaxScrolls = opts.MaxScrolls
	}
	return fbOpts
}

// recent keeps the posts published inside the recovery window.
func (r *Runner) recent(posts []models.Post, now time.Time) []models.Post {
	window := time.Duration(r.cfg.Recovery.DaysBack) * 24 * time.Hour
	kept := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if filter.IsRecent(p.PublishAt, window, now) {
			kept = append(kept, p)
		}
	}
	if dropped := len(posts) - len(kept); dropped > 0 {
		log.Printf("📅 %d posts fall outside the %d-day window", dropped, r.cfg.Recovery.DaysBack)
	}
	return kept
}

// Cooldown returns how long until the next non-forced run may start.
func (r *Runner) Cooldown(ctx context.Context) time.Duration {
	return r.cooldown(ctx, r.now())
}

func (r *Runner) cooldown(ctx context.Context, now time.Time) time.Duration {
	if r.history == nil {
		return 0
	}
	last, err := r.history.LastRun(ctx, models.ModeScheduled, models.ModeManual)
	if errors.Is(err, database.ErrNotFound) {
		return 0
	}
	if err != nil {
		log.Warnf("⚠️ Run history unavailable, ignoring cooldown: %v", err)
		return 0
	}
	return r.policy.Cooldown(now, last)
}

func (r *Runner) fail(ctx context.Context, run *models.Run, err error) (*Summary, error) {
	log.WithField("run_id", run.ID).Errorf("❌ Run failed: %v", err)
	run.Status = models.RunFailed
	run.Error = err.Error()
	run.FinishedAt = r.now()
	_ = r.notifier.Failed(err)
	r.record(ctx, run)
	return &Summary{Run: *run}, err
}

func (r *Runner) record(ctx context.Context, run *models.Run) {
	if r.history == nil {
		return
	}
	if err := r.history.RecordRun(ctx, run); err != nil {
		log.Warnf("⚠️ Failed to record run: %v", err)
	}
}
