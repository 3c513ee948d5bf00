package runner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-kuensel-scraper/internal/archive"
	"go-kuensel-scraper/internal/config"
	"go-kuensel-scraper/internal/database"
	"go-kuensel-scraper/internal/filter"
	"go-kuensel-scraper/internal/models"
	"go-kuensel-scraper/internal/scraper"
	"go-kuensel-scraper/internal/scraper/facebook"
	"go-kuensel-scraper/internal/staticapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

type fakePage struct {
	closed int
}

func (p *fakePage) Navigate(context.Context, string) error             { return nil }
func (p *fakePage) HTML(context.Context) (string, error)               { return "<html></html>", nil }
func (p *fakePage) Scroll(context.Context) error                       { return nil }
func (p *fakePage) ClickAll(context.Context, string, int) (int, error) { return 0, nil }
func (p *fakePage) OpenTab(context.Context, string) error              { return nil }
func (p *fakePage) CloseTab(context.Context) error                     { return nil }
func (p *fakePage) Close() error                                       { p.closed++; return nil }

type fakeScraper struct {
	result *scraper.Result
	err    error
}

func (f *fakeScraper) Scrape(context.Context) (*scraper.Result, error) { return f.result, f.err }
func (f *fakeScraper) Name() string                                    { return "fake" }

type fakeHistory struct {
	last     *models.Run
	recorded []models.Run
	today    []models.Run
}

func (f *fakeHistory) RecordRun(_ context.Context, run *models.Run) error {
	f.recorded = append(f.recorded, *run)
	return nil
}

func (f *fakeHistory) LastRun(context.Context, ...models.RunMode) (*models.Run, error) {
	if f.last == nil {
		return nil, database.ErrNotFound
	}
	return f.last, nil
}

func (f *fakeHistory) RunsSince(context.Context, time.Time) ([]models.Run, error) {
	return f.today, nil
}

type fakeNotifier struct {
	calls    []string
	newPosts []models.Post
}

func (f *fakeNotifier) NewPosts(posts []models.Post) error {
	if len(posts) > 0 {
		f.calls = append(f.calls, "new_posts")
		f.newPosts = posts
	}
	return nil
}

func (f *fakeNotifier) Completed(total, fresh int) error {
	f.calls = append(f.calls, fmt.Sprintf("completed %d/%d", fresh, total))
	return nil
}

func (f *fakeNotifier) Failed(err error) error {
	f.calls = append(f.calls, "failed")
	return nil
}

func (f *fakeNotifier) Recovery(recovered, total, days int) error {
	f.calls = append(f.calls, fmt.Sprintf("recovery %d/%d/%d", recovered, total, days))
	return nil
}

func (f *fakeNotifier) DailySummary(runs []models.Run, total int) error {
	f.calls = append(f.calls, fmt.Sprintf("summary %d/%d", len(runs), total))
	return nil
}

type harness struct {
	runner   *Runner
	store    *archive.Store
	cfg      *config.Config
	page     *fakePage
	history  *fakeHistory
	notifier *fakeNotifier
	scraper  *fakeScraper
	opened   int
	built    facebook.Options
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Paths.Archive = filepath.Join(dir, "data", "kuensel_posts_master.json")
	cfg.Paths.StaticAPI = filepath.Join(dir, "static_api")

	h := &harness{
		cfg:      cfg,
		store:    archive.NewStore(cfg.Paths.Archive, archive.WithClock(func() time.Time { return fixedNow }), archive.WithCleanup(nil)),
		page:     &fakePage{},
		history:  &fakeHistory{},
		notifier: &fakeNotifier{},
		scraper:  &fakeScraper{result: &scraper.Result{Posts: []models.Post{}}},
	}

	open := func(context.Context) (Page, error) {
		h.opened++
		return h.page, nil
	}
	h.runner = New(cfg, h.store, h.history, h.notifier, open, nil)
	h.runner.SetClock(func() time.Time { return fixedNow })
	h.runner.build = func(_ Page, _ *filter.Validator, _ map[string]bool, opts facebook.Options) scraper.Scraper {
		h.built = opts
		return h.scraper
	}
	return h
}

func post(id, publishAt string) models.Post {
	return models.Post{
		ID:         id,
		Title:      "Post " + id,
		Content:    "Content of post " + id,
		PublishAt:  publishAt,
		CreatedAt:  publishAt,
		Attachment: models.NewAttachment(),
	}
}

func TestRun_SavesNewPostsAndNotifies(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.MergeAndSave([]models.Post{post("a", "2026-10-14T08:00:00Z")})
	require.NoError(t, err)

	h.scraper.result = &scraper.Result{
		Posts: []models.Post{
			post("b", "2026-10-16T08:00:00Z"),
			post("a", "2026-10-14T08:00:00Z"),
			post("c", "2026-10-15T08:00:00Z"),
		},
		Scrolls:    4,
		StopReason: scraper.StopConsecutiveEmpty,
		Stats:      scraper.Stats{Extracted: 9, Accepted: 3},
	}

	summary, err := h.runner.Run(context.Background(), Options{Mode: models.ModeManual})
	require.NoError(t, err)

	assert.Equal(t, models.RunCompleted, summary.Run.Status)
	assert.Equal(t, 3, summary.Run.PostsFound)
	assert.Equal(t, 2, summary.Run.NewPosts)
	assert.Equal(t, 3, summary.Run.TotalPosts)
	assert.Equal(t, 4, summary.Run.Scrolls)
	assert.Equal(t, "consecutive_empty", summary.Run.StopReason)
	assert.Equal(t, 9, summary.Stats.Extracted)
	require.Len(t, summary.Fresh, 2)
	assert.Equal(t, "b", summary.Fresh[0].ID)
	assert.Equal(t, "c", summary.Fresh[1].ID)

	assert.Equal(t, []string{"new_posts", "completed 2/3"}, h.notifier.calls)
	require.Len(t, h.history.recorded, 1)
	assert.Equal(t, summary.Run.ID, h.history.recorded[0].ID)
	assert.Equal(t, 1, h.page.closed)

	a, err := archive.Read(h.cfg.Paths.Archive)
	require.NoError(t, err)
	require.Len(t, a.Posts, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{a.Posts[0].ID, a.Posts[1].ID, a.Posts[2].ID})

	assert.FileExists(t, filepath.Join(h.cfg.Paths.StaticAPI, staticapi.PostsFile))
}

func TestRun_NotifiesOnlyArchivedPosts(t *testing.T) {
	h := newHarness(t)
	h.runner.store = archive.NewStore(h.cfg.Paths.Archive, archive.WithClock(func() time.Time { return fixedNow }))

	long := post("budget", "2026-10-16T08:00:00Z")
	long.Content = "The National Assembly endorsed the annual budget today"
	short := post("gasa", "2026-10-16T07:00:00Z")
	short.Content = "Gasa road reopens today"
	h.scraper.result = &scraper.Result{Posts: []models.Post{long, short}}

	summary, err := h.runner.Run(context.Background(), Options{Mode: models.ModeManual, Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Run.NewPosts)
	require.Len(t, summary.Fresh, 1)
	assert.Equal(t, "budget", summary.Fresh[0].ID)
	require.Len(t, h.notifier.newPosts, 1)
	assert.Equal(t, "budget", h.notifier.newPosts[0].ID)

	//the short post is scraped again but never re-announced
	h.notifier.calls = nil
	summary, err = h.runner.Run(context.Background(), Options{Mode: models.ModeManual, Force: true})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Run.NewPosts)
	assert.Empty(t, summary.Fresh)
	assert.Equal(t, []string{"completed 0/1"}, h.notifier.calls)
}

func TestRun_NavigationFailureStillSaves(t *testing.T) {
	h := newHarness(t)
	h.scraper.result = &scraper.Result{Posts: []models.Post{}, StopReason: scraper.StopNavigationFailed}
	h.scraper.err = fmt.Errorf("%w: %w", scraper.ErrNavigation, errors.New("timeout"))

	summary, err := h.runner.Run(context.Background(), Options{Force: true})
	assert.ErrorIs(t, err, scraper.ErrNavigation)
	require.NotNil(t, summary)

	assert.Equal(t, models.RunFailed, summary.Run.Status)
	assert.Equal(t, "navigation_failed", summary.Run.StopReason)
	assert.Equal(t, []string{"failed"}, h.notifier.calls)
	require.Len(t, h.history.recorded, 1)
	assert.Equal(t, models.RunFailed, h.history.recorded[0].Status)

	a, err := archive.Read(h.cfg.Paths.Archive)
	require.NoError(t, err)
	assert.Empty(t, a.Posts)
}

func TestRun_BrowserFailure(t *testing.T) {
	h := newHarness(t)
	h.runner.open = func(context.Context) (Page, error) {
		return nil, errors.New("chromium missing")
	}

	summary, err := h.runner.Run(context.Background(), Options{Force: true})
	assert.ErrorContains(t, err, "open browser: chromium missing")
	assert.Equal(t, models.RunFailed, summary.Run.Status)
	assert.Equal(t, []string{"failed"}, h.notifier.calls)
	assert.FileExists(t, h.cfg.Paths.Archive)
}

func TestRun_Cooldown(t *testing.T) {
	h := newHarness(t)
	h.history.last = &models.Run{StartedAt: fixedNow.Add(-2 * time.Minute), Status: models.RunCompleted}

	summary, err := h.runner.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.True(t, summary.Skipped)
	assert.Positive(t, summary.Cooldown)
	assert.Equal(t, models.RunSkipped, summary.Run.Status)
	assert.Zero(t, h.opened)
	assert.Empty(t, h.notifier.calls)
	assert.Equal(t, summary.Cooldown, h.runner.Cooldown(context.Background()))

	summary, err = h.runner.Run(context.Background(), Options{Force: true})
	require.NoError(t, err)
	assert.False(t, summary.Skipped)
	assert.Equal(t, 1, h.opened)
}

func TestRun_RecoveryKeepsWindow(t *testing.T) {
	h := newHarness(t)
	h.scraper.result = &scraper.Result{
		Posts: []models.Post{
			post("recent", "2026-10-15T08:00:00Z"),
			post("old", "2026-09-01T08:00:00Z"),
		},
		StopReason: scraper.StopMaxScrolls,
	}

	summary, err := h.runner.Run(context.Background(), Options{Mode: models.ModeRecovery})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Recovered)
	assert.Equal(t, 2, summary.Run.PostsFound)
	assert.Equal(t, 1, summary.Run.NewPosts)
	assert.Equal(t, []string{"recovery 1/1/7"}, h.notifier.calls)

	assert.Equal(t, 50, h.built.MaxScrolls)
	assert.Equal(t, 10, h.built.MaxConsecutiveEmpty)
	assert.Equal(t, math.MaxInt, h.built.TargetCount)

	a, err := archive.Read(h.cfg.Paths.Archive)
	require.NoError(t, err)
	require.Len(t, a.Posts, 1)
	assert.Equal(t, "recent", a.Posts[0].ID)
	assert.Equal(t, 1, a.ScrapingSession.RecoveredPosts)
}

func TestScrapeOptions(t *testing.T) {
	h := newHarness(t)

	opts := h.runner.scrapeOptions(Options{MaxPosts: 5, MaxScrolls: 3}, fixedNow)
	assert.Equal(t, 5, opts.TargetCount)
	assert.Equal(t, 3, opts.MaxScrolls)
	assert.Equal(t, h.cfg.Scraper.PageURL, opts.PageURL)
	assert.Equal(t, h.cfg.Dedup, opts.Dedup)
	assert.Equal(t, time.Second, opts.Pauses.BetweenScrolls)

	require.NotNil(t, opts.RuntimeCheck)
	assert.False(t, opts.RuntimeCheck())

	h.runner.SetClock(func() time.Time { return fixedNow.Add(12 * time.Minute) })
	assert.True(t, opts.RuntimeCheck())
}

func TestJobs(t *testing.T) {
	h := newHarness(t)
	h.history.today = []models.Run{{Status: models.RunCompleted}, {Status: models.RunFailed}}
	h.scraper.result = &scraper.Result{Posts: []models.Post{post("x", "2026-10-16T08:00:00Z")}}

	jobs := Jobs{Runner: h.runner, History: h.history, Reporter: h.notifier, Location: time.UTC}

	//scheduled scrapes ignore the cooldown
	h.history.last = &models.Run{StartedAt: fixedNow.Add(-time.Minute), Status: models.RunCompleted}
	require.NoError(t, jobs.Scrape(context.Background()))
	assert.Equal(t, models.ModeScheduled, h.history.recorded[0].Mode)

	require.NoError(t, jobs.Summary(context.Background()))
	assert.Equal(t, "summary 2/1", h.notifier.calls[len(h.notifier.calls)-1])
}

func TestJobs_SummaryWithoutArchive(t *testing.T) {
	h := newHarness(t)
	jobs := Jobs{Runner: h.runner, History: h.history, Reporter: h.notifier}

	require.NoError(t, jobs.Summary(context.Background()))
	assert.Equal(t, []string{"summary 0/0"}, h.notifier.calls)
	_, err := os.Stat(h.cfg.Paths.Archive)
	assert.True(t, os.IsNotExist(err))
}
