package facebook

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go-kuensel-scraper/internal/filter"
	"go-kuensel-scraper/internal/models"
	"go-kuensel-scraper/internal/scraper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRenderer serves one snapshot per scroll; after the last snapshot it
// keeps serving the last one.
type fakeRenderer struct {
	snapshots   []string
	navigateErr error
	htmlErr     error
	onScroll    func()

	navigated string
	scrolls   int
	clicks    int
	selector  string
}

func (f *fakeRenderer) Navigate(_ context.Context, url string) error {
	f.navigated = url
	return f.navigateErr
}

func (f *fakeRenderer) HTML(context.Context) (string, error) {
	if f.htmlErr != nil {
		return "", f.htmlErr
	}
	if len(f.snapshots) == 0 {
		return "", nil
	}
	i := f.scrolls - 1
	if i >= len(f.snapshots) {
		i = len(f.snapshots) - 1
	}
	return f.snapshots[i], nil
}

func (f *fakeRenderer) Scroll(context.Context) error {
	f.scrolls++
	if f.onScroll != nil {
		f.onScroll()
	}
	return nil
}

func (f *fakeRenderer) ClickAll(_ context.Context, selector string, _ int) (int, error) {
	f.clicks++
	f.selector = selector
	return 1, nil
}

func (f *fakeRenderer) OpenTab(context.Context, string) error { return nil }
func (f *fakeRenderer) CloseTab(context.Context) error        { return nil }

type fakeExtractor map[string][]models.Post

func (f fakeExtractor) ExtractAll(_ context.Context, page string) []models.Post {
	return f[page]
}

var headlines = []string{
	"Paro airport resumes flights after fog delays",
	"Thimphu city council approves new bus routes",
	"Punakha farmers report record rice harvest",
	"National archery finals begin in Changlimithang",
	"Health ministry launches nationwide flu campaign",
	"Gelephu mindfulness city unveils master plan",
	"Bumthang dairy cooperative expands cheese exports",
	"Trongsa dzong restoration enters final phase",
}

func newsPost(id, content string) models.Post {
	return models.Post{
		ID:         id,
		Title:      "Title " + id,
		Content:    content,
		Attachment: models.NewAttachment(),
	}
}

func newPosts(from, to int) []models.Post {
	posts := make([]models.Post, 0, to-from)
	for i := from; i < to; i++ {
		posts = append(posts, newsPost(fmt.Sprintf("n%d", i+1), headlines[i]))
	}
	return posts
}

func archivedPosts() ([]models.Post, map[string]bool) {
	posts := make([]models.Post, 0, 5)
	known := make(map[string]bool, 5)
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("k%d", i)
		posts = append(posts, newsPost(id, fmt.Sprintf("Archived story number %d about the capital", i)))
		known[id] = true
	}
	return posts, known
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Pauses = Pauses{}
	return opts
}

func newTestScraper(t *testing.T, r scraper.Renderer, ex Extractor, known map[string]bool, opts Options) *FacebookScraper {
	t.Helper()
	v, err := filter.NewValidator(nil)
	require.NoError(t, err)
	return New(r, ex, v, known, opts)
}

func ids(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func TestScrape_KeepsScrollingAfterOldCycles(t *testing.T) {
	archived, known := archivedPosts()
	r := &fakeRenderer{snapshots: []string{"s1", "s2", "s3", "s4"}}
	ex := fakeExtractor{
		"s1": newPosts(0, 5),
		"s2": archived,
		"s3": archived,
		"s4": newPosts(5, 7),
	}

	res, err := newTestScraper(t, r, ex, known, testOptions()).Scrape(context.Background())
	require.NoError(t, err)

	// two cycles of archived posts do not end the run; the fourth scroll
	// still finds n6 and n7
	assert.Equal(t, []string{"n1", "n2", "n3", "n4", "n5", "n6", "n7"}, ids(res.Posts))
	assert.Equal(t, scraper.StopConsecutiveEmpty, res.StopReason)
	assert.Equal(t, 7, res.Scrolls)
	assert.Equal(t, 7, r.scrolls)
	assert.Equal(t, 10, res.Stats.Known)
	assert.Equal(t, 7, res.Stats.Accepted)

	assert.Equal(t, DefaultPageURL, r.navigated)
	// expansion on scrolls 1, 3, 5 and 7
	assert.Equal(t, 4, r.clicks)
	assert.Equal(t, 4, res.Stats.Expanded)
	assert.Equal(t, SeeMoreSelector, r.selector)
}

func TestScrape_ReachedOldContent(t *testing.T) {
	archived, known := archivedPosts()
	r := &fakeRenderer{snapshots: []string{"s1", "s2", "s3", "s4"}}
	ex := fakeExtractor{
		"s1": newPosts(0, 5),
		"s2": archived,
		"s3": archived,
		"s4": newPosts(5, 7),
	}
	opts := testOptions()
	opts.MaxConsecutiveOld = 2
	opts.MinScrollsBeforeOldCheck = 3

	res, err := newTestScraper(t, r, ex, known, opts).Scrape(context.Background())
	require.NoError(t, err)

	// scrolls 2 and 3 are old but come before the minimum; scrolls 5 and 6
	// only see n6 and n7 again
	assert.Equal(t, scraper.StopReachedOldContent, res.StopReason)
	assert.Equal(t, 6, res.Scrolls)
	assert.Len(t, res.Posts, 7)
}

func TestScrape_TargetReached(t *testing.T) {
	r := &fakeRenderer{snapshots: []string{"s1"}}
	opts := testOptions()
	opts.TargetCount = 3

	res, err := newTestScraper(t, r, fakeExtractor{"s1": newPosts(0, 5)}, nil, opts).Scrape(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scraper.StopTargetReached, res.StopReason)
	assert.Equal(t, 1, res.Scrolls)
	assert.Len(t, res.Posts, 5)
}

func TestScrape_MaxScrolls(t *testing.T) {
	r := &fakeRenderer{snapshots: []string{"s1", "s2", "s3"}}
	ex := fakeExtractor{"s1": newPosts(0, 1), "s2": newPosts(1, 2), "s3": newPosts(2, 3)}
	opts := testOptions()
	opts.MaxScrolls = 2

	res, err := newTestScraper(t, r, ex, nil, opts).Scrape(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scraper.StopMaxScrolls, res.StopReason)
	assert.Equal(t, 2, res.Scrolls)
	assert.Equal(t, []string{"n1", "n2"}, ids(res.Posts))
}

func TestScrape_NavigationFailure(t *testing.T) {
	r := &fakeRenderer{navigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}

	res, err := newTestScraper(t, r, fakeExtractor{}, nil, testOptions()).Scrape(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, scraper.ErrNavigation)
	require.NotNil(t, res)
	assert.Empty(t, res.Posts)
	assert.Equal(t, scraper.StopNavigationFailed, res.StopReason)
	assert.Equal(t, 0, r.scrolls)
}

func TestScrape_RuntimeLimit(t *testing.T) {
	r := &fakeRenderer{snapshots: []string{"s1", "s2"}}
	ex := fakeExtractor{"s1": newPosts(0, 2), "s2": newPosts(2, 4)}

	checks := 0
	opts := testOptions()
	opts.RuntimeCheck = func() bool {
		checks++
		return checks > 1
	}

	res, err := newTestScraper(t, r, ex, nil, opts).Scrape(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scraper.StopRuntimeLimit, res.StopReason)
	assert.Equal(t, 1, res.Scrolls)
	assert.Equal(t, []string{"n1", "n2"}, ids(res.Posts))
}

func TestScrape_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &fakeRenderer{snapshots: []string{"s1"}}
	res, err := newTestScraper(t, r, fakeExtractor{"s1": newPosts(0, 2)}, nil, testOptions()).Scrape(ctx)
	require.NoError(t, err)
	assert.Equal(t, scraper.StopCancelled, res.StopReason)
	assert.Equal(t, 0, res.Scrolls)
	assert.Empty(t, res.Posts)
}

func TestScrape_OverallTimeout(t *testing.T) {
	current := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	r := &fakeRenderer{
		snapshots: []string{"s1", "s2"},
		onScroll:  func() { current = current.Add(10 * time.Minute) },
	}
	ex := fakeExtractor{"s1": newPosts(0, 2), "s2": newPosts(2, 4)}

	s := newTestScraper(t, r, ex, nil, testOptions())
	s.now = func() time.Time { return current }

	res, err := s.Scrape(context.Background())
	require.NoError(t, err)

	// the second snapshot arrives past the deadline and is not processed
	assert.Equal(t, scraper.StopOverallTimeout, res.StopReason)
	assert.Equal(t, 2, res.Scrolls)
	assert.Equal(t, []string{"n1", "n2"}, ids(res.Posts))
}

func TestScrape_Stats(t *testing.T) {
	hotels := "The Tourism Council of Bhutan certified twelve green hotels across the country this week after a year long assessment of energy use, waste handling and local sourcing by independent auditors."
	r := &fakeRenderer{snapshots: []string{"s1"}}
	ex := fakeExtractor{"s1": {
		newsPost("h1", hotels),
		newsPost("c1", "How about closing the AWP?"),
		newsPost("h2", hotels+" A second round of audits is planned for spring."),
		newsPost("h1-copy", hotels),
	}}
	opts := testOptions()
	opts.MaxScrolls = 1

	res, err := newTestScraper(t, r, ex, nil, opts).Scrape(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"h1"}, ids(res.Posts))
	assert.Equal(t, 4, res.Stats.Extracted)
	assert.Equal(t, 1, res.Stats.Duplicates)
	assert.Equal(t, 1, res.Stats.Rejected)
	assert.Equal(t, 1, res.Stats.Similar)
	assert.Equal(t, 1, res.Stats.Accepted)
}

func TestScrape_HTMLErrorsAreNotFatal(t *testing.T) {
	r := &fakeRenderer{htmlErr: errors.New("target closed")}

	res, err := newTestScraper(t, r, fakeExtractor{}, nil, testOptions()).Scrape(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scraper.StopConsecutiveEmpty, res.StopReason)
	assert.Equal(t, 3, res.Scrolls)
	assert.Empty(t, res.Posts)
}
