package extract

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"go-kuensel-scraper/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullPhoto = "https://scontent.fpbh1-1.fna.fbcdn.net/v/t39.30808-6/full_resolution_photo_1234567.jpg"

type fakePages struct {
	opened []string
	closed int
	active string
	failOn string
}

func (f *fakePages) OpenTab(_ context.Context, url string) error {
	f.opened = append(f.opened, url)
	if url == f.failOn {
		return errors.New("tab crashed")
	}
	f.active = url
	return nil
}

func (f *fakePages) HTML(_ context.Context) (string, error) {
	return `<html><body><img data-pagelet="MediaViewerPhoto" src="` + fullPhoto + `"></body></html>`, nil
}

func (f *fakePages) CloseTab(_ context.Context) error {
	f.closed++
	f.active = ""
	return nil
}

type fakeArticles struct {
	requested []string
	article   *models.Article
	err       error
}

func (f *fakeArticles) FetchArticle(_ context.Context, url string) (*models.Article, error) {
	f.requested = append(f.requested, url)
	if f.err != nil {
		return nil, f.err
	}
	return f.article, nil
}

func loadFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("testdata/feed.html")
	require.NoError(t, err)
	return string(data)
}

func fixedClock() time.Time {
	return time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
}

func newTestExtractor(pages PhotoPages, articles ArticleFetcher) *Extractor {
	e := NewExtractor(DefaultOptions(), pages, articles)
	e.SetClock(fixedClock)
	return e
}

func TestCandidates(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(loadFixture(t)))
	require.NoError(t, err)

	candidates := Candidates(doc)

	// two articles plus their message blocks; the comment article is dropped
	require.Len(t, candidates, 4)
	assert.Equal(t, "green-hotels", candidates[0].AttrOr("id", ""))
	assert.Equal(t, "archery", candidates[1].AttrOr("id", ""))
}

func TestExtractAll_PagePostsOnly(t *testing.T) {
	e := newTestExtractor(nil, nil)

	posts := e.ExtractAll(context.Background(), loadFixture(t))
	require.Len(t, posts, 4)

	hotels := posts[0]
	assert.Equal(t, "The Tourism Council of Bhutan certified twelve green hotels across the country this week. Owners said the standard will attract more visitors.", hotels.Content)
	assert.Equal(t, "The Tourism Council of Bhutan certified twelve green hotels across the country this week", hotels.Title)
	assert.Equal(t, "news", hotels.Category)
	assert.Equal(t, "Kuensel", hotels.AuthorName)
	assert.Equal(t, "kuensel", hotels.AuthorID)
	assert.Equal(t, "2026-10-15T08:30:00+06:00", hotels.PublishAt)
	assert.Equal(t, "2026-10-16T09:00:00Z", hotels.CreatedAt)
	assert.Equal(t, PostID(hotels.Content, "2026-10-15T08:30:00+06:00", 0), hotels.ID)
	assert.Len(t, hotels.ID, 16)
	assert.Equal(t, models.SourceFacebookPost, hotels.ArticleSource)
	assert.Equal(t, models.Engagement{Reactions: 1200, Comments: 34, Shares: 5}, hotels.Engagement)
	assert.Equal(t, []string{"https://scontent.fpbh1-1.fna.fbcdn.net/v/t39/photo_one.jpg"}, hotels.Attachment.Images)
	assert.Equal(t, []string{
		"https://kuenselonline.com/green-hotels/",
		"https://www.facebook.com/photo?fbid=1234567&set=a.1",
	}, hotels.Attachment.Links)
	assert.Empty(t, hotels.Attachment.Videos)
	assert.NotContains(t, hotels.Content, "Pema Wangmo")

	archery := posts[1]
	assert.Equal(t, "Archery tournament finals begin at Changlimithang today.", archery.Content)
	assert.Equal(t, "sports", archery.Category)
	assert.Equal(t, archery.CreatedAt, archery.PublishAt)
	assert.Equal(t, []string{"https://video.xx.fbcdn.net/v/t42/match.mp4"}, archery.Attachment.Videos)
	assert.NotNil(t, archery.Attachment.Links)
}

func TestExtractAll_PhotoPagesAndArticle(t *testing.T) {
	pages := &fakePages{}
	articles := &fakeArticles{article: &models.Article{
		URL:   "https://kuenselonline.com/green-hotels/",
		Title: "Twelve hotels receive green certification",
		Body:  strings.Repeat("Twelve hotels in five dzongkhags received the green hotel certificate. ", 5),
	}}
	e := newTestExtractor(pages, articles)

	posts := e.ExtractAll(context.Background(), loadFixture(t))
	require.NotEmpty(t, posts)
	hotels := posts[0]

	assert.Equal(t, []string{"https://www.facebook.com/photo?fbid=1234567&set=a.1"}, pages.opened[:1])
	assert.Equal(t, len(pages.opened), pages.closed)
	assert.Contains(t, hotels.Attachment.Images, fullPhoto)
	assert.Equal(t, "https://scontent.fpbh1-1.fna.fbcdn.net/v/t39/photo_one.jpg", hotels.Attachment.Images[0])

	assert.Equal(t, "https://kuenselonline.com/green-hotels/", articles.requested[0])
	assert.Equal(t, models.SourceFullArticle, hotels.ArticleSource)
	assert.Equal(t, "Twelve hotels receive green certification", hotels.Title)
	assert.Equal(t, articles.article.Body, hotels.Content)
	assert.Equal(t, len([]rune(articles.article.Body)), hotels.RawContentLength)
}

func TestExtract_EnrichmentFailuresAreNotFatal(t *testing.T) {
	pages := &fakePages{failOn: "https://www.facebook.com/photo?fbid=1234567&set=a.1"}
	articles := &fakeArticles{err: errors.New("connection refused")}
	e := newTestExtractor(pages, articles)

	posts := e.ExtractAll(context.Background(), loadFixture(t))
	require.NotEmpty(t, posts)

	hotels := posts[0]
	assert.Equal(t, models.SourceFacebookPost, hotels.ArticleSource)
	assert.NotContains(t, hotels.Attachment.Images, fullPhoto)
	assert.Equal(t, len(pages.opened), pages.closed)
}

func TestExtract_SkipPhotos(t *testing.T) {
	pages := &fakePages{}
	opts := DefaultOptions()
	opts.SkipPhotos = true
	e := NewExtractor(opts, pages, nil)

	e.ExtractAll(context.Background(), loadFixture(t))
	assert.Empty(t, pages.opened)
}

func TestSelectContent(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "message marker beats shorter spans",
			html:     `<div id="c"><span>Short label text</span><div data-ad-preview="message">National Assembly passes the budget for the coming fiscal year.</div></div>`,
			expected: "National Assembly passes the budget for the coming fiscal year.",
		},
		{
			name:     "comment blocks are never selected",
			html:     `<div id="c"><p>Road to Gasa reopens.</p><div class="comment"><p>Karma: this is the longest text in the whole post by far, surely</p></div></div>`,
			expected: "Road to Gasa reopens.",
		},
		{
			name:     "comment lines are dropped from a match",
			html:     `<div id="c"><p>Vaccination drive reaches Lhuentse villages<br>Sonam and 3 others like this</p></div>`,
			expected: "Vaccination drive reaches Lhuentse villages",
		},
		{
			name:     "inline links keep their word boundaries",
			html:     `<div id="c"><div data-ad-preview="message">Flood warning for <a href="/x">Punakha</a> residents <a href="/hashtag/bhutan">#Bhutan</a></div></div>`,
			expected: "Flood warning for Punakha residents #Bhutan",
		},
		{
			name:     "fallback to whole text",
			html:     `<div id="c">Flood warning issued for <b>Punakha</b> residents</div>`,
			expected: "Flood warning issued for Punakha residents",
		},
		{
			name:     "fallback too short",
			html:     `<div id="c">Like Comment</div>`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tt.html))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, SelectContent(doc.Find("#c")))
		})
	}
}

func TestExtract_EmptyContentGetsPlaceholderID(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div id="c"><img src="https://scontent.xx.fbcdn.net/v/t1/a.jpg"></div>`))
	require.NoError(t, err)

	post, err := newTestExtractor(nil, nil).Extract(context.Background(), doc.Find("#c"), 7)
	require.NoError(t, err)
	assert.Equal(t, "post_7", post.ID)
	assert.Equal(t, UntitledTitle, post.Title)
	assert.Equal(t, DefaultCategory, post.Category)
}
