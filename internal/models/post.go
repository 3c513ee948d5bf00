package models

import "time"

type ArticleSource string

const (
	SourceFullArticle  ArticleSource = "full_article"
	SourceFacebookPost ArticleSource = "facebook_post"
)

// Post is one archived feed post. JSON keys follow the archive file format.
type Post struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	Content          string        `json:"content"`
	Category         string        `json:"categoryID"`
	AuthorID         string        `json:"authorId"`
	AuthorName       string        `json:"authorName"`
	Attachment       Attachment    `json:"attachment"`
	Engagement       Engagement    `json:"engagement"`
	CreatedAt        string        `json:"createdAt"`
	PublishAt        string        `json:"publishAt"`
	RawContentLength int           `json:"raw_content_length"`
	ArticleSource    ArticleSource `json:"article_source"`
}

type Attachment struct {
	Images []string `json:"images"`
	Videos []string `json:"videos"`
	Links  []string `json:"links"`
}

// NewAttachment returns an attachment whose slices marshal as [] instead of null.
func NewAttachment() Attachment {
	return Attachment{Images: []string{}, Videos: []string{}, Links: []string{}}
}

// HasMedia reports whether any image, video or link is attached.
func (a Attachment) HasMedia() bool {
	return len(a.Images) > 0 || len(a.Videos) > 0 || len(a.Links) > 0
}

type Engagement struct {
	Reactions int `json:"reactions"`
	Comments  int `json:"comments"`
	Shares    int `json:"shares"`
}

// SessionMetadata describes the run that last wrote the archive.
type SessionMetadata struct {
	Timestamp           string `json:"timestamp"`
	TotalPosts          int    `json:"total_posts"`
	NewPostsThisSession int    `json:"new_posts_this_session"`
	ExistingPosts       int    `json:"existing_posts"`
	Status              string `json:"status"`
	RecoveredPosts      int    `json:"recovered_posts,omitempty"`
	RemovedComments     int    `json:"removed_comments,omitempty"`
}

type Archive struct {
	ScrapingSession SessionMetadata `json:"scraping_session"`
	Posts           []Post          `json:"posts"`
}

// Article is a page fetched from the publisher's own site.
type Article struct {
	URL   string
	Title string
	Body  string
}

type RunMode string

const (
	ModeScheduled RunMode = "scheduled"
	ModeManual    RunMode = "manual"
	ModeRecovery  RunMode = "recovery"
)

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunSkipped   RunStatus = "skipped"
)

// Run is one row of run history.
type Run struct {
	ID         string    `json:"id"`
	Mode       RunMode   `json:"mode"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     RunStatus `json:"status"`
	PostsFound int       `json:"posts_found"`
	NewPosts   int       `json:"new_posts"`
	TotalPosts int       `json:"total_posts"`
	Scrolls    int       `json:"scrolls"`
	StopReason string    `json:"stop_reason"`
	Error      string    `json:"error,omitempty"`
}
