// Package staticapi renders the archive into static JSON files that can be
// served without the scraper or the API server running.
package staticapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go-kuensel-scraper/internal/archive"
	"go-kuensel-scraper/internal/models"

	log "github.com/sirupsen/logrus"
)

const (
	PostsFile       = "posts.json"
	FilterAllPosts  = "all_posts"
	DefaultCategory = "general"
	DefaultAuthor   = "Kuensel"
)

// files written by earlier layouts of the snapshot
var staleFiles = []string{"categories.json", "stats.json"}

type Snapshot struct {
	Success         bool        `json:"success"`
	TotalPosts      int         `json:"total_posts"`
	LastUpdated     string      `json:"last_updated"`
	FilterApplied   string      `json:"filter_applied"`
	ScrapingSession SessionInfo `json:"scraping_session"`
	Posts           []Post      `json:"posts"`
}

type SessionInfo struct {
	LastScrape    string `json:"last_scrape"`
	Status        string `json:"status"`
	OriginalTotal int    `json:"original_total"`
	FilteredTotal int    `json:"filtered_total"`
}

// Post is the public shape of an archived post.
type Post struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Content       string            `json:"content"`
	Category      string            `json:"category"`
	Author        string            `json:"author"`
	CreatedAt     string            `json:"created_at"`
	PublishedAt   string            `json:"published_at"`
	HasImages     bool              `json:"has_images"`
	ImageCount    int               `json:"image_count"`
	HasVideos     bool              `json:"has_videos"`
	HasLinks      bool              `json:"has_links"`
	Attachment    models.Attachment `json:"attachment"`
	ContentLength int               `json:"content_length"`
}

// Build converts an archive into a snapshot, newest created_at first.
func Build(a *models.Archive, now time.Time) *Snapshot {
	posts := make([]Post, 0, len(a.Posts))
	for _, p := range a.Posts {
		posts = append(posts, FromPost(p))
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt > posts[j].CreatedAt
	})

	status := a.ScrapingSession.Status
	if status == "" {
		status = "success"
	}

	return &Snapshot{
		Success:       true,
		TotalPosts:    len(posts),
		LastUpdated:   now.Format(time.RFC3339),
		FilterApplied: FilterAllPosts,
		ScrapingSession: SessionInfo{
			LastScrape:    a.ScrapingSession.Timestamp,
			Status:        status,
			OriginalTotal: len(a.Posts),
			FilteredTotal: len(posts),
		},
		Posts: posts,
	}
}

func FromPost(p models.Post) Post {
	content := strings.TrimSpace(p.Content)
	if content == "" {
		content = strings.TrimSpace(p.Description)
	}
	category := p.Category
	if category == "" {
		category = DefaultCategory
	}
	author := p.AuthorName
	if author == "" {
		author = DefaultAuthor
	}

	att := models.NewAttachment()
	att.Images = append(att.Images, p.Attachment.Images...)
	att.Videos = append(att.Videos, p.Attachment.Videos...)
	att.Links = append(att.Links, p.Attachment.Links...)

	return Post{
		ID:            p.ID,
		Title:         strings.TrimSpace(p.Title),
		Content:       content,
		Category:      category,
		Author:        author,
		CreatedAt:     p.CreatedAt,
		PublishedAt:   p.PublishAt,
		HasImages:     len(att.Images) > 0,
		ImageCount:    len(att.Images),
		HasVideos:     len(att.Videos) > 0,
		HasLinks:      len(att.Links) > 0,
		Attachment:    att,
		ContentLength: utf8.RuneCountInString(content),
	}
}

// Generate reads the archive at archivePath and writes outDir/posts.json.
// Per-category files left by older layouts are removed.
func Generate(archivePath, outDir string, now time.Time) (*Snapshot, error) {
	a, err := archive.Read(archivePath)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	snap := Build(a, now)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", outDir, err)
	}
	if err := writeAtomic(filepath.Join(outDir, PostsFile), snap); err != nil {
		return nil, err
	}
	removeStale(outDir)

	images, videos := 0, 0
	for _, p := range snap.Posts {
		images += p.ImageCount
		if p.HasVideos {
			videos++
		}
	}
	log.Printf("📦 Static API updated: %d posts, %d images, %d posts with videos", snap.TotalPosts, images, videos)
	return snap, nil
}

func writeAtomic(path string, v any) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func removeStale(dir string) {
	names := append([]string{}, staleFiles...)
	if matches, err := filepath.Glob(filepath.Join(dir, "posts_*.json")); err == nil {
		for _, m := range matches {
			names = append(names, filepath.Base(m))
		}
	}

	for _, name := range names {
		err := os.Remove(filepath.Join(dir, name))
		switch {
		case err == nil:
			log.Debugf("🗑️ Removed stale %s", name)
		case !errors.Is(err, fs.ErrNotExist):
			log.Warnf("⚠️ Could not remove %s: %v", name, err)
		}
	}
}
