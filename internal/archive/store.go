// Package archive persists the post archive as a single JSON file.
//
// Every write goes through a temp file that is renamed over the archive, so a
// failed save leaves the previous file untouched.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go-kuensel-scraper/internal/filter"
	"go-kuensel-scraper/internal/models"

	log "github.com/sirupsen/logrus"
)

const StatusCompleted = "completed"

var ErrNoArchive = errors.New("archive file does not exist")

// SaveResult reports what a save did.
type SaveResult struct {
	Path            string
	Written         bool
	NewPosts        int
	// Fresh are the added posts, in batch order
	Fresh           []models.Post
	ExistingPosts   int
	TotalPosts      int
	RemovedComments int
}

type Store struct {
	mu      sync.Mutex
	path    string
	now     func() time.Time
	cleanup func(models.Post) bool
	rename  func(oldpath, newpath string) error
}

type Option func(*Store)

// WithClock replaces time.Now for metadata timestamps, quarantine names and
// the sort fallback.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCleanup sets the predicate of the secondary cleanup pass. Posts for
// which it returns true are dropped before the archive is replaced. nil
// disables the pass.
func WithCleanup(fn func(models.Post) bool) Option {
	return func(s *Store) { s.cleanup = fn }
}

// NewStore opens the archive at path. The cleanup pass defaults to
// filter.IsCommentLike.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:    path,
		now:     time.Now,
		cleanup: filter.IsCommentLike,
		rename:  os.Rename,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Path() string { return s.path }

// Read parses the archive at path without side effects. A missing file is
// ErrNoArchive; invalid JSON is returned as an error.
func Read(path string) (*models.Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoArchive
		}
		return nil, fmt.Errorf("read archive: %w", err)
	}
	var a models.Archive
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse archive %s: %w", path, err)
	}
	if a.Posts == nil {
		a.Posts = []models.Post{}
	}
	return &a, nil
}

// Load reads the archive. A missing file yields an empty archive. A file that
// is not valid JSON is renamed to <path>.corrupted_<timestamp> and an empty
// archive is returned; only I/O errors are returned.
func (s *Store) Load() (*models.Archive, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s.empty(), nil
		}
		return nil, fmt.Errorf("read archive: %w", err)
	}

	var a models.Archive
	if err := json.Unmarshal(data, &a); err != nil {
		log.Warnf("⚠️ Archive %s is not valid JSON: %v", s.path, err)
		s.quarantine()
		return s.empty(), nil
	}
	if a.Posts == nil {
		a.Posts = []models.Post{}
	}
	log.Printf("📋 Loaded %d archived posts", len(a.Posts))
	return &a, nil
}

// KnownIDs loads the archive and returns the set of its post ids.
func (s *Store) KnownIDs() (map[string]bool, error) {
	a, err := s.Load()
	if err != nil {
		return nil, err
	}
	return IDs(a.Posts), nil
}

func IDs(posts []models.Post) map[string]bool {
	ids := make(map[string]bool, len(posts))
	for _, p := range posts {
		if p.ID != "" {
			ids[p.ID] = true
		}
	}
	return ids
}

// MergeAndSave adds the posts whose id is not archived yet, newest first by
// publish time. Posts the cleanup pass would drop are never added or counted.
// When nothing is new the file is left alone, except that an empty archive is
// created if none exists.
func (s *Store) MergeAndSave(newPosts []models.Post) (*SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.Load()
	if err != nil {
		return nil, err
	}

	known := IDs(existing.Posts)
	fresh := make([]models.Post, 0, len(newPosts))
	dropped := 0
	for _, p := range newPosts {
		if known[p.ID] {
			continue
		}
		known[p.ID] = true
		if s.cleanup != nil && s.cleanup(p) {
			log.Debugf("🧹 not adding comment-like post %s", p.ID)
			dropped++
			continue
		}
		fresh = append(fresh, p)
	}

	result := &SaveResult{
		Path:            s.path,
		ExistingPosts:   len(existing.Posts),
		TotalPosts:      len(existing.Posts),
		RemovedComments: dropped,
		Fresh:           []models.Post{},
	}

	if len(fresh) == 0 {
		log.Printf("📭 No new posts to add to the archive")
		if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
			if _, err := s.write(s.empty(), 0); err != nil {
				return nil, err
			}
			result.Written = true
			log.Printf("📄 Created empty archive: %s", s.path)
		}
		return result, nil
	}

	all := make([]models.Post, 0, len(fresh)+len(existing.Posts))
	all = append(all, fresh...)
	all = append(all, existing.Posts...)
	sortNewestFirst(all, s.now())

	a := &models.Archive{
		ScrapingSession: models.SessionMetadata{
			Timestamp:           s.now().Format(time.RFC3339),
			NewPostsThisSession: len(fresh),
			ExistingPosts:       len(existing.Posts),
			Status:              StatusCompleted,
		},
		Posts: all,
	}

	removed, err := s.write(a, dropped)
	if err != nil {
		return nil, err
	}

	result.Written = true
	result.NewPosts = len(fresh)
	result.Fresh = fresh
	result.TotalPosts = len(a.Posts)
	result.RemovedComments = dropped + removed
	log.Printf("💾 Added %d new posts, %d total in %s", len(fresh), len(a.Posts), s.path)
	return result, nil
}

// Rewrite applies fn to the archive on disk and saves the result with the
// same write discipline as MergeAndSave. Unlike Load it never quarantines:
// a missing file is ErrNoArchive and invalid JSON is an error.
func (s *Store) Rewrite(fn func(*models.Archive) error) (*SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := Read(s.path)
	if err != nil {
		return nil, err
	}
	before := len(a.Posts)
	if err := fn(a); err != nil {
		return nil, err
	}
	a.ScrapingSession.Timestamp = s.now().Format(time.RFC3339)

	removed, err := s.write(a, 0)
	if err != nil {
		return nil, err
	}
	return &SaveResult{
		Path:            s.path,
		Written:         true,
		ExistingPosts:   before,
		TotalPosts:      len(a.Posts),
		RemovedComments: removed,
	}, nil
}

// write replaces the archive: temp file, cleanup pass, temp file again,
// fsync, rename. The metadata total always follows the post list. skipped
// counts comment-like posts the caller already left out. On error the temp
// file is removed.
func (s *Store) write(a *models.Archive, skipped int) (removed int, err error) {
	tmp := s.path + ".tmp"
	defer func() {
		if err != nil {
			if rmErr := os.Remove(tmp); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				log.Warnf("⚠️ Could not remove %s: %v", tmp, rmErr)
			}
		}
	}()

	if dir := filepath.Dir(s.path); dir != "" {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create archive dir: %w", err)
		}
	}

	if a.Posts == nil {
		a.Posts = []models.Post{}
	}
	a.ScrapingSession.TotalPosts = len(a.Posts)
	if skipped > 0 {
		a.ScrapingSession.RemovedComments = skipped
	}
	if err = writeJSON(tmp, a); err != nil {
		return 0, err
	}

	if s.cleanup != nil {
		kept := make([]models.Post, 0, len(a.Posts))
		for _, p := range a.Posts {
			if s.cleanup(p) {
				log.Debugf("🧹 removing comment-like post %s", p.ID)
				continue
			}
			kept = append(kept, p)
		}
		removed = len(a.Posts) - len(kept)
		if removed > 0 {
			a.Posts = kept
			a.ScrapingSession.TotalPosts = len(kept)
			a.ScrapingSession.RemovedComments = skipped + removed
			log.Printf("🧹 Removed %d comment-like posts", removed)
			if err = writeJSON(tmp, a); err != nil {
				return 0, err
			}
		}
	}

	if err = s.rename(tmp, s.path); err != nil {
		return 0, fmt.Errorf("replace archive: %w", err)
	}
	return removed, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("encode archive: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	return f.Close()
}

func (s *Store) quarantine() {
	backup := fmt.Sprintf("%s.corrupted_%s", s.path, s.now().Format("20060102_150405"))
	if err := os.Rename(s.path, backup); err != nil {
		log.Warnf("⚠️ Could not quarantine corrupted archive: %v", err)
		return
	}
	log.Warnf("⚠️ Corrupted archive moved to %s, starting fresh", backup)
}

func (s *Store) empty() *models.Archive {
	return &models.Archive{
		ScrapingSession: models.SessionMetadata{
			Timestamp: s.now().Format(time.RFC3339),
			Status:    StatusCompleted,
		},
		Posts: []models.Post{},
	}
}

var publishLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParsePublishAt parses the ISO-8601 forms publishAt takes in practice.
// Anything else, including relative labels like "4h", is now.
func ParsePublishAt(s string, now time.Time) time.Time {
	for _, layout := range publishLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t
		}
	}
	return now
}

// sortNewestFirst orders posts by publish time, newest first. Posts whose
// time cannot be parsed sort as now and keep their relative order.
func sortNewestFirst(posts []models.Post, now time.Time) {
	times := make([]time.Time, len(posts))
	idx := make([]int, len(posts))
	for i := range posts {
		idx[i] = i
		times[i] = ParsePublishAt(posts[i].PublishAt, now)
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return times[idx[a]].After(times[idx[b]])
	})

	sorted := make([]models.Post, len(posts))
	for i, j := range idx {
		sorted[i] = posts[j]
	}
	copy(posts, sorted)
}
