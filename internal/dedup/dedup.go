// Package dedup keeps the duplicate-detection state of one scrape run.
package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"sync"

	"go-kuensel-scraper/internal/models"
	"go-kuensel-scraper/internal/textnorm"

	log "github.com/sirupsen/logrus"
)

type Status int

const (
	StatusNew Status = iota
	// id already in the archive
	StatusKnown
	// fingerprint already accepted this run
	StatusSeen
	// near-identical to a post accepted this run
	StatusSimilar
)

func (s Status) String() string {
	switch s {
	case StatusKnown:
		return "known"
	case StatusSeen:
		return "seen"
	case StatusSimilar:
		return "similar"
	default:
		return "new"
	}
}

type Options struct {
	HashWindow          int     `yaml:"hash_window"`
	TitleWindow         int     `yaml:"title_window"`
	CompactTitleWindow  int     `yaml:"compact_title_window"`
	MinSimilarityLength int     `yaml:"min_similarity_length"`
	SimilarityWindow    int     `yaml:"similarity_window"`
	Threshold           float64 `yaml:"similarity_threshold" validate:"gte=0,lte=1"`
}

func DefaultOptions() Options {
	return Options{
		HashWindow:          200,
		TitleWindow:         50,
		CompactTitleWindow:  100,
		MinSimilarityLength: 50,
		SimilarityWindow:    1000,
		Threshold:           0.8,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HashWindow <= 0 {
		o.HashWindow = d.HashWindow
	}
	if o.TitleWindow <= 0 {
		o.TitleWindow = d.TitleWindow
	}
	if o.CompactTitleWindow <= 0 {
		o.CompactTitleWindow = d.CompactTitleWindow
	}
	if o.MinSimilarityLength <= 0 {
		o.MinSimilarityLength = d.MinSimilarityLength
	}
	if o.SimilarityWindow <= 0 {
		o.SimilarityWindow = d.SimilarityWindow
	}
	if o.Threshold <= 0 {
		o.Threshold = d.Threshold
	}
	return o
}

// Session holds the archive's ids, the fingerprints accepted so far and the
// accepted posts themselves. One Session lives for exactly one run.
type Session struct {
	mu       sync.Mutex
	opts     Options
	known    map[string]bool
	seen     map[string]bool
	accepted []models.Post
}

// NewSession starts a run against the ids already archived.
func NewSession(knownIDs map[string]bool, opts Options) *Session {
	known := make(map[string]bool, len(knownIDs))
	for id := range knownIDs {
		known[id] = true
	}
	return &Session{
		opts:  opts.withDefaults(),
		known: known,
		seen:  make(map[string]bool),
	}
}

// FilterBatch keeps the first post for each content prefix hash within one
// snapshot.
func (s *Session) FilterBatch(posts []models.Post) []models.Post {
	seen := make(map[string]bool, len(posts))
	unique := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		key := hash(textnorm.Lower(textnorm.Truncate(strings.TrimSpace(p.Content), s.opts.HashWindow)))
		if seen[key] {
			log.Debugf("batch duplicate: %s", textnorm.Truncate(p.Title, 50))
			continue
		}
		seen[key] = true
		unique = append(unique, p)
	}
	return unique
}

type fingerprints struct {
	session string
	content string
	title   string
}

func (s *Session) fingerprintsOf(p models.Post) fingerprints {
	content := strings.TrimSpace(textnorm.Truncate(strings.TrimSpace(p.Content), s.opts.HashWindow))
	title := strings.TrimSpace(p.Title)

	fp := fingerprints{
		session: hash(content + "_" + strings.TrimSpace(textnorm.Truncate(title, s.opts.TitleWindow))),
		content: hash(content),
	}
	if title != "" {
		fp.title = hash(title)
	}
	return fp
}

// Check classifies p against the archive, this run's fingerprints and this
// run's accepted posts, in that order.
func (s *Session) Check(p models.Post) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID != "" && s.known[p.ID] {
		return StatusKnown
	}

	fp := s.fingerprintsOf(p)
	if s.seen[fp.session] || s.seen[fp.content] || (fp.title != "" && s.seen[fp.title]) {
		return StatusSeen
	}

	if strings.TrimSpace(p.Content) != "" {
		for _, existing := range s.accepted {
			if existing.Content != "" && Similar(p.Content, existing.Content, s.opts) {
				return StatusSimilar
			}
		}
	}
	return StatusNew
}

// Accept records p and its fingerprints.
func (s *Session) Accept(p models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fp := s.fingerprintsOf(p)
	s.seen[fp.session] = true
	s.seen[fp.content] = true
	if fp.title != "" {
		s.seen[fp.title] = true
	}
	s.accepted = append(s.accepted, p)
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accepted)
}

// Accepted returns a copy of the posts accepted so far, in acceptance order.
func (s *Session) Accepted() []models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Post, len(s.accepted))
	copy(out, s.accepted)
	return out
}

// Compact drops accepted posts that share a normalised content and title
// prefix with an earlier one, and returns how many remain.
func (s *Session) Compact() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(s.accepted))
	unique := s.accepted[:0]
	for _, p := range s.accepted {
		content := textnorm.Lower(textnorm.Truncate(strings.TrimSpace(p.Content), s.opts.HashWindow))
		title := textnorm.Lower(textnorm.Truncate(strings.TrimSpace(p.Title), s.opts.CompactTitleWindow))
		key := hash(content + "_" + title)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, p)
	}
	s.accepted = unique
	return len(unique)
}

func hash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
