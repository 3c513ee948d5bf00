package filter

import (
	"regexp"
	"strings"

	"go-kuensel-scraper/internal/models"
	"go-kuensel-scraper/internal/textnorm"
)

const (
	// ArchiveMinLength is the floor used when the archive is written.
	ArchiveMinLength = 25
	// StrictMinLength is the floor of the standalone cleanup tool.
	StrictMinLength = 50
)

var cleanupPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^how about.{1,30}\?*$`),
	regexp.MustCompile(`^what about.{1,30}\?*$`),
	regexp.MustCompile(`^why not.{1,30}\?*$`),
	regexp.MustCompile(`^[a-zA-Z\s]{1,20}\?+$`),
	regexp.MustCompile(`^(ok|okay|yes|no|true|false|really|wow|nice|good|bad)[\.\!\?]*$`),
	regexp.MustCompile(`^\w{1,10}[\.\!\?]+$`),
}

var punctuationDescriptions = map[string]bool{
	"?": true, "??": true, "???": true,
	".": true, "..": true, "...": true,
}

// IsCommentLike is the cleanup pass run over the archive on every write.
func IsCommentLike(p models.Post) bool {
	return commentLike(p, ArchiveMinLength)
}

// CommentLike returns a cleanup predicate with its own length floor for
// posts without attachments.
func CommentLike(minLength int) func(models.Post) bool {
	return func(p models.Post) bool {
		return commentLike(p, minLength)
	}
}

func commentLike(p models.Post, minLength int) bool {
	content := strings.TrimSpace(p.Content)
	lower := strings.ToLower(content)
	for _, re := range cleanupPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	if punctuationDescriptions[strings.TrimSpace(p.Description)] {
		return true
	}
	return textnorm.RuneLen(content) < minLength && !p.Attachment.HasMedia()
}
