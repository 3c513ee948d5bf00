// Package filter decides which extracted posts are real page posts.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"go-kuensel-scraper/internal/models"
	"go-kuensel-scraper/internal/textnorm"
)

type Reason string

const (
	ReasonAccepted          Reason = "accepted"
	ReasonPlaceholderOK     Reason = "placeholder_title_with_content"
	ReasonPlaceholderEmpty  Reason = "placeholder_title_without_content"
	ReasonTooShort          Reason = "too_short"
	ReasonOnlyDots          Reason = "only_dots"
	ReasonEqualsTitle       Reason = "content_equals_title"
	ReasonShortNoAlnum      Reason = "short_without_alnum"
	ReasonGenericFailure    Reason = "generic_failure_text"
	ReasonCommentLike       Reason = "comment_like"
	ReasonShortWithoutMedia Reason = "short_without_media"
	ReasonNoAlnum           Reason = "no_alnum"
)

type Verdict struct {
	Valid  bool
	Reason Reason
}

const (
	minContentRunes     = 5
	minPlaceholderRunes = 5
	minAlnumFreeRunes   = 8
	minMedialessRunes   = 15
)

var placeholderTitles = map[string]bool{
	"untitled post": true,
	"intro":         true,
}

var genericFailureMarkers = []string{"loading...", "error", "failed to load"}

var onlyDotsRegex = regexp.MustCompile(`^\.+$`)

// matched against the trimmed, lowercased content
var commentPatterns = []string{
	`^how about.{1,40}\?*$`,
	`^what about.{1,40}\?*$`,
	`^why not.{1,40}\?*$`,
	`^what\s+do\s+you\s+think.{0,50}\?*$`,
	`^[a-zA-Z\s]{1,20}\?+$`,
	`^(ok|okay|yes|no|true|false|really|wow|nice|good|bad|great|awesome|cool|sure|right)[\.\!\?]*$`,
	`^\w{1,15}[\.\!\?]+$`,
	`^(lol|lmao|haha)[\.\!\?]*$`,
	`^(that's|thats)\s+(good|bad|nice|cool|great|awesome|amazing)`,
	`^i\s+(think|believe|hope|wish|agree|disagree)`,
	`^you\s+(should|could|might|can|will)`,
	`^\w+\s*\?+$`,
}

// Validator applies the post acceptance rules in a fixed order; the first
// rule that fires decides.
type Validator struct {
	comments []*regexp.Regexp
}

// NewValidator compiles the built-in comment patterns plus extra ones. Extra
// patterns are matched against lowercased content, like the built-ins.
func NewValidator(extraPatterns []string) (*Validator, error) {
	all := append(append([]string{}, commentPatterns...), extraPatterns...)
	compiled := make([]*regexp.Regexp, 0, len(all))
	for _, p := range all {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile comment pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &Validator{comments: compiled}, nil
}

func (v *Validator) Validate(p models.Post) Verdict {
	content := strings.TrimSpace(p.Content)
	length := textnorm.RuneLen(content)
	hasAlnum := textnorm.HasAlnum(content)

	if placeholderTitles[strings.ToLower(strings.TrimSpace(p.Title))] {
		if length > minPlaceholderRunes && hasAlnum {
			return Verdict{Valid: true, Reason: ReasonPlaceholderOK}
		}
		return reject(ReasonPlaceholderEmpty)
	}

	if length < minContentRunes {
		return reject(ReasonTooShort)
	}
	if onlyDotsRegex.MatchString(content) {
		return reject(ReasonOnlyDots)
	}
	if content == strings.TrimSpace(p.Title) {
		return reject(ReasonEqualsTitle)
	}
	if length < minAlnumFreeRunes && !hasAlnum {
		return reject(ReasonShortNoAlnum)
	}

	lower := strings.ToLower(content)
	for _, marker := range genericFailureMarkers {
		if strings.Contains(lower, marker) {
			return reject(ReasonGenericFailure)
		}
	}
	for _, re := range v.comments {
		if re.MatchString(lower) {
			return reject(ReasonCommentLike)
		}
	}

	if length < minMedialessRunes && !p.Attachment.HasMedia() {
		return reject(ReasonShortWithoutMedia)
	}
	if !hasAlnum {
		return reject(ReasonNoAlnum)
	}
	return Verdict{Valid: true, Reason: ReasonAccepted}
}

func reject(r Reason) Verdict {
	return Verdict{Valid: false, Reason: r}
}
