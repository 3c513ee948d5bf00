package extract

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go-kuensel-scraper/internal/textnorm"
)

const (
	UntitledTitle      = "Untitled Post"
	maxTitleRunes      = 100
	maxDescriptionRune = 9000
	DefaultCategory    = "general"
)

var sentenceSplitRegex = regexp.MustCompile(`[.!?\n]+`)

// DeriveTitle builds a heading from content: the first sentence, else the
// first line, else the leading characters, truncated with an ellipsis.
func DeriveTitle(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return UntitledTitle
	}

	var title string
	sentences := sentenceSplitRegex.Split(content, -1)
	lines := strings.Split(content, "\n")
	switch {
	case len(sentences) > 0 && textnorm.RuneLen(strings.TrimSpace(sentences[0])) > 10:
		title = strings.TrimSpace(sentences[0])
	case textnorm.RuneLen(strings.TrimSpace(lines[0])) > 10:
		title = strings.TrimSpace(lines[0])
	default:
		title = strings.TrimSpace(textnorm.Truncate(content, maxTitleRunes))
	}

	if textnorm.RuneLen(title) < 10 {
		title = strings.TrimSpace(textnorm.Truncate(content, 150))
	}
	if textnorm.RuneLen(title) > maxTitleRunes {
		title = textnorm.Truncate(title, maxTitleRunes-3) + "..."
	}
	return title
}

// DeriveDescription returns the first paragraph of content once the title
// is removed from its front.
func DeriveDescription(content, title string) string {
	if content == "" {
		return ""
	}

	remaining := content
	if strings.HasPrefix(content, title) {
		remaining = strings.TrimSpace(content[len(title):])
	}

	var description string
	for _, p := range strings.Split(remaining, "\n") {
		if p = strings.TrimSpace(p); p != "" {
			description = p
			break
		}
	}
	if description == "" {
		description = strings.TrimSpace(textnorm.Truncate(remaining, maxDescriptionRune))
	}

	if textnorm.RuneLen(description) > maxDescriptionRune {
		description = textnorm.Truncate(description, maxDescriptionRune-3) + "..."
	}
	return description
}

// Category maps a label to the keywords that select it.
type Category struct {
	Name     string   `yaml:"name" validate:"required"`
	Keywords []string `yaml:"keywords" validate:"required,min=1"`
}

// DefaultPriorityPhrases are checked before DefaultCategories.
var DefaultPriorityPhrases = []Category{
	{Name: "news", Keywords: []string{"green hotel", "tourism industry", "hospitality sector"}},
	{Name: "event", Keywords: []string{"state visit", "his majesty", "her majesty"}},
	{Name: "politics", Keywords: []string{"supreme court", "conviction", "sentence"}},
}

var DefaultCategories = []Category{
	{Name: "news", Keywords: []string{"breaking", "news", "update", "latest", "report", "tourism", "hotel", "green hotel", "industry", "policy", "standard"}},
	{Name: "event", Keywords: []string{"event", "festival", "celebration", "observe", "foundation day", "ceremony", "state visit", "majesty", "king", "president"}},
	{Name: "culture", Keywords: []string{"tradition", "culture", "heritage", "festival", "dzong", "sacred", "temple", "pagoda"}},
	{Name: "politics", Keywords: []string{"minister", "government", "policy", "election", "parliament", "supreme court", "conviction", "sentence"}},
	{Name: "sports", Keywords: []string{"match", "game", "tournament", "score", "team", "player", "championship", "football", "cricket", "archery"}},
	{Name: "advertisement", Keywords: []string{"available", "shop", "buy", "offer", "discount", "for sale", "vacancy", "job", "recruitment"}},
}

// Categorize returns the first category whose keyword occurs in the
// lowercased content, trying priority phrases first.
func Categorize(content string, priority, table []Category) string {
	if content == "" {
		return DefaultCategory
	}
	lower := strings.ToLower(content)
	for _, group := range [][]Category{priority, table} {
		for _, c := range group {
			if containsAny(lower, c.Keywords) {
				return c.Name
			}
		}
	}
	return DefaultCategory
}

var (
	reactionRegex = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?[KM]?)\s*(?:like|react)`)
	commentRegex  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?[KM]?)\s*comment`)
	shareRegex    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?[KM]?)\s*share`)
)

// ParseCount reads counters such as "1.2K" or "5M". Anything unparsable is 0.
func ParseCount(s string) int {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0
	}

	multiplier := 1.0
	switch {
	case strings.Contains(s, "K"):
		multiplier = 1_000
		s = strings.ReplaceAll(s, "K", "")
	case strings.Contains(s, "M"):
		multiplier = 1_000_000
		s = strings.ReplaceAll(s, "M", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(v * multiplier)
}

func firstCount(re *regexp.Regexp, text string) int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	return ParseCount(m[1])
}

// PostID hashes the final content with its timestamp. Posts without content
// get a placeholder based on their position in the batch.
func PostID(content, timestamp string, index int) string {
	if content == "" {
		return fmt.Sprintf("post_%d", index)
	}
	sum := md5.Sum([]byte(content + timestamp))
	return hex.EncodeToString(sum[:])[:16]
}

var slugRegex = regexp.MustCompile(`[^\p{L}\p{N}]+`)

func slugify(name string) string {
	return strings.Trim(slugRegex.ReplaceAllString(strings.ToLower(name), "-"), "-")
}
