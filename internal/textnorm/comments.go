package textnorm

import (
	"regexp"
	"strings"
)

var commentLinePatterns = compileAll(
	`^[A-Za-z\s]+ commented:`,
	`^\d+\s*(?:like|comment|share|react)`,
	`^(?:Like|Comment|Share|Reply)$`,
	`^[A-Za-z\s]+ replied:`,
	`^[A-Za-z\s]+ reacted`,
	`^\d+\s*(?:min|hr|day|week|month|year)s?\s+ago`,
	`^(?:Most relevant|Top comments|All comments|View \d+ repl(?:y|ies))`,
	`^Write a comment`,
	`^[A-Za-z\s]+ and \d+ others? (?:like|comment|react)`,
	`^How about`,
	`^What about`,
	`^Why not`,
	`^\w+\?$`,
)

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(`(?i)` + p)
	}
	return compiled
}

// IsCommentLine reports whether a single trimmed line looks like a comment,
// a reaction counter or an interaction button.
func IsCommentLine(line string) bool {
	for _, re := range commentLinePatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// FilterCommentLines drops the lines of text that look like comments or
// interaction chrome and joins the rest with newlines.
func FilterCommentLines(text string) string {
	if text == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || IsCommentLine(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
