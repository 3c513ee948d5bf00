// Package textnorm cleans text scraped from feed markup.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	elapsedShortRegex  = regexp.MustCompile(`\b\d+[hm]\s*·?\s*`)
	elapsedLongRegex   = regexp.MustCompile(`\b\d+\s*(?:hour|hours|min|mins|minute|minutes)\s*ago\s*·?\s*`)
	verifiedRegex      = regexp.MustCompile(`\bVerified\s+account\s*`)
	sharedPublicRegex  = regexp.MustCompile(`\bShared\s+with\s+Public\s*`)
	headerSegmentRegex = regexp.MustCompile(`^[^·]{0,80}·\s*`)
	allReactionsRegex  = regexp.MustCompile(`(?is)\s*All\s+reactions?:.*$`)
	interactionRegex   = regexp.MustCompile(`(?s)\s*\bLike\s+(?:Comment|Share)\b.*$`)
	commentPromptRegex = regexp.MustCompile(`(?is)\s*\b(?:View\s+more\s+comments?|Write\s+a\s+comment)\b.*$`)
	trailingButtonRe   = regexp.MustCompile(`\s*\b(?:Like|Comment|Share)\s*$`)
	spaceRegex         = regexp.MustCompile(`[\s\p{Z}]+`)
	controlRegex       = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	nonPrintableRegex  = regexp.MustCompile(`[^\x20-\x7E\x{00A0}-\x{FFFF}]`)
	repeatedPunctRegex = regexp.MustCompile(`[.!?]{3,}`)
	punctuationRegex   = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s]`)
)

// Clean decodes entities, strips feed chrome and collapses whitespace.
// The result is a single line.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = html.UnescapeString(text)
	text = norm.NFC.String(text)
	//line breaks between text nodes become word separators
	text = CollapseSpace(text)

	text = elapsedShortRegex.ReplaceAllString(text, "")
	text = elapsedLongRegex.ReplaceAllString(text, "")
	text = verifiedRegex.ReplaceAllString(text, "")
	text = sharedPublicRegex.ReplaceAllString(text, "")
	text = headerSegmentRegex.ReplaceAllString(text, "")

	text = allReactionsRegex.ReplaceAllString(text, "")
	text = interactionRegex.ReplaceAllString(text, "")
	text = commentPromptRegex.ReplaceAllString(text, "")
	text = trailingButtonRe.ReplaceAllString(text, "")

	text = controlRegex.ReplaceAllString(text, "")
	text = nonPrintableRegex.ReplaceAllString(text, "")
	text = CollapseSpace(text)

	text = repeatedPunctRegex.ReplaceAllStringFunc(text, func(run string) string {
		last, _ := utf8.DecodeLastRuneInString(run)
		return strings.Repeat(string(last), 3)
	})

	return strings.TrimSpace(text)
}

// CollapseSpace replaces every whitespace run with one space and trims the ends.
func CollapseSpace(text string) string {
	return strings.TrimSpace(spaceRegex.ReplaceAllString(text, " "))
}

// latin combining marks only: Tibetan vowel signs are also category Mn
func isLatinMark(r rune) bool {
	return r >= 0x0300 && r <= 0x036F
}

// Fold builds the comparison key used for similarity checks: case folded,
// Latin diacritics and punctuation removed, whitespace collapsed. Marks of
// other scripts are part of the word and stay.
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.Predicate(isLatinMark)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	folded = cases.Fold().String(folded)
	folded = punctuationRegex.ReplaceAllString(folded, "")
	return CollapseSpace(folded)
}

// Lower lowercases and collapses whitespace, the key used by content hashes.
func Lower(text string) string {
	return CollapseSpace(strings.ToLower(text))
}

func RuneLen(text string) int {
	return utf8.RuneCountInString(text)
}

// Truncate returns at most n runes of text.
func Truncate(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	r := []rune(text)
	return string(r[:n])
}

// HasAlnum reports whether text contains any letter or digit.
func HasAlnum(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
