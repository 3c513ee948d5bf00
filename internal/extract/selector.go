package extract

import (
	"strings"

	"go-kuensel-scraper/internal/textnorm"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

type probeKind int

const (
	// attribute markers the feed puts on the message body
	probeMarker probeKind = iota
	// generic text-bearing tags
	probeGeneric
	// any text inside the post
	probeBroad
)

func (k probeKind) String() string {
	switch k {
	case probeMarker:
		return "marker"
	case probeGeneric:
		return "generic"
	default:
		return "broad"
	}
}

type probe struct {
	kind     probeKind
	selector string
}

var contentProbes = []probe{
	{probeMarker, "[data-ad-preview='message']"},
	{probeMarker, ".userContent"},
	{probeMarker, "[data-testid='post_message']"},
	{probeMarker, "div[data-ad-comet-preview='message']"},
	{probeMarker, "div[data-testid='story-subtitle'] + div"},
	{probeMarker, "div[data-testid='story-subtitle'] ~ div"},
	{probeMarker, "[data-testid='story-subtitle'] ~ [dir='auto']"},

	{probeGeneric, "div[dir='auto']"},
	{probeGeneric, "span[dir='auto']"},
	{probeGeneric, "div[direction='auto']"},
	{probeGeneric, "div > span:not([class])"},
	{probeGeneric, "div > div > span"},
	{probeGeneric, "div:not([class*='comment']):not([class*='reaction'])"},
	{probeGeneric, "p"},

	{probeBroad, "[role='article'] div"},
	{probeBroad, "[role='article'] span"},
	{probeBroad, "[role='article'] p"},
}

// A match is rejected when it is, sits inside, or contains one of these.
// [role=article] covers comments, which the feed renders as nested articles.
var excludeMatchers = compileMatchers(
	"[role='article']",
	"[data-testid='comment']",
	".comment",
	"[data-testid='UFI2Comment/root']",
	"[aria-label*='comment']",
	"[aria-label*='Comment']",
	"div[aria-label*='reaction']",
	"div[aria-label*='like']",
	"[data-testid='reactions-section']",
	"[data-testid='social-context']",
	"[data-testid='story-header']",
	"[data-testid='story-subtitle']",
)

const (
	minCandidateRunes = 10
	minFallbackRunes  = 20
)

func compileMatchers(selectors ...string) []goquery.Matcher {
	matchers := make([]goquery.Matcher, len(selectors))
	for i, s := range selectors {
		matchers[i] = cascadia.MustCompile(s)
	}
	return matchers
}

// SelectContent picks the body text of one candidate post: every probe match
// that is clear of comment and reaction blocks is cleaned, and the longest
// surviving text wins. When nothing survives, the candidate's whole text is
// used, or "" if that is still too short.
func SelectContent(candidate *goquery.Selection) string {
	best := ""
	bestLen := 0
	visited := make(map[*html.Node]bool)

	for _, p := range contentProbes {
		candidate.Find(p.selector).Each(func(_ int, elem *goquery.Selection) {
			node := elem.Get(0)
			if visited[node] {
				return
			}
			visited[node] = true

			if isExcluded(candidate, elem) {
				return
			}

			text := textnorm.Clean(textnorm.FilterCommentLines(nodeText(elem)))
			n := textnorm.RuneLen(text)
			if n < minCandidateRunes {
				return
			}
			if n > bestLen {
				best, bestLen = text, n
				log.WithField("probe", p.kind.String()).Debugf("content candidate %q", textnorm.Truncate(text, 60))
			}
		})
	}

	if best != "" {
		return best
	}

	text := textnorm.Clean(textnorm.FilterCommentLines(nodeText(candidate)))
	if textnorm.RuneLen(text) < minFallbackRunes {
		return ""
	}
	return text
}

func isExcluded(candidate, elem *goquery.Selection) bool {
	ancestors := elem.ParentsUntilSelection(candidate)
	for _, m := range excludeMatchers {
		if elem.IsMatcher(m) {
			return true
		}
		if ancestors.FilterMatcher(m).Length() > 0 {
			return true
		}
		if elem.FindMatcher(m).Length() > 0 {
			return true
		}
	}
	return false
}

// nodeText joins the trimmed text nodes under sel with line breaks, skipping
// script and style contents.
func nodeText(sel *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" || n.Data == "noscript" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, "\n")
}
