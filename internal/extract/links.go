package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var internalLinkPatterns = []string{"facebook.com", "/permalink.php", "/photos/"}

// ExtractLinks returns the post's external links followed by its photo
// permalinks. Relative hrefs are resolved against base, and outbound
// redirect links are unwrapped to their target.
func ExtractLinks(post *goquery.Selection, base string) []string {
	baseURL, _ := url.Parse(base)
	links := newURLSet()
	photos := newURLSet()

	post.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return
		}
		if strings.HasPrefix(href, "/") && baseURL != nil {
			if ref, err := url.Parse(href); err == nil {
				href = baseURL.ResolveReference(ref).String()
			}
		}
		href = unwrapRedirect(href)

		switch {
		case IsPhotoLink(href):
			photos.add(href)
		case isExternalLink(href) || strings.Contains(href, "/permalink.php"):
			links.add(href)
		}
	})

	return append(links.list(), photos.list()...)
}

// IsPhotoLink reports whether href points at a photo permalink on the feed's own domain.
func IsPhotoLink(href string) bool {
	return strings.Contains(href, "/photo?") || strings.Contains(href, "/photos/") || strings.Contains(href, "fbid=")
}

func isExternalLink(href string) bool {
	if !strings.HasPrefix(href, "http") {
		return false
	}
	return !containsAny(href, internalLinkPatterns)
}

// l.facebook.com/l.php?u=<target> wraps every outbound link
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil || !strings.HasSuffix(u.Host, "l.facebook.com") || u.Path != "/l.php" {
		return href
	}
	if target := u.Query().Get("u"); strings.HasPrefix(target, "http") {
		return target
	}
	return href
}
