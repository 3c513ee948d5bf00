package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	backgroundImageRegex = regexp.MustCompile(`background-image:\s*url\(["']?(.*?)["']?\)`)
	srcsetURLRegex       = regexp.MustCompile(`https?://[^\s,]+`)
)

var lazyImageAttrs = []string{
	"data-imgurl",
	"data-src",
	"data-original",
	"data-lazy-src",
	"data-img-src",
	"data-background-image",
	"data-image-url",
}

var galleryImageSelectors = []string{
	`img[class*="scaledImageFitWidth"]`,
	`img[class*="scaledImageFitHeight"]`,
	`img[class*="_46-i"]`,
	`img[class*="fb_feed_image"]`,
	`div[style*="background-image"]`,
	`a[href*="/photo/"]`,
	`[data-testid="photo"]`,
}

// alt text of images that belong to the page chrome
var chromeAltKeywords = []string{"profile", "avatar", "emoji", "like", "icon"}

var ignoredImagePatterns = []string{
	"rsrc.php",
	"emoji.php",
	"spacer.gif",
	"transparent.gif",
	"blank.gif",
	"spinner",
	"loading",
}

var (
	mediaCDNDomains  = []string{"fbcdn.net", "facebook.com", "cdninstagram.com"}
	imageExtensions  = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}
	cdnImagePatterns = []string{"scontent", "fbcdn.net/v/t", "graph.facebook.com", "/photos/", "/photo.php"}
)

// IsValidImageURL reports whether url looks like post media rather than a UI
// asset: an absolute http(s) URL on a media CDN, with an image extension, or
// matching a CDN image path.
func IsValidImageURL(url string) bool {
	if url == "" {
		return false
	}
	for _, p := range ignoredImagePatterns {
		if strings.Contains(url, p) {
			return false
		}
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return false
	}

	if containsAny(url, mediaCDNDomains) {
		return true
	}
	if containsAny(strings.ToLower(url), imageExtensions) {
		return true
	}
	return containsAny(url, cdnImagePatterns)
}

// Media holds the image and video URLs of one post, each without duplicates.
type Media struct {
	Images []string
	Videos []string
}

// ExtractMedia collects images and videos from a post subtree.
func ExtractMedia(post *goquery.Selection) Media {
	images := newURLSet()
	videos := newURLSet()

	post.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if !IsValidImageURL(src) {
			return
		}
		alt := strings.ToLower(img.AttrOr("alt", ""))
		if containsAny(alt, chromeAltKeywords) {
			return
		}
		images.add(src)
	})

	for _, attr := range lazyImageAttrs {
		post.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
			if u := s.AttrOr(attr, ""); IsValidImageURL(u) {
				images.add(u)
			}
		})
	}

	post.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		addBackgroundImages(images, s.AttrOr("style", ""))
	})

	post.Find("[srcset]").Each(func(_ int, s *goquery.Selection) {
		for _, u := range srcsetURLRegex.FindAllString(s.AttrOr("srcset", ""), -1) {
			if IsValidImageURL(u) {
				images.add(u)
			}
		}
	})

	for _, selector := range galleryImageSelectors {
		post.Find(selector).Each(func(_ int, s *goquery.Selection) {
			switch goquery.NodeName(s) {
			case "img":
				if src := s.AttrOr("src", ""); IsValidImageURL(src) {
					images.add(src)
				}
			case "div":
				addBackgroundImages(images, s.AttrOr("style", ""))
			case "a":
				if !strings.Contains(s.AttrOr("href", ""), "/photo/") {
					return
				}
				if src := s.Find("img").First().AttrOr("src", ""); IsValidImageURL(src) {
					images.add(src)
				}
			}
		})
	}

	post.Find("video").Each(func(_ int, s *goquery.Selection) {
		videos.add(s.AttrOr("src", ""))
	})
	post.Find("[data-video-url]").Each(func(_ int, s *goquery.Selection) {
		videos.add(s.AttrOr("data-video-url", ""))
	})

	return Media{Images: images.list(), Videos: videos.list()}
}

func addBackgroundImages(images *urlSet, style string) {
	for _, m := range backgroundImageRegex.FindAllStringSubmatch(style, -1) {
		if IsValidImageURL(m[1]) {
			images.add(m[1])
		}
	}
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// urlSet keeps first-seen order.
type urlSet struct {
	seen  map[string]bool
	items []string
}

func newURLSet() *urlSet {
	return &urlSet{seen: make(map[string]bool), items: []string{}}
}

func (s *urlSet) add(u string) {
	if u == "" || s.seen[u] {
		return
	}
	s.seen[u] = true
	s.items = append(s.items, u)
}

func (s *urlSet) list() []string {
	return s.items
}
