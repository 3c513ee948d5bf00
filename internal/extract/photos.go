package extract

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// PhotoPages opens photo permalinks in a secondary tab. HTML returns the
// markup of whichever tab is active; CloseTab returns to the primary one.
type PhotoPages interface {
	OpenTab(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	CloseTab(ctx context.Context) error
}

var photoViewerSelectors = []string{
	`img[data-pagelet="MediaViewerPhoto"]`,
	`img[class*="spotlight"]`,
	`img[style*="max-height"]`,
	`img[src*="fbcdn.net"][src*="scontent"]`,
	`.spotlight img`,
	`[data-testid="photo-viewer"] img`,
	`.photoContainer img`,
	`img[class*="scaledImageFit"]`,
}

// resolvePhotos opens up to MaxPhotoLinks photo permalinks and returns the
// full-size image of each. Every failure is logged and skipped.
func (e *Extractor) resolvePhotos(ctx context.Context, links []string) []string {
	ctx, cancel := context.WithTimeout(ctx, e.opts.PhotoTotalTimeout)
	defer cancel()

	start := time.Now()
	var images []string
	processed := 0
	for _, link := range links {
		if ctx.Err() != nil {
			log.Printf("⏰ Photo budget of %v used up, stopping", e.opts.PhotoTotalTimeout)
			break
		}
		if processed >= e.opts.MaxPhotoLinks {
			break
		}
		if !strings.Contains(link, "/photo?") && !strings.Contains(link, "fbid=") {
			continue
		}
		processed++

		src, err := e.resolvePhoto(ctx, link)
		if err != nil {
			log.Warnf("⚠️ Photo link %s: %v", link, err)
			continue
		}
		if src != "" {
			images = append(images, src)
		}
	}

	log.Debugf("photo resolution took %v, found %d images", time.Since(start).Round(time.Millisecond), len(images))
	return images
}

func (e *Extractor) resolvePhoto(ctx context.Context, link string) (string, error) {
	linkCtx, cancel := context.WithTimeout(ctx, e.opts.PhotoLinkTimeout)
	defer cancel()

	if err := e.pages.OpenTab(linkCtx, link); err != nil {
		// a half-opened tab still has to go
		_ = e.pages.CloseTab(context.WithoutCancel(ctx))
		return "", err
	}
	defer func() {
		if err := e.pages.CloseTab(context.WithoutCancel(ctx)); err != nil {
			log.Warnf("⚠️ Closing photo tab: %v", err)
		}
	}()

	page, err := e.pages.HTML(linkCtx)
	if err != nil {
		return "", err
	}
	return pickPhoto(page)
}

// pickPhoto returns the first full-size CDN image on a photo viewer page.
func pickPhoto(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", err
	}

	for _, selector := range photoViewerSelectors {
		var found string
		doc.Find(selector).EachWithBreak(func(_ int, img *goquery.Selection) bool {
			src := img.AttrOr("src", "")
			if IsValidImageURL(src) && strings.Contains(src, "scontent") && len(src) > 50 {
				found = src
				return false
			}
			return true
		})
		if found != "" {
			return found, nil
		}
	}
	return "", nil
}
