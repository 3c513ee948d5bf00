package browser

import (
	"context"
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"
)

// RandomDelay waits between min and max, or until ctx is done.
func RandomDelay(ctx context.Context, min, max time.Duration) {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
	}
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// StepScroll scrolls down half a viewport at a time so lazily loaded feed
// items get a chance to render, then jumps to the bottom of the page.
func StepScroll(ctx context.Context, page playwright.Page, steps int, pause time.Duration) error {
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := page.Evaluate("window.scrollBy(0, window.innerHeight / 2)"); err != nil {
			return err
		}
		RandomDelay(ctx, pause/2, pause)
	}

	// Scroll to bottom to trigger lazy loading
	_, err := page.Evaluate("window.scrollTo(0, document.body.scrollHeight)")
	return err
}
