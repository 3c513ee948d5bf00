package browser

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

// SessionOptions describe one browser session for a scrape run.
type SessionOptions struct {
	Browser     Options
	Renderer    RendererOptions
	CookiesPath string
}

// Session owns the driver, the browser context and the page renderer of one
// run. Close tears all of them down.
type Session struct {
	*Renderer
	manager *PlaywrightManager
}

// OpenSession launches the browser and opens the primary page. A missing or
// unreadable cookie file only logs; the page is then loaded logged out.
func OpenSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	manager, err := NewPlaywright(ctx, opts.Browser)
	if err != nil {
		return nil, err
	}

	cookies, err := LoadCookies(opts.CookiesPath)
	if err != nil {
		log.Printf("⚠️ Could not load cookies from %s: %v. Continuing.", opts.CookiesPath, err)
		cookies = nil
	} else {
		log.Printf("🍪 Loaded %d cookies", len(cookies))
	}

	bctx, err := manager.NewContext(cookies)
	if err != nil {
		manager.Close()
		return nil, err
	}

	renderer, err := NewRenderer(bctx, opts.Renderer)
	if err != nil {
		manager.Close()
		return nil, err
	}
	log.Println("✅ Browser initialized successfully!")
	return &Session{Renderer: renderer, manager: manager}, nil
}

func (s *Session) Close() error {
	return errors.Join(s.Renderer.Close(), s.manager.Close())
}
