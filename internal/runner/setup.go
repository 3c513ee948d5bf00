package runner

import (
	"context"
	"fmt"

	"go-kuensel-scraper/internal/archive"
	"go-kuensel-scraper/internal/browser"
	"go-kuensel-scraper/internal/config"
	"go-kuensel-scraper/internal/database"
	"go-kuensel-scraper/internal/enrich"
	"go-kuensel-scraper/internal/reporter"
	"go-kuensel-scraper/internal/telegram"

	log "github.com/sirupsen/logrus"
)

// Deps is everything a main needs to run scrapes.
type Deps struct {
	Runner   *Runner
	Store    *archive.Store
	History  *database.Repository
	Reporter *reporter.Reporter
}

func (d *Deps) Close() error {
	if d.History == nil {
		return nil
	}
	return d.History.Close()
}

// Setup wires a Runner from cfg: archive store, run history, Telegram
// reporter (log-only when no token is configured), article fetcher and a
// playwright browser per run.
func Setup(ctx context.Context, cfg *config.Config) (*Deps, error) {
	history, err := database.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}

	var sender reporter.Sender
	if cfg.Telegram.Enabled() {
		bot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			log.Printf("⚠️ Telegram disabled: %v", err)
		} else {
			sender = bot
			log.Println("🤖 Telegram Bot initialized.")
		}
	}
	rep := reporter.New(sender)

	store := archive.NewStore(cfg.Paths.Archive)
	fetcher := enrich.NewFetcher(
		enrich.WithTimeout(cfg.Extract.ArticleTimeout),
		enrich.WithUserAgent(browser.DefaultUserAgent),
	)

	r := New(cfg, store, history, rep, OpenBrowser(cfg), fetcher)
	return &Deps{Runner: r, Store: store, History: history, Reporter: rep}, nil
}

// OpenBrowser returns an OpenFunc that launches playwright with cfg's
// browser settings and cookies.
func OpenBrowser(cfg *config.Config) OpenFunc {
	return func(ctx context.Context) (Page, error) {
		bopts := browser.DefaultOptions()
		bopts.Headless = cfg.Scraper.Headless
		bopts.TimezoneID = cfg.Scheduler.Timezone

		ropts := browser.DefaultRendererOptions()
		ropts.ScreenshotDir = cfg.Paths.Screenshots
		if cfg.Scraper.ScrollPause > 0 {
			ropts.ScrollPause = cfg.Scraper.ScrollPause
		}

		session, err := browser.OpenSession(ctx, browser.SessionOptions{
			Browser:     bopts,
			Renderer:    ropts,
			CookiesPath: cfg.Paths.Cookies,
		})
		if err != nil {
			return nil, err
		}
		return session, nil
	}
}

var _ Page = (*browser.Session)(nil)
