package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go-kuensel-scraper/internal/archive"
	"go-kuensel-scraper/internal/config"
	"go-kuensel-scraper/internal/extract"
	"go-kuensel-scraper/internal/filter"
	"go-kuensel-scraper/internal/reporter"
	"go-kuensel-scraper/internal/scraper/facebook"
	"go-kuensel-scraper/internal/staticapi"
	"go-kuensel-scraper/internal/telegram"

	log "github.com/sirupsen/logrus"
)

// fileRenderer serves a saved feed page in place of the browser.
type fileRenderer struct {
	html string
}

func (f *fileRenderer) Navigate(context.Context, string) error            { return nil }
func (f *fileRenderer) HTML(context.Context) (string, error) { return f.html, nil }
func (f *fileRenderer) Scroll(context.Context) error                      { return nil }
func (f *fileRenderer) ClickAll(context.Context, string, int) (int, error) { return 0, nil }
func (f *fileRenderer) OpenTab(context.Context, string) error             { return nil }
func (f *fileRenderer) CloseTab(context.Context) error                    { return nil }

func main() {
	htmlPath := flag.String("html", "internal/extract/testdata/feed.html", "saved feed page")
	outDir := flag.String("out", "", "output directory (default: a temp dir)")
	notify := flag.Bool("telegram", false, "send the result to the configured chat")
	flag.Parse()

	cfg := config.MustLoad("")

	page, err := os.ReadFile(*htmlPath)
	if err != nil {
		log.Fatalf("Could not read %s: %v", *htmlPath, err)
	}

	dir := *outDir
	if dir == "" {
		if dir, err = os.MkdirTemp("", "kuensel-e2e-"); err != nil {
			log.Fatalf("Could not create temp dir: %v", err)
		}
	}
	archivePath := filepath.Join(dir, "kuensel_posts_master.json")
	apiDir := filepath.Join(dir, "static_api")

	// 1. Scrape the saved page
	validator, err := filter.NewValidator(cfg.Filter.ExtraCommentPatterns)
	if err != nil {
		log.Fatalf("Invalid comment patterns: %v", err)
	}
	opts := cfg.ExtractOptions()
	opts.SkipPhotos = true
	renderer := &fileRenderer{html: string(page)}
	extractor := extract.NewExtractor(opts, nil, nil)

	fbOpts := facebook.DefaultOptions()
	fbOpts.PageURL = cfg.Scraper.PageURL
	fbOpts.MaxScrolls = 2
	fbOpts.MaxConsecutiveEmpty = 1
	fbOpts.Pauses = facebook.Pauses{}
	fbOpts.Dedup = cfg.Dedup

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	result, err := facebook.New(renderer, extractor, validator, nil, fbOpts).Scrape(ctx)
	if err != nil {
		log.Fatalf("Scrape failed: %v", err)
	}
	fmt.Printf("✅ Scraped %d posts (%s)\n", len(result.Posts), result.StopReason)

	// 2. Save the archive
	store := archive.NewStore(archivePath)
	saved, err := store.MergeAndSave(result.Posts)
	if err != nil {
		log.Fatalf("Save failed: %v", err)
	}
	fmt.Printf("✅ Archive: %d new, %d total -> %s\n", saved.NewPosts, saved.TotalPosts, archivePath)

	// 3. Static API
	snap, err := staticapi.Generate(archivePath, apiDir, time.Now())
	if err != nil {
		log.Fatalf("Static API failed: %v", err)
	}
	fmt.Printf("✅ Static API: %d posts -> %s\n", snap.TotalPosts, apiDir)

	// 4. Notify
	var sender reporter.Sender
	if *notify && cfg.Telegram.Enabled() {
		bot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			log.Fatalf("Telegram init failed: %v", err)
		}
		sender = bot
	}
	rep := reporter.New(sender)
	if err := rep.NewPosts(saved.Fresh); err != nil {
		log.Fatalf("Notification failed: %v", err)
	}
	fmt.Println("✨ E2E pipeline finished")
}
