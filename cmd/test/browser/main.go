package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-kuensel-scraper/internal/config"
	"go-kuensel-scraper/internal/runner"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

func main() {
	fmt.Println("🌐 Testing browser session...")

	cfg := config.MustLoad("")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	//same launch path as the scraper
	page, err := runner.OpenBrowser(cfg)(ctx)
	if err != nil {
		log.Fatalf("Failed to open browser: %v", err)
	}
	defer page.Close()
	fmt.Println("✅ Browser started")

	fmt.Printf("🔍 Navigating to %s...\n", cfg.Scraper.PageURL)
	if err := page.Navigate(ctx, cfg.Scraper.PageURL); err != nil {
		log.Fatalf("Failed to navigate: %v", err)
	}
	if err := page.Scroll(ctx); err != nil {
		log.Printf("Scroll failed: %v", err)
	}

	html, err := page.HTML(ctx)
	if err != nil {
		log.Fatalf("Failed to read page: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Fatalf("Failed to parse page: %v", err)
	}

	fmt.Printf("✅ Page title: %s\n", doc.Find("title").Text())
	fmt.Printf("✅ %d bytes, %d article nodes\n", len(html), doc.Find("div[role='article']").Length())
	fmt.Println("✨ Test complete!")
}
