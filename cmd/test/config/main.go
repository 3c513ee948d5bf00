package main

import (
	"fmt"

	"go-kuensel-scraper/internal/config"
)

func main() {
	fmt.Println("🔧 Testing config loading...")
	cfg := config.MustLoad("")
	fmt.Printf("✅ Config loaded successfully!\n")
	fmt.Printf("   Page: %s (%s)\n", cfg.Scraper.PageURL, cfg.Scraper.PageName)
	fmt.Printf("   Target: %d posts, %d scrolls, timeout %s\n", cfg.Scraper.TargetCount, cfg.Scraper.MaxScrolls, cfg.Scraper.OverallTimeout)
	fmt.Printf("   Telegram: %t\n", cfg.Telegram.Enabled())
	fmt.Printf("   Archive: %s\n", cfg.Paths.Archive)
	fmt.Printf("   Static API: %s\n", cfg.Paths.StaticAPI)
	fmt.Printf("   Database: %s\n", cfg.Database.DSN)
	fmt.Printf("   Categories: %d, extra comment patterns: %d\n", len(cfg.ExtractOptions().Categories), len(cfg.Filter.ExtraCommentPatterns))
	fmt.Printf("   Skip photos: %t\n", cfg.SkipPhotos())
}
