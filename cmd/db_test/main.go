package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-kuensel-scraper/internal/config"
	"go-kuensel-scraper/internal/database"
	"go-kuensel-scraper/internal/models"

	log "github.com/sirupsen/logrus"
)

func main() {
	cfg := config.MustLoad("")

	fmt.Printf("Attempting to connect to %s...\n", cfg.Database.DSN)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := database.Open(ctx, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("❌ Failed to connect to the database: %v", err)
	}
	defer repo.Close()
	fmt.Println("✅ Connected, schema migrated")

	runs, err := repo.RecentRuns(ctx, 10)
	if err != nil {
		log.Fatalf("❌ Query failed: %v", err)
	}
	fmt.Printf("📦 %d recent runs\n", len(runs))
	for _, r := range runs {
		fmt.Printf("   %s %-9s %-9s new=%d total=%d %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.Mode, r.Status, r.NewPosts, r.TotalPosts, r.StopReason)
	}

	last, err := repo.LastRun(ctx, models.ModeScheduled, models.ModeManual)
	switch {
	case err == nil:
		fmt.Printf("🕒 Last scrape %s ago\n", time.Since(last.StartedAt).Round(time.Second))
	case errors.Is(err, database.ErrNotFound):
		fmt.Println("🕒 No scrape recorded yet")
	default:
		log.Fatalf("❌ Query failed: %v", err)
	}

	key := "db_test:" + time.Now().Format(time.RFC3339Nano)
	first, err := repo.MarkOnce(ctx, key)
	if err != nil {
		log.Fatalf("❌ Marker insert failed: %v", err)
	}
	second, _ := repo.MarkOnce(ctx, key)
	fmt.Printf("✅ Markers: first=%t second=%t\n", first, second)
}
