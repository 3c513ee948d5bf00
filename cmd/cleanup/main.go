package main

import (
	"errors"
	"flag"
	"time"

	"go-kuensel-scraper/internal/archive"
	"go-kuensel-scraper/internal/config"
	"go-kuensel-scraper/internal/filter"
	"go-kuensel-scraper/internal/logger"
	"go-kuensel-scraper/internal/models"
	"go-kuensel-scraper/internal/staticapi"

	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	minLength := flag.Int("min-length", filter.StrictMinLength, "posts shorter than this are treated as comments")
	dryRun := flag.Bool("dry-run", false, "only report what would be removed")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	closer, err := logger.Setup(cfg.Log)
	if err != nil {
		log.Fatalf("❌ Failed to set up logging: %v", err)
	}
	defer closer.Close()

	isComment := filter.CommentLike(*minLength)

	if *dryRun {
		a, err := archive.Read(cfg.Paths.Archive)
		if err != nil {
			log.Fatalf("❌ Failed to read archive: %v", err)
		}
		n := 0
		for _, p := range a.Posts {
			if isComment(p) {
				n++
				log.Printf("🧹 would remove %s: %.60q", p.ID, p.Content)
			}
		}
		log.Printf("📋 %d of %d posts look like comments", n, len(a.Posts))
		return
	}

	//the store's own cleanup runs after fn; use the stricter predicate for both
	store := archive.NewStore(cfg.Paths.Archive, archive.WithCleanup(isComment))
	res, err := store.Rewrite(func(*models.Archive) error { return nil })
	if errors.Is(err, archive.ErrNoArchive) {
		log.Fatalf("❌ No archive at %s", cfg.Paths.Archive)
	}
	if err != nil {
		log.Fatalf("❌ Cleanup failed: %v", err)
	}
	log.Printf("✅ Removed %d comment-like posts, %d remain", res.RemovedComments, res.TotalPosts)

	if _, err := staticapi.Generate(cfg.Paths.Archive, cfg.Paths.StaticAPI, time.Now()); err != nil {
		log.Fatalf("❌ Failed to regenerate static API: %v", err)
	}
}
