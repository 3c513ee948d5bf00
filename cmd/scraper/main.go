package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-kuensel-scraper/internal/config"
	"go-kuensel-scraper/internal/logger"
	"go-kuensel-scraper/internal/models"
	"go-kuensel-scraper/internal/runner"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default $CONFIG_PATH or configs/config.yaml)")
	maxPosts := flag.Int("max-posts", 0, "stop after this many new posts (default from config)")
	maxScrolls := flag.Int("max-scrolls", 0, "scroll budget (default from config)")
	headless := flag.Bool("headless", true, "run the browser headless (default from config)")
	force := flag.Bool("force", false, "ignore the cooldown since the last run")
	flag.Parse()

	//load config
	cfg := config.MustLoad(*configPath)
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "headless" {
			cfg.Scraper.Headless = *headless
		}
	})

	closer, err := logger.Setup(cfg.Log)
	if err != nil {
		log.Fatalf("❌ Failed to set up logging: %v", err)
	}
	defer closer.Close()
	log.Printf("🔧 Config loaded. Page: %s", cfg.Scraper.PageURL)

	//overall budget: the run limit plus time to save and notify
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Scraper.OverallTimeout+2*time.Minute)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := runner.Setup(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize: %v", err)
	}
	defer deps.Close()

	summary, err := deps.Runner.Run(ctx, runner.Options{
		Mode:       models.ModeManual,
		MaxPosts:   *maxPosts,
		MaxScrolls: *maxScrolls,
		Force:      *force,
	})
	if summary != nil {
		printSummary(summary)
	}
	if err != nil {
		log.Errorf("❌ Scraper finished with error: %v", err)
		deps.Close()
		//closes the log file, unlike os.Exit
		log.StandardLogger().Exit(1)
	}
}

func printSummary(s *runner.Summary) {
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	if s.Skipped {
		fmt.Printf("%s next run allowed in %s\n", yellow("⏳ Skipped:"), s.Cooldown.Round(time.Second))
		return
	}

	status := green(string(s.Run.Status))
	if s.Run.Status != models.RunCompleted {
		status = red(string(s.Run.Status))
	}

	fmt.Println(cyan("\n📊 Scrape summary"))
	fmt.Printf("   Status:       %s\n", status)
	fmt.Printf("   Stop reason:  %s\n", s.Run.StopReason)
	fmt.Printf("   Scrolls:      %d\n", s.Run.Scrolls)
	fmt.Printf("   Posts found:  %d\n", s.Run.PostsFound)
	fmt.Printf("   New posts:    %s\n", green(s.Run.NewPosts))
	fmt.Printf("   Total posts:  %d\n", s.Run.TotalPosts)
	fmt.Printf("   Duplicates:   %d (similar %d, archived %d)\n", s.Stats.Duplicates, s.Stats.Similar, s.Stats.Known)
	fmt.Printf("   Rejected:     %d\n", s.Stats.Rejected)
	fmt.Printf("   Duration:     %s\n", s.Run.FinishedAt.Sub(s.Run.StartedAt).Round(time.Second))
	for _, p := range s.Fresh {
		fmt.Printf("   %s %s\n", yellow("•"), p.Title)
	}
}
