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
	configPath := flag.String("config", "", "path to config.yaml")
	daysBack := flag.Int("days", 0, "recovery window in days (default from config)")
	maxScrolls := flag.Int("max-scrolls", 0, "scroll budget (default from config)")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	if *daysBack > 0 {
		cfg.Recovery.DaysBack = *daysBack
	}

	closer, err := logger.Setup(cfg.Log)
	if err != nil {
		log.Fatalf("❌ Failed to set up logging: %v", err)
	}
	defer closer.Close()

	//deep scrolls take longer than regular runs
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := runner.Setup(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize: %v", err)
	}
	defer deps.Close()

	log.Printf("🔎 Starting historical recovery for the last %d days...", cfg.Recovery.DaysBack)
	summary, err := deps.Runner.Run(ctx, runner.Options{
		Mode:       models.ModeRecovery,
		MaxScrolls: *maxScrolls,
	})
	if summary != nil {
		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Println(cyan("\n🔎 Recovery summary"))
		fmt.Printf("   Scrolls:         %d (%s)\n", summary.Run.Scrolls, summary.Run.StopReason)
		fmt.Printf("   Posts in window: %d\n", summary.Run.PostsFound)
		fmt.Printf("   Recovered:       %s\n", green(summary.Recovered))
		fmt.Printf("   Total posts:     %d\n", summary.Run.TotalPosts)
	}
	if err != nil {
		log.Errorf("❌ Recovery failed: %v", err)
		deps.Close()
		//closes the log file, unlike os.Exit
		log.StandardLogger().Exit(1)
	}
}
