package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-kuensel-scraper/internal/config"
	"go-kuensel-scraper/internal/logger"
	"go-kuensel-scraper/internal/runner"
	"go-kuensel-scraper/internal/scheduler"

	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	once := flag.Bool("once", false, "evaluate the schedule once and exit")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	closer, err := logger.Setup(cfg.Log)
	if err != nil {
		log.Fatalf("❌ Failed to set up logging: %v", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := runner.Setup(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize: %v", err)
	}
	defer deps.Close()

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatalf("❌ Invalid timezone: %v", err)
	}
	jobs := runner.Jobs{
		Runner:   deps.Runner,
		History:  deps.History,
		Reporter: deps.Reporter,
		Location: loc,
	}

	s, err := scheduler.New(cfg.Scheduler, deps.History, jobs)
	if err != nil {
		log.Fatalf("❌ Failed to create scheduler: %v", err)
	}

	//cron mode on CI: one decision per invocation
	if *once {
		s.Tick(ctx)
		return
	}

	s.Start()
	log.Printf("⏰ Scheduler running (%s, %s). Press Ctrl+C to stop.", cfg.Scheduler.Tick, cfg.Scheduler.Timezone)
	<-ctx.Done()

	log.Println("🛑 Shutting down scheduler...")
	s.Stop()
	log.Println("👋 Bye")
}
