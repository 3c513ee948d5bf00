package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-kuensel-scraper/internal/api"
	"go-kuensel-scraper/internal/config"
	"go-kuensel-scraper/internal/logger"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	closer, err := logger.Setup(cfg.Log)
	if err != nil {
		log.Fatalf("❌ Failed to set up logging: %v", err)
	}
	defer closer.Close()

	if cfg.Log.Level != "debug" && cfg.Log.Level != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(api.NewHandler(cfg.Paths.Archive)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("❌ Server shutdown: %v", err)
	}
	log.Println("👋 Server stopped")
}
