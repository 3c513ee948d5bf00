package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-kuensel-scraper/internal/config"
	"go-kuensel-scraper/internal/database"
	"go-kuensel-scraper/internal/models"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Jobs are the three things a tick can start.
type Jobs interface {
	Scrape(ctx context.Context) error
	Recover(ctx context.Context) error
	Summary(ctx context.Context) error
}

// RunStore is the slice of run history the scheduler needs.
type RunStore interface {
	LastRun(ctx context.Context, modes ...models.RunMode) (*models.Run, error)
	MarkOnce(ctx context.Context, key string) (bool, error)
}

// Scheduler checks on every cron tick whether a scrape, the daily recovery
// or the daily summary is due. Only one job runs at a time; a tick that
// finds one in progress is skipped.
type Scheduler struct {
	running  sync.Mutex
	cron     *cron.Cron
	location *time.Location
	cfg      config.SchedulerConfig
	policy   Policy
	store    RunStore
	jobs     Jobs
	now      func() time.Time
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(cfg config.SchedulerConfig, store RunStore, jobs Jobs) (*Scheduler, error) {
	if store == nil || jobs == nil {
		return nil, errors.New("store and jobs must not be nil")
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	policy := DefaultPolicy()
	if cfg.MinInterval > 0 {
		policy.MinInterval = cfg.MinInterval
	}

	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		location: loc,
		cfg:      cfg,
		policy:   policy,
		store:    store,
		jobs:     jobs,
		now:      time.Now,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if _, err := s.cron.AddFunc(cfg.Tick, func() { s.Tick(s.ctx) }); err != nil {
		return nil, fmt.Errorf("add cron: %w", err)
	}
	return s, nil
}

func (s *Scheduler) Policy() Policy { return s.policy }

func (s *Scheduler) Location() *time.Location { return s.location }

func (s *Scheduler) Start() {
	log.Printf("⏰ Scheduler started (%s, tick %s)", s.location, s.cfg.Tick)
	s.cron.Start()
}

// Stop cancels a running job and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	log.Println("🛑 Scheduler stopped")
}

// Tick runs whatever is due at the current time.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.running.TryLock() {
		log.Println("⏭️ Previous job still running, skipping tick")
		return
	}
	defer s.running.Unlock()

	now := s.now().In(s.location)
	day := now.Format("2006-01-02")

	if now.Hour() == s.cfg.RecoveryHour && s.markOnce(ctx, "recovery:"+day) {
		log.Println("🔎 Starting daily recovery")
		if err := s.jobs.Recover(ctx); err != nil {
			log.Errorf("❌ Recovery failed: %v", err)
		}
	} else if due, reason := s.scrapeDue(ctx, now); due {
		log.Printf("🚀 Starting scrape: %s", reason)
		if err := s.jobs.Scrape(ctx); err != nil {
			log.Errorf("❌ Scrape failed: %v", err)
		}
	} else {
		log.Debugf("💤 Scrape not due: %s", reason)
	}

	if now.Hour() == s.cfg.SummaryHour && s.markOnce(ctx, "summary:"+day) {
		if err := s.jobs.Summary(ctx); err != nil {
			log.Errorf("❌ Daily summary failed: %v", err)
		}
	}
}

func (s *Scheduler) scrapeDue(ctx context.Context, now time.Time) (bool, string) {
	last, err := s.store.LastRun(ctx, models.ModeScheduled, models.ModeManual)
	switch {
	case errors.Is(err, database.ErrNotFound):
		last = nil
	case err != nil:
		return false, fmt.Sprintf("run history unavailable: %v", err)
	}
	return s.policy.Due(now, last)
}

func (s *Scheduler) markOnce(ctx context.Context, key string) bool {
	first, err := s.store.MarkOnce(ctx, key)
	if err != nil {
		log.Warnf("⚠️ Could not set marker %s: %v", key, err)
		return false
	}
	return first
}
