package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-kuensel-scraper/internal/archive"
	"go-kuensel-scraper/internal/models"
)

// DayHistory lists the runs of a day for the summary.
type DayHistory interface {
	RunsSince(ctx context.Context, since time.Time) ([]models.Run, error)
}

type SummaryReporter interface {
	DailySummary(runs []models.Run, totalPosts int) error
}

// Jobs adapts a Runner to the scheduler. The scheduler has already applied
// the interval policy, so scheduled scrapes are forced.
type Jobs struct {
	Runner   *Runner
	History  DayHistory
	Reporter SummaryReporter
	Location *time.Location
}

func (j Jobs) Scrape(ctx context.Context) error {
	_, err := j.Runner.Run(ctx, Options{Mode: models.ModeScheduled, Force: true})
	return err
}

func (j Jobs) Recover(ctx context.Context) error {
	_, err := j.Runner.Run(ctx, Options{Mode: models.ModeRecovery})
	return err
}

// Summary reports today's runs and the archive size.
func (j Jobs) Summary(ctx context.Context) error {
	loc := j.Location
	if loc == nil {
		loc = time.Local
	}
	now := j.Runner.now().In(loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	runs, err := j.History.RunsSince(ctx, midnight)
	if err != nil {
		return fmt.Errorf("load today's runs: %w", err)
	}

	total := 0
	a, err := archive.Read(j.Runner.store.Path())
	switch {
	case errors.Is(err, archive.ErrNoArchive):
	case err != nil:
		return err
	default:
		total = len(a.Posts)
	}
	return j.Reporter.DailySummary(runs, total)
}
