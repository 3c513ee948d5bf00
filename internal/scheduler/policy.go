package scheduler

import (
	"fmt"
	"time"

	"go-kuensel-scraper/internal/models"
)

// Policy decides how long to wait between scrape runs. The page posts most
// during office hours, so runs are denser then.
type Policy struct {
	Peak        time.Duration
	Normal      time.Duration
	Night       time.Duration
	MinInterval time.Duration
	// PeakStart..PeakEnd and DayStart..DayEnd are inclusive hours
	PeakStart, PeakEnd int
	DayStart, DayEnd   int
	WeekdayFactor      float64
	ActivityFactor     float64
}

func DefaultPolicy() Policy {
	return Policy{
		Peak:           15 * time.Minute,
		Normal:         30 * time.Minute,
		Night:          60 * time.Minute,
		MinInterval:    10 * time.Minute,
		PeakStart:      9,
		PeakEnd:        18,
		DayStart:       6,
		DayEnd:         21,
		WeekdayFactor:  0.8,
		ActivityFactor: 0.7,
	}
}

// Interval is the wait after a run finishing at now. recentActivity shortens
// it when the last run found new posts.
func (p Policy) Interval(now time.Time, recentActivity bool) time.Duration {
	hour := now.Hour()

	var d time.Duration
	switch {
	case hour >= p.PeakStart && hour <= p.PeakEnd:
		d = p.Peak
	case hour >= p.DayStart && hour <= p.DayEnd:
		d = p.Normal
	default:
		d = p.Night
	}

	if wd := now.Weekday(); wd != time.Saturday && wd != time.Sunday {
		d = time.Duration(float64(d) * p.WeekdayFactor)
	}
	if recentActivity {
		d = time.Duration(float64(d) * p.ActivityFactor)
	}
	d = d.Round(time.Second)
	if d < p.MinInterval {
		d = p.MinInterval
	}
	return d
}

// Due reports whether a scrape should start at now given the last one, and
// why.
func (p Policy) Due(now time.Time, last *models.Run) (bool, string) {
	if last == nil {
		return true, "no previous run"
	}

	elapsed := now.Sub(last.StartedAt)
	if elapsed < p.MinInterval {
		return false, fmt.Sprintf("too recent (last run %s ago, min %s)", elapsed.Round(time.Second), p.MinInterval)
	}

	interval := p.Interval(now, last.NewPosts > 0)
	if elapsed >= interval {
		return true, fmt.Sprintf("interval %s elapsed", interval)
	}
	return false, fmt.Sprintf("waiting for interval (%s remaining)", (interval - elapsed).Round(time.Second))
}

// Cooldown is how long to wait before the next run; zero when one is due.
func (p Policy) Cooldown(now time.Time, last *models.Run) time.Duration {
	if last == nil {
		return 0
	}
	elapsed := now.Sub(last.StartedAt)
	if wait := p.Interval(now, last.NewPosts > 0) - elapsed; wait > 0 {
		return wait
	}
	return 0
}
