package filter

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoDateRegex  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	yearOnlyRegex = regexp.MustCompile(`\b(20\d{2})\b`)
)

// allowed clock skew for timestamps slightly in the future
const futureSkew = 2 * 24 * time.Hour

// IsRecent reports whether a post's publishAt lies within window before now.
// Timestamps that cannot be dated (empty, relative like "4h") count as recent.
func IsRecent(publishAt string, window time.Duration, now time.Time) bool {
	publishAt = strings.TrimSpace(publishAt)
	if publishAt == "" {
		return true
	}

	//full timestamp
	if t, err := time.Parse(time.RFC3339, publishAt); err == nil {
		return isWithin(now, t, window)
	}

	//ISO date prefix "2026-01-27" or 2026-01-27T...
	if isoDateRegex.MatchString(publishAt) {
		if t, err := time.Parse("2006-01-02", publishAt[:10]); err == nil {
			return isWithin(now, t, window)
		}
	}

	//dd/mm/yyyy
	if strings.Contains(publishAt, "/") {
		parts := strings.Split(publishAt, "/")
		if len(parts) >= 3 {
			day, errD := strconv.Atoi(strings.TrimSpace(parts[0]))
			month, errM := strconv.Atoi(strings.TrimSpace(parts[1]))
			year, errY := strconv.Atoi(strings.TrimSpace(parts[2]))
			if errD == nil && errM == nil && errY == nil {
				return isWithin(now, time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location()), window)
			}
		}
	}

	//year only: this year or last
	if match := yearOnlyRegex.FindStringSubmatch(publishAt); match != nil {
		year, _ := strconv.Atoi(match[1])
		return year == now.Year() || year == now.Year()-1
	}

	return true
}

func isWithin(now, t time.Time, window time.Duration) bool {
	diff := now.Sub(t)
	if diff > window {
		return false
	}
	if diff < -futureSkew {
		return false
	}
	return true
}
