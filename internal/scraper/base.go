// Shared contracts between the feed scrapers and the page renderer.

package scraper

import (
	"context"
	"errors"

	"go-kuensel-scraper/internal/models"
)

// ErrNavigation is returned when the feed page could not be opened.
var ErrNavigation = errors.New("navigation failed")

type StopReason string

const (
	StopTargetReached     StopReason = "target_reached"
	StopMaxScrolls        StopReason = "max_scrolls"
	StopConsecutiveEmpty  StopReason = "consecutive_empty"
	StopReachedOldContent StopReason = "reached_old_content"
	StopOverallTimeout    StopReason = "overall_timeout"
	StopRuntimeLimit      StopReason = "runtime_limit"
	StopCancelled         StopReason = "cancelled"
	StopNavigationFailed  StopReason = "navigation_failed"
)

// Renderer is the browser page a scraper drives
type Renderer interface {
	//Navigate opens url in the primary tab
	Navigate(ctx context.Context, url string) error

	//HTML returns the current tab's document
	HTML(ctx context.Context) (string, error)

	//Scroll moves the primary tab to the bottom of the page
	Scroll(ctx context.Context) error

	//ClickAll clicks up to limit visible matches of selector and returns how many were clicked
	ClickAll(ctx context.Context, selector string, limit int) (int, error)

	//OpenTab opens url in a secondary tab and focuses it
	OpenTab(ctx context.Context, url string) error

	//CloseTab closes the secondary tab and returns to the primary one
	CloseTab(ctx context.Context) error
}

// Stats counts what happened to the posts seen during a run.
type Stats struct {
	Extracted  int `json:"extracted"`
	Duplicates int `json:"duplicates"`
	Known      int `json:"known"`
	Similar    int `json:"similar"`
	Rejected   int `json:"rejected"`
	Accepted   int `json:"accepted"`
	Expanded   int `json:"expanded"`
}

type Result struct {
	Posts      []models.Post
	Scrolls    int
	StopReason StopReason
	Stats      Stats
}

// Scraper defines the interface that all feed scrapers must implement
type Scraper interface {
	//Scrape collects new posts until a stop condition is met
	Scrape(ctx context.Context) (*Result, error)

	//Name is the feed name
	Name() string
}
