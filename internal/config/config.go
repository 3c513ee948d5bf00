// Load envs from .env
// Load YAML config
// Override with env vars
// Provide default values
// Validate config

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go-kuensel-scraper/internal/dedup"
	"go-kuensel-scraper/internal/extract"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Recovery  RecoveryConfig  `yaml:"recovery"`
	Extract   ExtractConfig   `yaml:"extract"`
	Filter    FilterConfig    `yaml:"filter"`
	Dedup     dedup.Options   `yaml:"dedup"`
	Paths     PathsConfig     `yaml:"paths"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
}

// TelegramConfig is optional; notifications are only logged without it.
type TelegramConfig struct {
	Token  string `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
	ChatID int64  `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
}

func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

type ScraperConfig struct {
	PageURL                  string        `yaml:"page_url" env:"FACEBOOK_PAGE_URL" validate:"required,url"`
	PageName                 string        `yaml:"page_name" validate:"required"`
	PageID                   string        `yaml:"page_id" validate:"required"`
	TargetCount              int           `yaml:"target_count" env:"TARGET_COUNT" validate:"gte=1"`
	MaxScrolls               int           `yaml:"max_scrolls" env:"MAX_SCROLLS" validate:"gte=1"`
	MaxConsecutiveEmpty      int           `yaml:"max_consecutive_empty" validate:"gte=1"`
	MaxConsecutiveOld        int           `yaml:"max_consecutive_old" validate:"gte=1"`
	MinScrollsBeforeOldCheck int           `yaml:"min_scrolls_before_old_check" validate:"gte=1"`
	OverallTimeout           time.Duration `yaml:"overall_timeout" validate:"gt=0"`
	MaxRuntime               time.Duration `yaml:"max_runtime" env:"MAX_RUNTIME" validate:"gt=0"`
	ExpandEvery              int           `yaml:"expand_every" validate:"gte=1"`
	MaxExpansions            int           `yaml:"max_expansions" validate:"gte=1"`
	ExpansionTimeout         time.Duration `yaml:"expansion_timeout" validate:"gt=0"`
	ScrollPause              time.Duration `yaml:"scroll_pause"`
	ExpandPause              time.Duration `yaml:"expand_pause"`
	Headless                 bool          `yaml:"headless" env:"HEADLESS"`
	SkipPhotos               bool          `yaml:"skip_photos" env:"SKIP_PHOTOS"`
	GitHubActions            bool          `yaml:"-" env:"GITHUB_ACTIONS"`
}

type RecoveryConfig struct {
	MaxScrolls          int `yaml:"max_scrolls" validate:"gte=1"`
	MaxConsecutiveEmpty int `yaml:"max_consecutive_empty" validate:"gte=1"`
	DaysBack            int `yaml:"days_back" env:"RECOVERY_DAYS_BACK" validate:"gte=1"`
}

type ExtractConfig struct {
	ArticleDomains    []string           `yaml:"article_domains"`
	MaxPhotoLinks     int                `yaml:"max_photo_links" validate:"gte=0"`
	PhotoLinkTimeout  time.Duration      `yaml:"photo_link_timeout"`
	PhotoTotalTimeout time.Duration      `yaml:"photo_total_timeout"`
	ArticleTimeout    time.Duration      `yaml:"article_timeout"`
	PriorityPhrases   []extract.Category `yaml:"priority_phrases" validate:"dive"`
	Categories        []extract.Category `yaml:"categories" validate:"dive"`
}

type FilterConfig struct {
	ExtraCommentPatterns []string `yaml:"extra_comment_patterns"`
}

type PathsConfig struct {
	Archive     string `yaml:"archive" env:"ARCHIVE_PATH" validate:"required"`
	StaticAPI   string `yaml:"static_api" env:"STATIC_API_DIR" validate:"required"`
	Cookies     string `yaml:"cookies" env:"COOKIES_PATH"`
	Screenshots string `yaml:"screenshots"`
}

type SchedulerConfig struct {
	Timezone     string        `yaml:"timezone" env:"TZ_NAME" validate:"required"`
	Tick         string        `yaml:"tick" validate:"required"`
	MinInterval  time.Duration `yaml:"min_interval" validate:"gt=0"`
	RecoveryHour int           `yaml:"recovery_hour" validate:"gte=0,lte=23"`
	SummaryHour  int           `yaml:"summary_hour" validate:"gte=0,lte=23"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" env:"SERVER_ADDR" validate:"required"`
}

// DatabaseConfig: a file path selects sqlite, a postgres:// URL selects pgx.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_URL" validate:"required"`
}

type LogConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL" validate:"oneof=trace debug info warn warning error"`
	Format     string `yaml:"format" env:"LOG_FORMAT" validate:"oneof=text json"`
	Output     string `yaml:"output" env:"LOG_OUTPUT" validate:"oneof=stdout file both"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns the configuration used when no file sets a value.
func Default() *Config {
	opts := extract.DefaultOptions()
	return &Config{
		Scraper: ScraperConfig{
			PageURL:                  "https://www.facebook.com/Kuensel",
			PageName:                 opts.PageName,
			PageID:                   opts.PageID,
			TargetCount:              25,
			MaxScrolls:               15,
			MaxConsecutiveEmpty:      3,
			MaxConsecutiveOld:        8,
			MinScrollsBeforeOldCheck: 3,
			OverallTimeout:           15 * time.Minute,
			MaxRuntime:               12 * time.Minute,
			ExpandEvery:              2,
			MaxExpansions:            10,
			ExpansionTimeout:         30 * time.Second,
			ScrollPause:              time.Second,
			ExpandPause:              2 * time.Second,
			Headless:                 true,
		},
		Recovery: RecoveryConfig{
			MaxScrolls:          50,
			MaxConsecutiveEmpty: 10,
			DaysBack:            7,
		},
		Extract: ExtractConfig{
			ArticleDomains:    opts.ArticleDomains,
			MaxPhotoLinks:     opts.MaxPhotoLinks,
			PhotoLinkTimeout:  opts.PhotoLinkTimeout,
			PhotoTotalTimeout: opts.PhotoTotalTimeout,
			ArticleTimeout:    10 * time.Second,
		},
		Dedup: dedup.DefaultOptions(),
		Paths: PathsConfig{
			Archive:     "data/kuensel_posts_master.json",
			StaticAPI:   "static_api",
			Cookies:     ".cookies/cookies-facebook.json",
			Screenshots: "logs/screenshots",
		},
		Scheduler: SchedulerConfig{
			Timezone:     "Asia/Thimphu",
			Tick:         "@every 5m",
			MinInterval:  10 * time.Minute,
			RecoveryHour: 4,
			SummaryHour:  19,
		},
		Server:   ServerConfig{Addr: ":8000"},
		Database: DatabaseConfig{DSN: "data/runs.db"},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			File:       "logs/scraper.log",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// Load reads path (or CONFIG_PATH, or configs/config.yaml) on top of the
// defaults, then applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warnf("⚠️ Config file %s not found, using defaults", path)
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	//Override with env vars
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad is Load for mains.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	return cfg
}

// applyDefaults fills values a YAML file may have zeroed.
func (c *Config) applyDefaults() {
	d := Default()
	if len(c.Extract.ArticleDomains) == 0 {
		c.Extract.ArticleDomains = d.Extract.ArticleDomains
	}
	if c.Extract.PhotoLinkTimeout <= 0 {
		c.Extract.PhotoLinkTimeout = d.Extract.PhotoLinkTimeout
	}
	if c.Extract.PhotoTotalTimeout <= 0 {
		c.Extract.PhotoTotalTimeout = d.Extract.PhotoTotalTimeout
	}
	if c.Extract.ArticleTimeout <= 0 {
		c.Extract.ArticleTimeout = d.Extract.ArticleTimeout
	}
	if c.Paths.Screenshots == "" {
		c.Paths.Screenshots = d.Paths.Screenshots
	}
	if c.Log.File == "" {
		c.Log.File = d.Log.File
	}
	if c.Dedup.Threshold <= 0 {
		c.Dedup.Threshold = d.Dedup.Threshold
	}
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid config: timezone %q: %w", c.Scheduler.Timezone, err)
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return errors.New("invalid config: telegram chat_id is required when a token is set")
	}
	return nil
}

// SkipPhotos reports whether photo permalinks should be left unresolved.
// CI runners skip them.
func (c *Config) SkipPhotos() bool {
	return c.Scraper.SkipPhotos || c.Scraper.GitHubActions
}

// ExtractOptions maps the config onto the extractor's options.
func (c *Config) ExtractOptions() extract.Options {
	opts := extract.DefaultOptions()
	opts.PageName = c.Scraper.PageName
	opts.PageID = c.Scraper.PageID
	opts.ArticleDomains = c.Extract.ArticleDomains
	opts.SkipPhotos = c.SkipPhotos()
	opts.MaxPhotoLinks = c.Extract.MaxPhotoLinks
	opts.PhotoLinkTimeout = c.Extract.PhotoLinkTimeout
	opts.PhotoTotalTimeout = c.Extract.PhotoTotalTimeout
	if len(c.Extract.PriorityPhrases) > 0 {
		opts.PriorityPhrases = c.Extract.PriorityPhrases
	}
	if len(c.Extract.Categories) > 0 {
		opts.Categories = c.Extract.Categories
	}
	return opts
}
