package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go-kuensel-scraper/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// timestamps are stored as fixed-width UTC text so they sort lexically
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// Repository keeps run history and once-per-day markers.
type Repository struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to dsn: a postgres:// or postgresql:// URL selects pgx,
// anything else is a sqlite file path (":memory:" included). The schema is
// created when missing.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	var (
		db *sql.DB
		d  dialect
	)

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		config, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("unable to parse database url: %w", err)
		}
		// poolers in transaction mode do not support prepared statements
		config.DefaultQueryExecMode = pgx.QueryExecModeExec

		db = stdlib.OpenDB(*config)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(time.Hour)
		d = dialectPostgres
	} else {
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
		var err error
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		//single writer
		db.SetMaxOpenConns(1)
		d = dialectSQLite
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	repo := &Repository{db: db, dialect: d}
	if err := repo.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *Repository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			status TEXT NOT NULL,
			posts_found INTEGER NOT NULL DEFAULT 0,
			new_posts INTEGER NOT NULL DEFAULT 0,
			total_posts INTEGER NOT NULL DEFAULT 0,
			scrolls INTEGER NOT NULL DEFAULT 0,
			stop_reason TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE TABLE IF NOT EXISTS markers (
			key TEXT PRIMARY KEY,
			created_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// rebind turns ? placeholders into $n for postgres.
func (r *Repository) rebind(query string) string {
	if r.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// ---------------- RUN OPERATIONS ----------------

// RecordRun stores run, assigning an id when it has none.
func (r *Repository) RecordRun(ctx context.Context, run *models.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	query := r.rebind(`
		INSERT INTO runs (id, mode, started_at, finished_at, status, posts_found, new_posts, total_posts, scrolls, stop_reason, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		run.ID, string(run.Mode), formatTime(run.StartedAt), formatTime(run.FinishedAt), string(run.Status),
		run.PostsFound, run.NewPosts, run.TotalPosts, run.Scrolls, run.StopReason, run.Error)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

const runColumns = `id, mode, started_at, finished_at, status, posts_found, new_posts, total_posts, scrolls, stop_reason, error`

// LastRun returns the most recently started run of any mode in modes, or of
// any mode when none are given. Skipped runs are ignored.
func (r *Repository) LastRun(ctx context.Context, modes ...models.RunMode) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE status <> ?`
	args := []any{string(models.RunSkipped)}
	if len(modes) > 0 {
		query += ` AND mode IN (?` + strings.Repeat(", ?", len(modes)-1) + `)`
		for _, m := range modes {
			args = append(args, string(m))
		}
	}
	query += ` ORDER BY started_at DESC LIMIT 1`

	run, err := scanRun(r.db.QueryRowContext(ctx, r.rebind(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last run: %w", err)
	}
	return run, nil
}

// RecentRuns returns up to limit runs, newest first.
func (r *Repository) RecentRuns(ctx context.Context, limit int) ([]models.Run, error) {
	query := r.rebind(`SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC LIMIT ?`)
	return r.queryRuns(ctx, query, limit)
}

// RunsSince returns the runs started at or after since, oldest first.
func (r *Repository) RunsSince(ctx context.Context, since time.Time) ([]models.Run, error) {
	query := r.rebind(`SELECT ` + runColumns + ` FROM runs WHERE started_at >= ? ORDER BY started_at ASC`)
	return r.queryRuns(ctx, query, formatTime(since))
}

func (r *Repository) queryRuns(ctx context.Context, query string, args ...any) ([]models.Run, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.Run, error) {
	var (
		run               models.Run
		mode, status      string
		started, finished string
	)
	if err := s.Scan(&run.ID, &mode, &started, &finished, &status,
		&run.PostsFound, &run.NewPosts, &run.TotalPosts, &run.Scrolls, &run.StopReason, &run.Error); err != nil {
		return nil, err
	}
	run.Mode = models.RunMode(mode)
	run.Status = models.RunStatus(status)

	var err error
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("parse started_at %q: %w", started, err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return nil, fmt.Errorf("parse finished_at %q: %w", finished, err)
	}
	return &run, nil
}

// ---------------- MARKER OPERATIONS ----------------

// MarkOnce records key and reports whether it was new. The scheduler uses
// keys like "recovery:2026-10-16" to run daily jobs once.
func (r *Repository) MarkOnce(ctx context.Context, key string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		r.rebind(`INSERT INTO markers (key, created_at) VALUES (?, ?) ON CONFLICT (key) DO NOTHING`),
		key, formatTime(time.Now()))
	if err != nil {
		return false, fmt.Errorf("failed to set marker %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to set marker %s: %w", key, err)
	}
	return n == 1, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
