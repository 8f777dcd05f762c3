package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jobagg/internal/config"
	"jobagg/internal/domain"
	"jobagg/internal/events"
	"jobagg/internal/fetch"
	"jobagg/internal/scrape"
	"jobagg/internal/scrape/wire"
	"jobagg/internal/store"
)

// loadConfig bootstraps dataDir/config.yml, applies .env and JOBAGG_*
// overrides and validates the result.
func loadConfig(dataDir string, log *slog.Logger) (config.Config, string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return config.Config{}, "", err
	}
	path, err := config.EnsureUserConfig(dataDir)
	if err != nil {
		return config.Config{}, "", fmt.Errorf("config bootstrap failed: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, path, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := config.OverlayEnv(&cfg, ".env", filepath.Join(dataDir, ".env")); err != nil {
		return cfg, path, err
	}
	if cfg.App.DataDir == "" || cfg.App.DataDir == "." {
		cfg.App.DataDir = dataDir
	}
	cfg, v := config.NormalizeAndValidate(cfg)
	for _, w := range v.Warnings {
		log.Warn("config", slog.String("warning", w))
	}
	return cfg, path, v.Err()
}

func newLogger(level, format string) *slog.Logger {
	var lv slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lv}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newAggregator(cfg config.Config, pub scrape.Publisher, log *slog.Logger) (*scrape.Aggregator, error) {
	descriptors, err := wire.Load(cfg.Sources.DescriptorsPath)
	if err != nil {
		return nil, err
	}
	proxies, err := fetch.NewProxyPool(cfg.Fetch.Proxies)
	if err != nil {
		return nil, err
	}
	retry := fetch.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.Fetch.MaxAttempts
	retry.InitialBackoff = time.Duration(cfg.Fetch.InitialBackoffMS) * time.Millisecond
	retry.MaxBackoff = time.Duration(cfg.Fetch.MaxBackoffMS) * time.Millisecond

	return scrape.NewAggregator(scrape.Options{
		Wire: descriptors,
		Fetch: fetch.Options{
			Timeout:   cfg.Fetch.Timeout(),
			Retry:     retry,
			Proxies:   proxies,
			Limiter:   fetch.NewHostLimiter(cfg.Fetch.RequestsPerSecond, cfg.Fetch.Burst),
			UserAgent: cfg.Fetch.UserAgent,
		},
		Controller: scrape.ControllerOptions{
			MinDelay: cfg.MinDelay(),
			MaxDelay: cfg.MaxDelay(),
			Salary:   cfg.Normalize.Salary,
		},
		SourceTimeout: cfg.SourceTimeout(),
		Publisher:     pub,
		Logger:        log,
	}), nil
}

// runner runs one batch, persists it when db is set and announces the save.
type runner struct {
	agg *scrape.Aggregator
	db  *store.DB
	hub *events.Hub
}

func (r runner) Run(ctx context.Context, req domain.ScrapeRequest) (*scrape.Batch, error) {
	b, err := r.agg.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	if r.db == nil {
		return b, nil
	}
	added, err := r.db.SaveRun(ctx, store.RunInput{
		ID:         b.ID,
		Request:    b.Request,
		Sources:    b.Sources,
		StartedAt:  b.StartedAt,
		FinishedAt: b.FinishedAt,
		Jobs:       b.Jobs,
	})
	if err != nil {
		return b, fmt.Errorf("save run %s: %w", b.ID, err)
	}
	if r.hub != nil {
		r.hub.Publish(events.MakeEvent(b.ID, events.TypeJobsSaved, events.Version, events.RunProgress{Jobs: added}))
	}
	return b, nil
}

// Task adapts Run for the scheduler.
func (r runner) Task(ctx context.Context, req domain.ScrapeRequest) error {
	_, err := r.Run(ctx, req)
	return err
}
