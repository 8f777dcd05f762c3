package httpapi

import (
	"context"
	"database/sql"
	"log/slog"
	"sync/atomic"

	"jobagg/internal/config"
	"jobagg/internal/domain"
	"jobagg/internal/events"
	"jobagg/internal/scrape"
	"jobagg/internal/scrape/types"
)

type Deps struct {
	DB *sql.DB

	Hub *events.Hub
	Log *slog.Logger

	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Scrape entrypoint (inject for testability). It runs one batch and
	// persists it.
	RunScrape func(ctx context.Context, req domain.ScrapeRequest) (*scrape.Batch, error)
	// SourceStatus reports the last outcome per source.
	SourceStatus func() []types.SourceStatus
}
