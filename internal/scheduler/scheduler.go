package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"jobagg/internal/config"
	"jobagg/internal/domain"
)

type Task func(ctx context.Context, req domain.ScrapeRequest) error

// Scheduler runs saved searches on their cron expressions. A schedule whose
// previous run is still going is skipped rather than stacked.
type Scheduler struct {
	cron    *cron.Cron
	log     *slog.Logger
	task    Task
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

// New registers every enabled schedule. timeout bounds one run.
func New(schedules []config.Schedule, task Task, timeout time.Duration, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(config.CronParser),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		log:     log,
		task:    task,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, sc := range schedules {
		if !sc.Enabled {
			continue
		}
		if _, err := s.cron.AddJob(sc.Cron, s.job(sc)); err != nil {
			cancel()
			return nil, fmt.Errorf("schedule %q: %w", sc.Name, err)
		}
		log.Info("schedule registered", slog.String("name", sc.Name), slog.String("cron", sc.Cron))
	}
	return s, nil
}

func (s *Scheduler) job(sc config.Schedule) cron.Job {
	return cron.FuncJob(func() {
		s.RunNow(sc)
	})
}

// RunNow runs one schedule synchronously.
func (s *Scheduler) RunNow(sc config.Schedule) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	if err := s.task(ctx, sc.Request); err != nil {
		s.log.Error("scheduled run failed", slog.String("name", sc.Name), slog.Any("err", err))
		return
	}
	s.log.Info("scheduled run finished", slog.String("name", sc.Name), slog.Duration("took", time.Since(start)))
}

// Entries is the number of registered schedules.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start() { s.cron.Start() }

// Stop cancels running tasks and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}
