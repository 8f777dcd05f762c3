package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobagg/internal/config"
	"jobagg/internal/domain"
)

func TestNewRegistersEnabledOnly(t *testing.T) {
	var calls atomic.Int32
	task := func(ctx context.Context, req domain.ScrapeRequest) error {
		calls.Add(1)
		return nil
	}
	s, err := New([]config.Schedule{
		{Name: "a", Cron: "@hourly", Enabled: true},
		{Name: "b", Cron: "0 7 * * *", Enabled: false},
	}, task, time.Minute, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Entries())
	s.Start()
	s.Stop()
	assert.Zero(t, calls.Load())
}

func TestNewRejectsBadCron(t *testing.T) {
	_, err := New([]config.Schedule{{Name: "x", Cron: "whenever", Enabled: true}}, nil, 0, nil)
	assert.Error(t, err)
}

func TestRunNowPassesRequestAndDeadline(t *testing.T) {
	got := make(chan domain.ScrapeRequest, 1)
	task := func(ctx context.Context, req domain.ScrapeRequest) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		got <- req
		return errors.New("logged, not returned")
	}
	s, err := New(nil, task, time.Minute, nil)
	require.NoError(t, err)
	defer s.Stop()

	s.RunNow(config.Schedule{Name: "n", Request: domain.ScrapeRequest{SearchTerm: "rust"}})
	assert.Equal(t, "rust", (<-got).SearchTerm)
}
