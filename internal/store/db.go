package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

type DB struct {
	Pool *sql.DB

	// lock serialises writers across processes, e.g. `jobagg run` next to a
	// running `jobagg serve`.
	lock *flock.Flock
	log  *slog.Logger
}

func Open(path string, log *slog.Logger) (*DB, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	pool.SetMaxOpenConns(1) // sqlite typically wants 1 writer
	pool.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	if err := Migrate(pool); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}

	return &DB{Pool: pool, lock: flock.New(path + ".lock"), log: log}, nil
}

// withWriteLock runs fn holding the cross-process lock file.
func (d *DB) withWriteLock(ctx context.Context, fn func() error) error {
	ok, err := d.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("store lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("store lock: not acquired")
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.log.Warn("store unlock failed", slog.Any("err", err))
		}
	}()
	return fn()
}

func (d *DB) Close() error {
	if d == nil || d.Pool == nil {
		return nil
	}
	return d.Pool.Close()
}
