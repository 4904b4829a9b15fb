package provider

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Background runs tasks that must outlive the page request that spawned
// them, such as the default dapp allotment transfer. Concurrency is bounded
// so a hostile page cannot pile up unbounded work, and Wait lets the
// embedding application drain in-flight tasks on shutdown.
type Background struct {
	sem    *semaphore.Weighted
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewBackground creates a runner that executes at most maxConcurrent tasks
// at a time.
func NewBackground(maxConcurrent int64, logger *slog.Logger) *Background {
	if logger == nil {
		logger = slog.Default()
	}
	return &Background{
		sem:    semaphore.NewWeighted(maxConcurrent),
		logger: logger,
	}
}

// Go runs task on its own goroutine with a fresh context, detached from the
// request that spawned it. Blocks only while the concurrency limit is
// exhausted. Panics in the task are recovered and logged so one bad task
// cannot take the process down.
func (b *Background) Go(name string, task func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("background task panic",
					slog.String("task", name),
					slog.Any("panic", r),
				)
			}
		}()
		ctx := context.Background()
		if err := b.sem.Acquire(ctx, 1); err != nil {
			b.logger.Error("background task not started",
				slog.String("task", name),
				slog.Any("error", err),
			)
			return
		}
		defer b.sem.Release(1)
		task(ctx)
	}()
}

// Wait blocks until all submitted tasks have finished.
func (b *Background) Wait() {
	b.wg.Wait()
}
