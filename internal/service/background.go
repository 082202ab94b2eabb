package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Background runs post-commit side effects detached from the request that
// triggered them. Errors and panics are logged and dropped.
type Background struct {
	wg     sync.WaitGroup
	logger *zap.SugaredLogger
}

func NewBackground(logger *zap.SugaredLogger) *Background {
	return &Background{logger: logger}
}

func (b *Background) Go(name string, timeout time.Duration, fn func(ctx context.Context) error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Errorw("background task panicked", "task", name, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			b.logger.Warnw("background task failed", "task", name, "error", err)
		}
	}()
}

// Wait blocks until every started task has returned.
func (b *Background) Wait() {
	b.wg.Wait()
}
