// Package worker runs background notification work on a bounded goroutine pool.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"task-notify/internal/pkg/logger"
)

var ErrPoolClosed = errors.New("worker pool is closed")

// Task receives the pool's lifecycle context, which is cancelled on Shutdown.
type Task func(ctx context.Context)

type Pool struct {
	pool   *ants.Pool
	name   string
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a pool of at most size goroutines. Submissions block when the
// pool is saturated.
func New(ctx context.Context, name string, size int) (*Pool, error) {
	if size <= 0 {
		size = 16
	}

	panicHandler := func(p interface{}) {
		logger.Error("worker panic recovered",
			zap.String("pool", name),
			zap.Any("panic", p),
			zap.Stack("stack"),
		)
	}

	p, err := ants.NewPool(size,
		ants.WithPanicHandler(panicHandler),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(10*time.Second),
	)
	if err != nil {
		return nil, err
	}

	poolCtx, cancel := context.WithCancel(ctx)
	return &Pool{pool: p, name: name, ctx: poolCtx, cancel: cancel}, nil
}

// Submit queues a detached task. The task outlives the request that created it
// but stops being started once Shutdown is called.
func (p *Pool) Submit(task Task) error {
	select {
	case <-p.ctx.Done():
		return ErrPoolClosed
	default:
	}

	err := p.pool.Submit(func() {
		select {
		case <-p.ctx.Done():
			logger.Debug("task skipped: pool shutting down", zap.String("pool", p.name))
			return
		default:
		}
		task(p.ctx)
	})
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrPoolClosed
	}
	return err
}

// Shutdown cancels the lifecycle context and waits up to timeout for running
// tasks.
func (p *Pool) Shutdown(timeout time.Duration) {
	p.cancel()
	if err := p.pool.ReleaseTimeout(timeout); err != nil {
		logger.Warn("worker pool shutdown timeout", zap.String("pool", p.name), zap.Error(err))
	}
}

func (p *Pool) Running() int {
	return p.pool.Running()
}
