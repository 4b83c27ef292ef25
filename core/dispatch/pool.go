package dispatch

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/dmitrymomot/asynchttp/core/exec"
)

// Pool is the shared, capacity-bounded goroutine pool backing
// exec.Pool(). A plain Callable runs once on a transient goroutine; an
// AsyncCallable gets a dedicated, freshly-numbered Loop whose permit is
// held for the callable's whole lifetime, released only when that loop
// drains and exits.
type Pool struct {
	sem       *semaphore.Weighted
	queueSize int
	log       *slog.Logger
	nextID    atomic.Uint64
}

// PoolOption configures a Pool at construction time.
type PoolOption func(*Pool)

// WithPoolQueueSize sets the job-queue buffer for dedicated loops spawned
// by RunDedicated.
func WithPoolQueueSize(n int) PoolOption {
	return func(p *Pool) { p.queueSize = n }
}

// WithPoolLogger sets the logger used by dedicated loops.
func WithPoolLogger(log *slog.Logger) PoolOption {
	return func(p *Pool) { p.log = log }
}

// NewPool creates a Pool admitting at most capacity concurrent jobs,
// whether transient Callables or dedicated AsyncCallable loops.
func NewPool(capacity int, opts ...PoolOption) *Pool {
	if capacity <= 0 {
		capacity = 1
	}
	p := &Pool{sem: semaphore.NewWeighted(int64(capacity))}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run acquires a pool permit and invokes c on a transient goroutine,
// releasing the permit as soon as Invoke returns.
func (p *Pool) Run(ctx context.Context, c Callable) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	go func() {
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil && p.log != nil {
				p.log.Error("dispatch: pool job panicked", slog.Any("recover", r))
			}
		}()
		c.Invoke()
	}()
	return nil
}

// RunDedicated acquires a pool permit for the lifetime of a, spins up a
// fresh Loop bound to exec.Pool(), and posts a.OnEnter to it. The permit
// is released only when that loop's Quit is observed and it drains and
// exits — normally posted by a itself once it has delivered its value
// (the promise package's Promisee does this on Resolve/Reject).
func (p *Pool) RunDedicated(ctx context.Context, a AsyncCallable) (*Loop, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	id := p.nextID.Add(1)
	loop := newLoop(id, exec.Pool(), p.queueSize, p.log)

	go func() {
		defer p.sem.Release(1)
		loop.run()
	}()

	if err := loop.PostAsync(a); err != nil {
		return nil, err
	}
	return loop, nil
}
