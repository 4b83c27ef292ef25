package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/asynchttp/core/exec"
)

// Dispatcher routes Callables and AsyncCallables to the right
// destination: a named Worker or UI Loop it created, or the shared Pool
// for exec.Pool(). It is the one place that knows how every exec.Context
// maps onto a concrete message pump.
type Dispatcher struct {
	pool *Pool

	mu         sync.RWMutex
	loops      map[loopKey]*Loop
	nextWorker atomic.Uint64

	queueSize int
	log       *slog.Logger
}

type loopKey struct {
	kind exec.Kind
	id   uint64
}

// DispatcherOption configures a Dispatcher at construction time.
type DispatcherOption func(*Dispatcher)

// WithQueueSize sets the job-queue buffer for loops the Dispatcher creates.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) { d.queueSize = n }
}

// WithLogger sets the logger passed to loops the Dispatcher creates.
func WithLogger(log *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = log }
}

// NewDispatcher creates a Dispatcher backed by pool for exec.Pool() work.
func NewDispatcher(pool *Pool, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		pool:  pool,
		loops: make(map[loopKey]*Loop),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewWorker creates and starts a fresh named worker loop, assigning it
// the next available loop id.
func (d *Dispatcher) NewWorker() *Loop {
	id := d.nextWorker.Add(1)
	return d.start(newLoop(id, exec.Worker(id), d.queueSize, d.log))
}

// NewUI creates and starts the UI loop bound to windowHandle. Calling it
// twice for the same handle replaces the previous registration.
func (d *Dispatcher) NewUI(windowHandle uint64) *Loop {
	return d.start(newLoop(windowHandle, exec.UI(windowHandle), d.queueSize, d.log))
}

func (d *Dispatcher) start(l *Loop) *Loop {
	d.mu.Lock()
	d.loops[loopKey{l.ctx.Kind(), l.ctx.ID()}] = l
	d.mu.Unlock()
	go l.run()
	return l
}

// Lookup returns the Loop previously created for ctx, if any. It never
// resolves exec.Pool(), since pool work has no single stable loop.
func (d *Dispatcher) Lookup(ctx exec.Context) (*Loop, bool) {
	if ctx.IsPool() {
		return nil, false
	}
	d.mu.RLock()
	l, ok := d.loops[loopKey{ctx.Kind(), ctx.ID()}]
	d.mu.RUnlock()
	return l, ok
}

// Forget drops the Dispatcher's registration for ctx without stopping
// its loop. Call it after the loop has already quit.
func (d *Dispatcher) Forget(ctx exec.Context) {
	d.mu.Lock()
	delete(d.loops, loopKey{ctx.Kind(), ctx.ID()})
	d.mu.Unlock()
}

// Post delivers c to the loop or pool addressed by ctx.
func (d *Dispatcher) Post(c Callable, ctx exec.Context) error {
	if ctx.IsPool() {
		return d.pool.Run(context.Background(), c)
	}
	loop, ok := d.Lookup(ctx)
	if !ok {
		return ErrUnknownDestination
	}
	return loop.Post(c)
}

// PostAsync delivers a to the loop or pool addressed by ctx, returning
// the Loop that will run a.OnEnter (a freshly-made dedicated loop, for
// exec.Pool()).
func (d *Dispatcher) PostAsync(a AsyncCallable, ctx exec.Context) (*Loop, error) {
	if ctx.IsPool() {
		return d.pool.RunDedicated(context.Background(), a)
	}
	loop, ok := d.Lookup(ctx)
	if !ok {
		return nil, ErrUnknownDestination
	}
	if err := loop.PostAsync(a); err != nil {
		return nil, err
	}
	return loop, nil
}
