package dispatch

import (
	"log/slog"
	"sync"

	"github.com/dmitrymomot/asynchttp/core/exec"
	"github.com/dmitrymomot/asynchttp/core/logger"
)

type jobKind int

const (
	jobCallable jobKind = iota
	jobAsync
	jobQuit
)

type job struct {
	kind     jobKind
	callable Callable
	async    AsyncCallable
}

// Loop is a named message pump: a FIFO of Callables and AsyncCallables
// processed one at a time by a single dedicated goroutine, bound to one
// exec.Context (a UI window or a named worker). It owns a Registry so
// long-lived modules can be parked there across many short jobs.
type Loop struct {
	id       uint64
	ctx      exec.Context
	jobs     chan job
	registry *Registry
	log      *slog.Logger

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

func newLoop(id uint64, execCtx exec.Context, queueSize int, log *slog.Logger) *Loop {
	if queueSize <= 0 {
		queueSize = 256
	}
	if log == nil {
		log = slog.Default()
	}
	return &Loop{
		id:       id,
		ctx:      execCtx,
		jobs:     make(chan job, queueSize),
		registry: newRegistry(),
		log:      log,
		done:     make(chan struct{}),
	}
}

// ID reports the loop's numeric identity.
func (l *Loop) ID() uint64 { return l.id }

// Context reports the exec.Context this loop pumps for.
func (l *Loop) Context() exec.Context { return l.ctx }

// Registry exposes the loop's thread-local module table.
func (l *Loop) Registry() *Registry { return l.registry }

// Post enqueues a one-shot Callable. It returns ErrLoopStopped if the
// loop has already drained and exited.
func (l *Loop) Post(c Callable) error {
	return l.enqueue(job{kind: jobCallable, callable: c})
}

// PostAsync enqueues an AsyncCallable; its OnEnter runs on this loop's
// goroutine once prior jobs have been processed.
func (l *Loop) PostAsync(a AsyncCallable) error {
	return l.enqueue(job{kind: jobAsync, async: a})
}

// Quit requests the loop stop after draining every job already queued.
// Jobs posted while the loop is draining are run as part of the drain;
// the loop exits once its queue is empty.
func (l *Loop) Quit() error {
	return l.enqueue(job{kind: jobQuit})
}

func (l *Loop) enqueue(j job) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrLoopStopped
	}
	l.mu.Unlock()

	select {
	case l.jobs <- j:
		return nil
	case <-l.done:
		return ErrLoopStopped
	}
}

// run pumps jobs until a Quit is observed, then drains whatever is still
// queued before exiting. This honours the invariant that every chain
// posted to a loop eventually terminates, even one racing the loop's own
// shutdown.
func (l *Loop) run() {
	defer l.markStopped()
	defer l.registry.drain()
	defer close(l.done)

	quitting := false
	for {
		if quitting {
			select {
			case j := <-l.jobs:
				l.invoke(j)
				continue
			default:
				return
			}
		}

		j, ok := <-l.jobs
		if !ok {
			return
		}
		if j.kind == jobQuit {
			quitting = true
			continue
		}
		l.invoke(j)
	}
}

func (l *Loop) invoke(j job) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("dispatch: job panicked", logger.LoopID(l.id), logger.ExecContext(l.ctx), slog.Any("recover", r))
		}
	}()
	switch j.kind {
	case jobCallable:
		j.callable.Invoke()
	case jobAsync:
		j.async.OnEnter(l)
	}
}

func (l *Loop) markStopped() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
}
