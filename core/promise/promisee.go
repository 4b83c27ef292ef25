package promise

import (
	"sync"

	"github.com/dmitrymomot/asynchttp/core/dispatch"
)

// Promisee is the producer capability handed to an AsyncTask. Resolve
// and Reject together may be called at most once; the second call,
// whichever it is, is silently swallowed to prevent double delivery.
type Promisee[T any] struct {
	node *node
	loop *dispatch.Loop
	once *sync.Once
}

// Resolve fulfils the chain head with v. A no-op if Resolve or Reject
// was already called.
func (p *Promisee[T]) Resolve(v T) {
	p.once.Do(func() {
		p.deliver(result{val: v})
	})
}

// Reject refuses the chain head with err. A no-op if Resolve or Reject
// was already called.
func (p *Promisee[T]) Reject(err error) {
	p.once.Do(func() {
		p.deliver(result{err: err})
	})
}

// deliver posts the outcome onto the dedicated worker so arrive's
// inline-vs-posted decision runs from that worker's own goroutine, then
// releases the worker.
func (p *Promisee[T]) deliver(r result) {
	n := p.node
	loop := p.loop
	_ = loop.Post(dispatch.CallableFunc(func() {
		n.arrive(loop.Context(), r)
	}))
	_ = loop.Quit()
}

// asyncTaskAdapter wires an AsyncTask into a dispatch.AsyncCallable: it
// is the "pool guard" / dedicated-worker lifetime from the task adapter
// design — the worker stays alive until resolve/reject calls cleanup.
type asyncTaskAdapter[T any] struct {
	task     AsyncTask[T]
	node     *node
	promisee *Promisee[T]
}

func (a *asyncTaskAdapter[T]) OnEnter(loop *dispatch.Loop) {
	a.promisee = &Promisee[T]{node: a.node, loop: loop, once: new(sync.Once)}
	a.task.Start(a.promisee)
}

// OnTerminated rejects the chain with ErrWorkerTerminated unless the task
// has already resolved or rejected.
func (a *asyncTaskAdapter[T]) OnTerminated() {
	if a.promisee == nil {
		return
	}
	a.promisee.once.Do(func() {
		a.node.arrive(a.node.target, result{err: ErrWorkerTerminated})
	})
}

// OnCleanup is a no-op: releasing the worker happens inside
// Promisee.deliver, immediately after the resolved/rejected value is
// handed to the chain.
func (a *asyncTaskAdapter[T]) OnCleanup() {}
