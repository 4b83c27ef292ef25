// Package dispatch implements the message-pump dispatcher: named worker
// loops, a capacity-bounded shared pool, and the per-loop thread-local
// module registry that lets a long-lived module (e.g. an HTTP session)
// survive across the many short callables of one promise chain.
package dispatch

// Callable is a one-shot unit of work: Invoke runs it exactly once and it
// is then dropped. Ownership transfers to whoever posts it.
type Callable interface {
	Invoke()
}

// CallableFunc adapts a plain function to Callable.
type CallableFunc func()

// Invoke implements Callable.
func (f CallableFunc) Invoke() { f() }

// AsyncCallable is a long-lived unit tied to a dedicated worker.
//
// OnEnter runs on the worker that now exists for this callable; the
// worker keeps pumping posted jobs until the callable arranges its own
// exit (by posting Quit to the loop it was handed). OnTerminated aborts
// the callable; OnCleanup releases resources after the produced value
// has been delivered to the next stage. Loop and Pool call neither: a
// loop that exits does not notify the AsyncCallables it has entered.
type AsyncCallable interface {
	OnEnter(loop *Loop)
	OnTerminated()
	OnCleanup()
}
