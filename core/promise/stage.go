package promise

import "github.com/dmitrymomot/asynchttp/core/exec"

// FunctorStage adapts a plain on-success/on-exception function pair to
// the Handler interface, for callers that prefer passing a value over
// defining a type.
type FunctorStage[T, U any] struct {
	OnSuccessFn   func(T) (U, error)
	OnExceptionFn func(error) (U, error)
}

// OnResult implements Handler.
func (f FunctorStage[T, U]) OnResult(v T) (U, error) { return f.OnSuccessFn(v) }

// OnException implements Handler.
func (f FunctorStage[T, U]) OnException(err error) (U, error) { return f.OnExceptionFn(err) }

// Sink is the terminal handler shape: like Handler, but OnResult and
// OnException return nothing, and OnCompleted fires after either one,
// once, marking the end of the chain.
type Sink[T any] interface {
	OnResult(v T)
	OnException(err error)
	OnCompleted()
}

// Finish appends sink as the final stage on ctx and starts the chain.
// No further Then may be attached afterwards.
func Finish[T any](p Promise[T], sink Sink[T], ctx exec.Context) {
	tail := Then(p, func(v T) (struct{}, error) {
		sink.OnResult(v)
		sink.OnCompleted()
		return struct{}{}, nil
	}, func(err error) (struct{}, error) {
		sink.OnException(err)
		sink.OnCompleted()
		return struct{}{}, nil
	}, ctx)
	tail.Done()
}
