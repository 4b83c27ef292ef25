package promise

import "github.com/dmitrymomot/asynchttp/core/exec"

// Promise is a value-like consumer handle over a chain of stages. Then
// appends a new stage targeting ctx; Done starts the chain head. Calling
// Then after Done, or calling Done twice on the same chain, both panic
// with ErrAlreadyStarted — a double start is a fatal programming error,
// not a silently-ignored duplicate call.
type Promise[T any] struct {
	node *node
}

// Then appends a stage that runs onSuccess on a fulfilled value or
// onException on a rejected one — exactly one of the two fires — on
// ctx, returning a handle to the new stage's result.
func Then[T, U any](p Promise[T], onSuccess func(T) (U, error), onException func(error) (U, error), ctx exec.Context) Promise[U] {
	next := &node{
		target:     ctx,
		dispatcher: p.node.dispatcher,
		chain:      p.node.chain,
		stage: func(in result) result {
			if in.err != nil {
				if onException == nil {
					return result{err: in.err}
				}
				v, err := onException(in.err)
				if err != nil {
					return result{err: err}
				}
				return result{val: v}
			}
			v, err := onSuccess(in.val.(T))
			if err != nil {
				return result{err: err}
			}
			return result{val: v}
		},
	}
	p.node.setNext(next)
	return Promise[U]{node: next}
}

// Handler is the object-shaped stage kind: OnResult and OnException play
// the same role as Then's onSuccess/onException function pair.
type Handler[T, U any] interface {
	OnResult(v T) (U, error)
	OnException(err error) (U, error)
}

// ThenHandler appends a stage driven by a Handler instead of a function
// pair, otherwise identical to Then.
func ThenHandler[T, U any](p Promise[T], h Handler[T, U], ctx exec.Context) Promise[U] {
	return Then(p, h.OnResult, h.OnException, ctx)
}

// Done starts the chain head. A second Done call on the same chain
// panics with ErrAlreadyStarted, the same fatal error Then raises when
// called after the chain has started.
func (p Promise[T]) Done() {
	if !p.node.chain.started.CompareAndSwap(false, true) {
		panic(ErrAlreadyStarted)
	}
	p.node.chain.head.start()
}
