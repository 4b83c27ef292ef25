package promise

import "github.com/dmitrymomot/asynchttp/core/exec"

// Task is the synchronous stage adapter: Run executes inline once the
// chain head lands on ctx, and its return value or error feeds the next
// stage normally.
type Task[T any] interface {
	Run() (T, error)
}

// RunTask builds a chain head from a synchronous Task, targeting ctx.
func RunTask[T any](task Task[T], ctx exec.Context) Promise[T] {
	head := newHead(ctx, func(result) result {
		v, err := task.Run()
		if err != nil {
			return result{err: err}
		}
		return result{val: v}
	})
	return Promise[T]{node: head}
}

// AsyncTask is the long-running stage adapter. Start is invoked on a
// dedicated worker once the chain head is driven; the task may resolve
// or reject the Promisee from any goroutine, synchronously or later.
type AsyncTask[T any] interface {
	Start(p *Promisee[T])
}

// RunAsync builds a chain head from an AsyncTask. The adapter acquires a
// dedicated worker for ctx (a fresh pool goroutine for exec.Pool(), or
// the existing named loop for a Worker/UI context), runs Start on it,
// and keeps that worker alive until the task resolves or rejects.
func RunAsync[T any](task AsyncTask[T], ctx exec.Context) Promise[T] {
	// The head's stage passes the Promisee's outcome through unchanged.
	head := newHead(ctx, func(in result) result { return in })
	adapter := &asyncTaskAdapter[T]{task: task, node: head}
	head.drive = func() {
		_, _ = head.dispatcher.PostAsync(adapter, head.target)
	}
	return Promise[T]{node: head}
}
