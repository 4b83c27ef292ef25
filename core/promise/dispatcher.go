package promise

import (
	"sync/atomic"

	"github.com/dmitrymomot/asynchttp/core/dispatch"
)

var defaultDispatcher atomic.Pointer[dispatch.Dispatcher]

// SetDispatcher installs the Dispatcher that RunTask, RunAsync, Then, and
// ThenHandler use to route stages to their target exec.Context. It must
// be called once during startup before building any chain.
func SetDispatcher(d *dispatch.Dispatcher) {
	defaultDispatcher.Store(d)
}

func currentDispatcher() *dispatch.Dispatcher {
	d := defaultDispatcher.Load()
	if d == nil {
		panic(ErrNoDispatcher)
	}
	return d
}
