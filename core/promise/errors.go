package promise

import "errors"

// ErrAlreadyStarted is the panic value when Then is called on a chain
// that has already been started with Done, or when Done is called twice.
var ErrAlreadyStarted = errors.New("promise: chain already started")

// ErrWorkerTerminated is what an AsyncTask adapter's OnTerminated
// delivers to a chain whose task has not yet resolved or rejected. The
// dispatch loops never call OnTerminated, so a worker that exits does not
// by itself deliver this error.
var ErrWorkerTerminated = errors.New("promise: async worker terminated before resolution")

// ErrNoDispatcher is raised when RunTask/RunAsync are called before
// SetDispatcher has configured a default dispatcher.
var ErrNoDispatcher = errors.New("promise: no dispatcher configured")
