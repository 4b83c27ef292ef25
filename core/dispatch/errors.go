package dispatch

import "errors"

// ErrAlreadyRegistered is returned by Register when a module of the same
// type already occupies a registry's slot.
var ErrAlreadyRegistered = errors.New("dispatch: module already registered")

// ErrLoopStopped is returned by Post/PostAsync when the target loop has
// already drained and exited.
var ErrLoopStopped = errors.New("dispatch: loop stopped")

// ErrUnknownDestination is returned when a Context names a worker or UI
// loop id the Dispatcher has never seen NewWorker/NewUI for.
var ErrUnknownDestination = errors.New("dispatch: unknown destination")
