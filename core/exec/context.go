// Package exec defines the execution-context value used throughout the
// engine to say where a unit of work must run: a UI message loop, a named
// worker loop, or the shared pool.
package exec

import "fmt"

// Kind identifies the shape of a Context.
type Kind uint8

const (
	// KindWorker addresses a single named worker loop.
	KindWorker Kind = iota
	// KindUI addresses a UI message loop bound to a window handle.
	KindUI
	// KindPool addresses "any" shared pool goroutine — not a specific one.
	KindPool
)

func (k Kind) String() string {
	switch k {
	case KindUI:
		return "ui"
	case KindPool:
		return "pool"
	default:
		return "worker"
	}
}

// Context identifies where a stage procedure must run. It is an immutable,
// comparable value: two UI or Worker contexts are equal iff their ids
// match; Pool compares equal only to Pool, never to a specific loop or
// window, because "some pool goroutine" is never the same delivery target
// as a named one.
type Context struct {
	kind   Kind
	id     uint64
	window uint64
}

// Worker returns a context addressing the named worker loop with the given id.
func Worker(loopID uint64) Context {
	return Context{kind: KindWorker, id: loopID}
}

// UI returns a context addressing the UI loop bound to the given window handle.
func UI(windowHandle uint64) Context {
	return Context{kind: KindUI, window: windowHandle, id: windowHandle}
}

// Pool returns the shared-pool context.
func Pool() Context {
	return Context{kind: KindPool}
}

// Kind reports which shape this context is.
func (c Context) Kind() Kind { return c.kind }

// IsPool reports whether this context addresses the shared pool.
func (c Context) IsPool() bool { return c.kind == KindPool }

// ID returns the loop id (Worker) or window handle (UI). Meaningless for Pool.
func (c Context) ID() uint64 { return c.id }

// Equal implements the asymmetric equality from the data model: Pool only
// ever equals Pool; two non-pool contexts are equal iff kind and id match.
func (c Context) Equal(other Context) bool {
	if c.kind == KindPool || other.kind == KindPool {
		return c.kind == KindPool && other.kind == KindPool
	}
	return c.kind == other.kind && c.id == other.id
}

func (c Context) String() string {
	if c.kind == KindPool {
		return "pool"
	}
	return fmt.Sprintf("%s(%d)", c.kind, c.id)
}
