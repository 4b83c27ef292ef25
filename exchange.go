package asynchttp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

type exchangeState int

const (
	stateSending exchangeState = iota
	stateAwaitingHeaders
	stateReadingBody
	stateClosed
)

var redirectStatuses = map[int]bool{
	http.StatusMovedPermanently:  true,
	http.StatusFound:             true,
	http.StatusSeeOther:          true,
	http.StatusUseProxy:          true,
	http.StatusTemporaryRedirect: true,
}

// AsyncHandler is the delegate contract consumed from the transport
// layer: header and body availability may reject the exchange, and
// OnException may substitute the error it is handed but must never
// return nil — a nil return is replaced with ErrNilException.
type AsyncHandler[T any] interface {
	OnHeaderAvailable(status int, header http.Header) error
	OnBodyAvailable(chunk []byte) error
	OnCompleted() (T, error)
	OnException(err error) error
}

// RedirectObserver watches the redirect decision on a 3xx response. The
// three hooks fire in this order: OnRedirectingStarted, then
// OnRedirectingCompleted once the redirect response body has drained,
// then WillRedirect to decide whether the follow-up request is issued.
type RedirectObserver interface {
	OnRedirectingStarted(location string)
	OnRedirectingCompleted()
	WillRedirect(location string) bool
}

type noopRedirectObserver struct{}

func (noopRedirectObserver) OnRedirectingStarted(string) {}
func (noopRedirectObserver) OnRedirectingCompleted()     {}
func (noopRedirectObserver) WillRedirect(string) bool    { return true }

// requestExchange implements the §4.H state machine: Sending →
// AwaitingHeaders → ReadingBody → Closed, with a delegate swap to a
// discarding body sink while a redirect decision is pending.
type requestExchange[T any] struct {
	id      string
	session *HttpSession
	driver  Driver

	method string
	url    string
	header http.Header
	body   io.Reader

	handler  AsyncHandler[T]
	observer RedirectObserver

	mu    sync.Mutex
	state exchangeState

	redirecting   bool
	location      string
	redirectToGet bool
	redirectCount int

	ctx context.Context
	// terminated is claimed exactly once, by whichever of complete/fail
	// gets there first; every other terminal path (and every driver
	// event arriving afterward) is a no-op. This is what keeps the
	// handler's two terminal calls, OnCompleted and OnException,
	// mutually exclusive even when a session Disconnect races the
	// driver's own body-read goroutine.
	terminated atomic.Bool
	done       chan struct{}
	result     T
	err        error
}

func newRequestExchange[T any](session *HttpSession, driver Driver, method, rawURL string, header http.Header, body io.Reader, handler AsyncHandler[T], observer RedirectObserver) *requestExchange[T] {
	if observer == nil {
		observer = noopRedirectObserver{}
	}
	if header == nil {
		header = http.Header{}
	}
	return &requestExchange[T]{
		id:       uuid.NewString(),
		session:  session,
		driver:   driver,
		method:   method,
		url:      rawURL,
		header:   header,
		body:     body,
		handler:  handler,
		observer: observer,
		done:     make(chan struct{}),
	}
}

// run drives the exchange to completion (following redirects as decided
// by the observer) and returns the handler's final value or error.
func (e *requestExchange[T]) run(ctx context.Context) (T, error) {
	if timeout := e.session.cfg.RequestTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	e.ctx = ctx
	e.session.trackInFlight(e.id, e)
	defer e.session.untrackInFlight(e.id)

	e.setState(stateSending)
	e.issue()

	<-e.done
	return e.result, e.err
}

func (e *requestExchange[T]) issue() {
	req := &Request{Method: e.method, URL: e.url, Header: e.header, Body: e.body}
	_ = e.driver.Do(e.ctx, req, e)
}

// OnHeaders implements DriverEvents.
func (e *requestExchange[T]) OnHeaders(status int, header http.Header) {
	if e.terminated.Load() {
		return
	}
	e.setState(stateAwaitingHeaders)

	if err := e.handler.OnHeaderAvailable(status, header); err != nil {
		e.fail(err)
		return
	}

	e.setState(stateReadingBody)

	if redirectStatuses[status] {
		e.mu.Lock()
		e.redirecting = true
		e.location = header.Get("Location")
		e.redirectToGet = status == http.StatusSeeOther
		loc := e.location
		e.mu.Unlock()
		e.observer.OnRedirectingStarted(loc)
	}
}

// OnBodyChunk implements DriverEvents.
func (e *requestExchange[T]) OnBodyChunk(p []byte) {
	if e.terminated.Load() {
		return
	}
	e.mu.Lock()
	redirecting := e.redirecting
	e.mu.Unlock()
	if redirecting {
		return
	}
	if err := e.handler.OnBodyAvailable(p); err != nil {
		e.fail(err)
	}
}

// OnDone implements DriverEvents.
func (e *requestExchange[T]) OnDone() {
	if e.terminated.Load() {
		return
	}
	e.mu.Lock()
	redirecting := e.redirecting
	loc := e.location
	toGet := e.redirectToGet
	e.mu.Unlock()

	if !redirecting {
		e.complete()
		return
	}

	e.observer.OnRedirectingCompleted()
	if !e.observer.WillRedirect(loc) {
		e.mu.Lock()
		e.redirecting = false
		e.mu.Unlock()
		e.complete()
		return
	}
	e.followRedirect(loc, toGet)
}

// OnError implements DriverEvents.
func (e *requestExchange[T]) OnError(err error) {
	if e.terminated.Load() {
		return
	}
	e.fail(err)
}

func (e *requestExchange[T]) followRedirect(location string, toGet bool) {
	e.mu.Lock()
	e.redirectCount++
	count := e.redirectCount
	e.mu.Unlock()

	if max := e.session.cfg.MaxRedirects; max > 0 && count > max {
		e.fail(wrap(KindLogic, "followRedirect", fmt.Errorf("exceeded max redirects (%d)", max)))
		return
	}

	next, err := resolveRedirectURL(e.url, location)
	if err != nil {
		e.fail(wrap(KindInvalidURL, "followRedirect", err))
		return
	}

	e.mu.Lock()
	e.url = next
	if toGet {
		e.method = http.MethodGet
		e.body = nil
	}
	e.redirecting = false
	e.mu.Unlock()

	e.setState(stateSending)
	e.issue()
}

// complete is one of the exchange's two terminal paths. It claims
// terminated before calling the handler, so a concurrent fail (from
// OnError, an external terminate, or the driver racing past a body read
// already mid-flight) can never also reach the handler once this path
// has committed.
func (e *requestExchange[T]) complete() {
	if !e.terminated.CompareAndSwap(false, true) {
		return
	}
	e.setState(stateClosed)
	v, err := e.handler.OnCompleted()
	if err != nil {
		// OnCompleted has already run, so its error is returned as is
		// rather than passed through OnException as well.
		e.err = err
		close(e.done)
		return
	}
	e.result = v
	close(e.done)
}

// fail is the exchange's other terminal path, reached from header/body
// rejection, transport errors, or an external terminate. Like complete,
// it claims terminated before touching the handler so the two terminal
// calls stay mutually exclusive.
func (e *requestExchange[T]) fail(err error) {
	if !e.terminated.CompareAndSwap(false, true) {
		return
	}
	e.setState(stateClosed)
	e.deliverException(err)
}

// deliverException runs the OnException half of a terminal delivery.
// Callers must have already claimed terminated.
func (e *requestExchange[T]) deliverException(err error) {
	substituted := e.handler.OnException(err)
	if substituted == nil {
		substituted = ErrNilException
	}
	e.err = substituted
	close(e.done)
}

// terminate implements exchangeHandle: it is how HttpSession.Disconnect
// delivers the one ConnectionTerminated notification this exchange owes.
func (e *requestExchange[T]) terminate(reason error) {
	e.fail(reason)
}

// wait implements exchangeHandle.
func (e *requestExchange[T]) wait() {
	<-e.done
}

func (e *requestExchange[T]) setState(s exchangeState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func resolveRedirectURL(base, location string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	locURL, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(locURL).String(), nil
}
