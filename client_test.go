package asynchttp_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	asynchttp "github.com/dmitrymomot/asynchttp"
	"github.com/dmitrymomot/asynchttp/core/config"
	"github.com/dmitrymomot/asynchttp/core/dispatch"
	"github.com/dmitrymomot/asynchttp/core/promise"
)

func newTestClient(t *testing.T) *asynchttp.Client {
	t.Helper()
	session := asynchttp.NewHttpSession(config.SessionConfig{MaxConnections: 8})
	client, err := asynchttp.NewClient(session)
	require.NoError(t, err)
	return client
}

type contentLengthHandler struct {
	status int
	header http.Header
}

func (h *contentLengthHandler) OnHeaderAvailable(status int, header http.Header) error {
	h.status = status
	h.header = header
	return nil
}
func (h *contentLengthHandler) OnBodyAvailable([]byte) error { return nil }
func (h *contentLengthHandler) OnCompleted() (int, error) {
	n, _ := strconv.Atoi(h.header.Get("Content-Length"))
	return n, nil
}
func (h *contentLengthHandler) OnException(err error) error { return err }

func TestGetSyncContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 42))
	}))
	defer srv.Close()

	client := newTestClient(t)
	n, err := asynchttp.GetSync[int](client, context.Background(), srv.URL, &contentLengthHandler{})
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

type errorCountingHandler struct {
	successCalled bool
	exceptionErr  error
}

func (h *errorCountingHandler) OnHeaderAvailable(status int, header http.Header) error { return nil }
func (h *errorCountingHandler) OnBodyAvailable([]byte) error                           { return nil }
func (h *errorCountingHandler) OnCompleted() (struct{}, error) {
	h.successCalled = true
	return struct{}{}, nil
}
func (h *errorCountingHandler) OnException(err error) error {
	h.exceptionErr = err
	return err
}

func TestErrorPropagationOn500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(t)
	h := &errorCountingHandler{}

	// A 500 is a normal (non-error) HTTP response at the driver level;
	// to exercise the failure path we make OnHeaderAvailable itself
	// reject 4xx and 5xx statuses, the way a strict handler would.
	strict := &rejectingHandler{inner: h}
	_, err := asynchttp.GetSync[struct{}](client, context.Background(), srv.URL, strict)

	require.Error(t, err)
	assert.False(t, h.successCalled)
	require.Error(t, h.exceptionErr)
}

type rejectingHandler struct {
	inner *errorCountingHandler
}

func (r *rejectingHandler) OnHeaderAvailable(status int, header http.Header) error {
	if status >= 400 {
		return asynchttp.ErrContextConflict // stand-in application-level rejection
	}
	return r.inner.OnHeaderAvailable(status, header)
}
func (r *rejectingHandler) OnBodyAvailable(p []byte) error { return r.inner.OnBodyAvailable(p) }
func (r *rejectingHandler) OnCompleted() (struct{}, error) { return r.inner.OnCompleted() }
func (r *rejectingHandler) OnException(err error) error    { return r.inner.OnException(err) }

type recordingRedirectObserver struct {
	events []string
	allow  bool
}

func (o *recordingRedirectObserver) OnRedirectingStarted(location string) {
	o.events = append(o.events, "started:"+location)
}
func (o *recordingRedirectObserver) OnRedirectingCompleted() {
	o.events = append(o.events, "completed")
}
func (o *recordingRedirectObserver) WillRedirect(location string) bool {
	o.events = append(o.events, "will_redirect:"+location)
	return o.allow
}

func TestRedirect302PreservesVerb(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.URL.Path == "/a" {
			w.Header().Set("Location", "/b")
			w.WriteHeader(http.StatusFound)
			return
		}
		w.Write([]byte("done"))
	}))
	defer srv.Close()

	session := asynchttp.NewHttpSession(config.SessionConfig{MaxConnections: 8})
	client, err := asynchttp.NewClient(session)
	require.NoError(t, err)

	_, err = asynchttp.GetSync[[]byte](client, context.Background(), srv.URL+"/a", asynchttp.NewMemoryHandler())
	require.NoError(t, err)

	require.Len(t, methods, 2)
	assert.Equal(t, http.MethodGet, methods[0])
	assert.Equal(t, http.MethodGet, methods[1])
}

func TestRedirectLoopStopsAtMaxRedirects(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Location", r.URL.Path)
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	session := asynchttp.NewHttpSession(config.SessionConfig{MaxConnections: 8, MaxRedirects: 3})
	client, err := asynchttp.NewClient(session)
	require.NoError(t, err)

	_, err = asynchttp.GetSync[[]byte](client, context.Background(), srv.URL+"/loop", asynchttp.NewMemoryHandler())
	require.Error(t, err)
	assert.LessOrEqual(t, hits, 4)
}

func TestRedirect303ConvertsPostToGet(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.URL.Path == "/a" {
			w.Header().Set("Location", "/b")
			w.WriteHeader(http.StatusSeeOther)
			return
		}
		w.Write([]byte("done"))
	}))
	defer srv.Close()

	client := newTestClient(t)
	_, err := asynchttp.PostSync[[]byte](client, context.Background(), srv.URL+"/a", nil, nil, asynchttp.NewMemoryHandler())
	require.NoError(t, err)

	require.Len(t, methods, 2)
	assert.Equal(t, http.MethodPost, methods[0])
	assert.Equal(t, http.MethodGet, methods[1])
}

func TestGetViaPromiseEngineDeliversOnWorker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 42))
	}))
	defer srv.Close()

	session := asynchttp.NewHttpSession(config.SessionConfig{MaxConnections: 8, PoolSize: 2})
	client, err := asynchttp.NewClient(session)
	require.NoError(t, err)

	d := dispatch.NewDispatcher(session.Pool())
	promise.SetDispatcher(d)
	loop := d.NewWorker()

	p, err := asynchttp.GetBlock[int](client, context.Background(), srv.URL, &contentLengthHandler{}, loop.Context())
	require.NoError(t, err)

	done := make(chan int, 1)
	tail := promise.Then(p, func(v int) (struct{}, error) {
		done <- v
		return struct{}{}, nil
	}, nil, loop.Context())
	tail.Done()

	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(2 * time.Second):
		t.Fatal("chain never delivered")
	}
}

// countingHandler records how many times each terminal delegate call
// lands, plus whatever body chunks arrived after the test's disconnect
// signal fired — both should stay at their expected bound under a race
// between a driver body-read goroutine and a session Disconnect.
type countingHandler struct {
	mu              sync.Mutex
	completedCalls  int
	exceptionCalls  int
	disconnected    <-chan struct{}
	chunksAfterDone int
}

func (h *countingHandler) OnHeaderAvailable(int, http.Header) error { return nil }
func (h *countingHandler) OnBodyAvailable([]byte) error {
	select {
	case <-h.disconnected:
		h.mu.Lock()
		h.chunksAfterDone++
		h.mu.Unlock()
	default:
	}
	return nil
}
func (h *countingHandler) OnCompleted() ([]byte, error) {
	h.mu.Lock()
	h.completedCalls++
	h.mu.Unlock()
	return nil, nil
}
func (h *countingHandler) OnException(err error) error {
	h.mu.Lock()
	h.exceptionCalls++
	h.mu.Unlock()
	return err
}

func TestSessionDisconnectDuringBody(t *testing.T) {
	bodyStarted := make(chan struct{})
	blockRead := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("chunk1"))
		w.(http.Flusher).Flush()
		close(bodyStarted)
		<-blockRead
		w.Write([]byte("chunk2"))
	}))
	defer srv.Close()

	session := asynchttp.NewHttpSession(config.SessionConfig{MaxConnections: 8})
	client, err := asynchttp.NewClient(session)
	require.NoError(t, err)

	disconnected := make(chan struct{})
	handler := &countingHandler{disconnected: disconnected}

	errCh := make(chan error, 1)
	go func() {
		_, runErr := asynchttp.GetSync[[]byte](client, context.Background(), srv.URL, handler)
		errCh <- runErr
	}()

	select {
	case <-bodyStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("server never started writing body")
	}

	disconnectErr := session.Disconnect(context.Background())
	require.NoError(t, disconnectErr)
	close(disconnected)
	close(blockRead)

	select {
	case runErr := <-errCh:
		require.Error(t, runErr)
	case <-time.After(2 * time.Second):
		t.Fatal("exchange never terminated")
	}

	// Give the now-unblocked driver goroutine a moment to deliver
	// chunk2/EOF to the exchange, so the assertions below observe its
	// effect (or lack of it) rather than racing ahead of it.
	time.Sleep(50 * time.Millisecond)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Equal(t, 1, handler.exceptionCalls, "exactly one OnException call")
	assert.Equal(t, 0, handler.completedCalls, "OnCompleted must not fire once OnException has")
	assert.Equal(t, 0, handler.chunksAfterDone, "no body chunks delivered after disconnect terminated the exchange")
}

func TestRedirectObserverOrdering(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/a" {
			w.Header().Set("Location", "/b")
			w.WriteHeader(http.StatusFound)
			return
		}
		w.Write([]byte("done"))
	}))
	defer srv.Close()

	client := newTestClient(t)

	obs := &recordingRedirectObserver{allow: true}
	_, err := asynchttp.GetSyncWithObserver[[]byte](client, context.Background(), srv.URL+"/a", asynchttp.NewMemoryHandler(), obs)
	require.NoError(t, err)

	require.Equal(t, []string{"started:/b", "completed", "will_redirect:/b"}, obs.events)
}
