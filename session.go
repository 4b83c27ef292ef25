package asynchttp

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/asynchttp/core/config"
	"github.com/dmitrymomot/asynchttp/core/dispatch"
	"github.com/dmitrymomot/asynchttp/internal/connpool"
)

// defaultPoolSize is used when cfg.PoolSize is zero or negative, so a
// zero-value SessionConfig still produces a usable pool.
const defaultPoolSize = 8

var _ dispatch.Module = (*HttpSession)(nil)

// exchangeHandle is the narrow view HttpSession needs of an in-flight
// requestExchange[T] of any T, to terminate and wait on it without
// knowing its result type.
type exchangeHandle interface {
	terminate(reason error)
	wait()
}

// HttpSession is a dispatch.Module: it owns a bounded,
// host:port-keyed map of per-host drivers and the set of in-flight
// exchanges. On Disconnect, every in-flight exchange receives exactly
// one ConnectionTerminated notification before Disconnect returns.
type HttpSession struct {
	mu       sync.Mutex
	cfg      config.SessionConfig
	drivers  *connpool.Pool[*netDriver]
	pool     *dispatch.Pool
	inFlight map[string]exchangeHandle
	closed   bool
}

// NewHttpSession creates a session bounded by cfg.MaxConnections
// distinct per-host drivers, cfg.MaxRedirects redirect hops per
// exchange, cfg.RequestTimeout per request, and cfg.DisconnectDrain as
// the upper bound Disconnect waits for the in-flight set to drain. It
// also builds a shared dispatch.Pool sized by cfg.PoolSize, available
// through Pool() for callers building a dispatch.Dispatcher over this
// session's requests.
func NewHttpSession(cfg config.SessionConfig) *HttpSession {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	return &HttpSession{
		cfg:      cfg,
		drivers:  connpool.New[*netDriver](cfg.MaxConnections),
		pool:     dispatch.NewPool(poolSize),
		inFlight: make(map[string]exchangeHandle),
	}
}

// Pool returns the shared worker pool sized by SessionConfig.PoolSize,
// for building a dispatch.Dispatcher that serves this session's
// asynchronous requests (Get, GetBlock).
func (s *HttpSession) Pool() *dispatch.Pool {
	return s.pool
}

// driverFor returns the driver for rawURL's host:port, creating and
// caching one on first use.
func (s *HttpSession) driverFor(rawURL string) (*netDriver, error) {
	key, err := hostPort(rawURL)
	if err != nil {
		return nil, wrap(KindInvalidURL, "HttpSession.driverFor", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Entries are released right after lookup so they stay idle and the
	// LRU can evict them once the map is over capacity.
	if d, ok := s.drivers.Get(key); ok {
		s.drivers.Release(key)
		return d, nil
	}
	d := newNetDriver(nil)
	s.drivers.Put(key, d)
	s.drivers.Release(key)
	return d, nil
}

func hostPort(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", &Error{Kind: KindInvalidURL, Message: "url has no host: " + rawURL}
	}
	return u.Host, nil
}

func (s *HttpSession) trackInFlight(id string, h exchangeHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight[id] = h
}

func (s *HttpSession) untrackInFlight(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}

// Disconnect terminates every in-flight exchange with
// ConnectionTerminated and blocks until each has acknowledged, or until
// cfg.DisconnectDrain elapses, whichever comes first. Calling it more
// than once is a no-op after the first.
func (s *HttpSession) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	handles := make([]exchangeHandle, 0, len(s.inFlight))
	for _, h := range s.inFlight {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	if drain := s.cfg.DisconnectDrain; drain > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, drain)
		defer cancel()
	}

	g, _ := errgroup.WithContext(ctx)
	reason := &Error{Kind: KindConnTerminated, Message: "session disconnected"}
	for _, h := range handles {
		h := h
		g.Go(func() error {
			h.terminate(reason)
			h.wait()
			return nil
		})
	}

	waited := make(chan error, 1)
	go func() { waited <- g.Wait() }()

	select {
	case err := <-waited:
		return err
	case <-ctx.Done():
		return wrap(KindConnTerminated, "HttpSession.Disconnect", ctx.Err())
	}
}

// OnUnregister implements dispatch.Module: a session left registered in
// a loop's registry at teardown disconnects best-effort.
func (s *HttpSession) OnUnregister() {
	_ = s.Disconnect(context.Background())
}
