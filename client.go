package asynchttp

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/asynchttp/core/exec"
	"github.com/dmitrymomot/asynchttp/core/promise"
)

// Client is the HTTP-level facade atop the promise engine. It has no
// generic methods — Go forbids a method from introducing type
// parameters beyond its receiver's — so the per-request operations
// (Get, GetBlock, GetSync) are free functions taking *Client, following
// the same shape as promise.RunTask/RunAsync.
type Client struct {
	session *HttpSession
	log     *slog.Logger
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithClientLogger sets the logger stored on the Client. The Client
// itself logs nothing.
func WithClientLogger(log *slog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient builds a Client over session. session must not be nil.
func NewClient(session *HttpSession, opts ...ClientOption) (*Client, error) {
	if session == nil {
		return nil, &Error{Kind: KindLogic, Op: "NewClient", Message: "nil session"}
	}
	c := &Client{session: session, log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func newExchange[T any](c *Client, method, rawURL string, body io.Reader, header http.Header, h AsyncHandler[T], observer RedirectObserver) (*requestExchange[T], error) {
	driver, err := c.session.driverFor(rawURL)
	if err != nil {
		return nil, err
	}
	return newRequestExchange[T](c.session, driver, method, rawURL, header, body, h, observer), nil
}

// GetSync issues a GET synchronously on the calling goroutine, following
// every redirect unconditionally.
func GetSync[T any](c *Client, ctx context.Context, url string, h AsyncHandler[T]) (T, error) {
	return GetSyncWithObserver[T](c, ctx, url, h, nil)
}

// GetSyncWithObserver is GetSync with an explicit RedirectObserver,
// letting callers watch or veto the redirect decision.
func GetSyncWithObserver[T any](c *Client, ctx context.Context, url string, h AsyncHandler[T], observer RedirectObserver) (T, error) {
	ex, err := newExchange[T](c, http.MethodGet, url, nil, nil, h, observer)
	if err != nil {
		var zero T
		return zero, err
	}
	return ex.run(ctx)
}

type syncTask[T any] struct {
	ex  *requestExchange[T]
	ctx context.Context
}

func (t syncTask[T]) Run() (T, error) { return t.ex.run(t.ctx) }

// GetBlock issues a GET whose send and receive both happen synchronously
// once the chain lands on execCtx — the blocking sibling of Get.
func GetBlock[T any](c *Client, ctx context.Context, url string, h AsyncHandler[T], execCtx exec.Context) (promise.Promise[T], error) {
	ex, err := newExchange[T](c, http.MethodGet, url, nil, nil, h, nil)
	if err != nil {
		return promise.Promise[T]{}, err
	}
	return promise.RunTask[T](syncTask[T]{ex: ex, ctx: ctx}, execCtx), nil
}

type asyncTask[T any] struct {
	ex  *requestExchange[T]
	ctx context.Context
}

func (t asyncTask[T]) Start(p *promise.Promisee[T]) {
	v, err := t.ex.run(t.ctx)
	if err != nil {
		p.Reject(err)
		return
	}
	p.Resolve(v)
}

// Get issues a GET whose send and receive are both asynchronous: the
// request runs as an AsyncTask on execCtx (a dedicated pool loop for
// exec.Pool(), the existing named loop otherwise) and the chain is fed
// through a Promisee once it resolves or rejects.
func Get[T any](c *Client, ctx context.Context, url string, h AsyncHandler[T], execCtx exec.Context) (promise.Promise[T], error) {
	ex, err := newExchange[T](c, http.MethodGet, url, nil, nil, h, nil)
	if err != nil {
		return promise.Promise[T]{}, err
	}
	return promise.RunAsync[T](asyncTask[T]{ex: ex, ctx: ctx}, execCtx), nil
}

// PostSync issues a POST synchronously on the calling goroutine.
func PostSync[T any](c *Client, ctx context.Context, url string, body io.Reader, header http.Header, h AsyncHandler[T]) (T, error) {
	ex, err := newExchange[T](c, http.MethodPost, url, body, header, h, nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return ex.run(ctx)
}
