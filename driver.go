package asynchttp

import (
	"context"
	"io"
	"net/http"

	"golang.org/x/net/http/httpguts"
)

// Request is the opaque-to-callers descriptor a Driver sends: verb, URL,
// header block, and an optional body stream. Header parsing details are
// intentionally out of scope here — they are net/http's job.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   io.Reader
}

// Driver issues one request and reports back through DriverEvents. The
// state machine in exchange.go is the only consumer of these events; the
// driver itself does no header parsing or redirect following of its own.
type Driver interface {
	Do(ctx context.Context, req *Request, events DriverEvents) error
}

// DriverEvents is the callback sink a Driver drives while serving one
// Request.
type DriverEvents interface {
	OnHeaders(status int, header http.Header)
	OnBodyChunk(p []byte)
	OnDone()
	OnError(err error)
}

// netDriver is a thin, deliberately unsophisticated adapter over
// net/http.Transport. CheckRedirect always returns http.ErrUseLastResponse
// so every redirect response reaches the state machine instead of being
// followed silently by net/http itself.
type netDriver struct {
	client *http.Client
}

func newNetDriver(transport http.RoundTripper) *netDriver {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &netDriver{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

const readChunkSize = 32 * 1024

func (d *netDriver) Do(ctx context.Context, req *Request, events DriverEvents) error {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, req.Body)
	if err != nil {
		e := wrap(KindInvalidURL, "netDriver.Do", err)
		events.OnError(e)
		return e
	}
	if req.Header != nil {
		httpReq.Header = req.Header
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		e := classifyDoError(err)
		events.OnError(e)
		return e
	}
	defer resp.Body.Close()

	events.OnHeaders(resp.StatusCode, filterHeaders(resp.Header))

	buf := make([]byte, readChunkSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			events.OnBodyChunk(chunk)
		}
		if rerr == io.EOF {
			events.OnDone()
			return nil
		}
		if rerr != nil {
			e := wrap(KindIO, "netDriver.Do", rerr)
			events.OnError(e)
			return e
		}
	}
}

// filterHeaders drops header fields net/http accepted but that fail the
// stricter field-name/value validation the state machine relies on,
// rather than letting malformed upstream input reach user handlers.
func filterHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, values := range h {
		if !httpguts.ValidHeaderFieldName(k) {
			continue
		}
		for _, v := range values {
			if !httpguts.ValidHeaderFieldValue(v) {
				continue
			}
			out.Add(k, v)
		}
	}
	return out
}

func classifyDoError(err error) *Error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*http.ProtocolError); ok {
		return wrap(KindNet, "netDriver.Do", err)
	}
	return wrap(KindConnFailed, "netDriver.Do", err)
}
