package asynchttp

import (
	"bytes"
	"net/http"
	"os"
	"strings"
)

// NewStringBody builds a request body from a string, for POST/PUT calls
// that don't need streaming.
func NewStringBody(s string) *strings.Reader {
	return strings.NewReader(s)
}

// MemoryHandler is an AsyncHandler[[]byte] that buffers the whole
// response body in memory and exposes the final status/header once
// OnCompleted has run.
type MemoryHandler struct {
	buf    bytes.Buffer
	status int
	header http.Header
}

// NewMemoryHandler creates an empty MemoryHandler.
func NewMemoryHandler() *MemoryHandler {
	return &MemoryHandler{}
}

// OnHeaderAvailable implements AsyncHandler.
func (h *MemoryHandler) OnHeaderAvailable(status int, header http.Header) error {
	h.status = status
	h.header = header
	return nil
}

// OnBodyAvailable implements AsyncHandler.
func (h *MemoryHandler) OnBodyAvailable(chunk []byte) error {
	_, err := h.buf.Write(chunk)
	return err
}

// OnCompleted implements AsyncHandler.
func (h *MemoryHandler) OnCompleted() ([]byte, error) {
	return h.buf.Bytes(), nil
}

// OnException implements AsyncHandler: it passes the error through
// unchanged.
func (h *MemoryHandler) OnException(err error) error { return err }

// StatusCode reports the response status once headers have arrived.
func (h *MemoryHandler) StatusCode() int { return h.status }

// Header reports the response header once headers have arrived.
func (h *MemoryHandler) Header() http.Header { return h.header }

// TempFileHandler is an AsyncHandler[string] that streams the response
// body to a temp file and returns its path on completion, for responses
// too large to hold in memory.
type TempFileHandler struct {
	f      *os.File
	status int
}

// NewTempFileHandler creates a temp file matching pattern (as accepted
// by os.CreateTemp) to stream the response body into.
func NewTempFileHandler(pattern string) (*TempFileHandler, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, wrap(KindIO, "NewTempFileHandler", err)
	}
	return &TempFileHandler{f: f}, nil
}

// OnHeaderAvailable implements AsyncHandler.
func (h *TempFileHandler) OnHeaderAvailable(status int, _ http.Header) error {
	h.status = status
	return nil
}

// OnBodyAvailable implements AsyncHandler.
func (h *TempFileHandler) OnBodyAvailable(chunk []byte) error {
	if _, err := h.f.Write(chunk); err != nil {
		return wrap(KindIO, "TempFileHandler.OnBodyAvailable", err)
	}
	return nil
}

// OnCompleted implements AsyncHandler, returning the temp file's path.
func (h *TempFileHandler) OnCompleted() (string, error) {
	name := h.f.Name()
	if err := h.f.Close(); err != nil {
		return "", wrap(KindIO, "TempFileHandler.OnCompleted", err)
	}
	return name, nil
}

// OnException implements AsyncHandler, cleaning up the partial file.
func (h *TempFileHandler) OnException(err error) error {
	_ = h.f.Close()
	_ = os.Remove(h.f.Name())
	return err
}

// StatusCode reports the response status once headers have arrived.
func (h *TempFileHandler) StatusCode() int { return h.status }
