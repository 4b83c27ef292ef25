package asynchttp

import "fmt"

// Kind classifies an Error by its place in the transport/engine taxonomy.
type Kind string

const (
	// KindInvalidURL means the URL could not be parsed.
	KindInvalidURL Kind = "invalid_url_format"
	// KindConnFailed means no connection could be opened.
	KindConnFailed Kind = "connection_failed"
	// KindConnTerminated means the session disconnected mid-exchange.
	KindConnTerminated Kind = "connection_terminated"
	// KindIO means a local stream read/write failed.
	KindIO Kind = "io"
	// KindNet means some other transport error with a numeric code.
	KindNet Kind = "net"
	// KindLogic means the engine itself was misused.
	KindLogic Kind = "logic_error"
)

// Error is the engine's single error type. Code is only meaningful for
// KindNet; Op names the operation that produced it.
type Error struct {
	Kind    Kind
	Code    int
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("asynchttp: %s: %s: %s", e.Op, e.Kind, e.Message)
	}
	return fmt.Sprintf("asynchttp: %s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause, if any, for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Err }

// Is reports equality by Kind and Message, so errors.Is(err, ErrAlreadyStarted)
// matches any *Error sharing ErrAlreadyStarted's Kind and Message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// Predefined LogicError sentinels for engine misuse.
var (
	ErrAlreadyStarted    = &Error{Kind: KindLogic, Message: "chain or exchange already started"}
	ErrContextConflict   = &Error{Kind: KindLogic, Message: "conflicting execution context"}
	ErrAlreadyRegistered = &Error{Kind: KindLogic, Message: "module already registered"}
	// ErrNilException is substituted whenever an AsyncHandler's
	// OnException returns nil, honouring the delegate contract's "may
	// substitute; never null" rule. Kind is Io, not Logic: the nil
	// return is a defect in the handler's I/O-facing exception path, not
	// a misuse of the engine itself.
	ErrNilException = &Error{Kind: KindIO, Message: "on_exception returned a nil error"}
)

func wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err, Message: err.Error()}
}
