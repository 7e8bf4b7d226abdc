package tmpl

import (
	"errors"
	"log/slog"
	"strings"
)

// Predefined errors (sentinel values).
//
// Errors returned by this package match these with [errors.Is] even after
// attributes are attached with [Error.With] or a cause with [Error.Wrap].
var (
	ErrNotFound           = NewError("template not found")
	ErrDisallowedFunction = NewError("function not allowed")
	ErrFunctionCall       = NewError("function call failed")
	ErrMalformedTag       = NewError("malformed control tag")
	ErrResourceLimit      = NewError("resource limit exceeded")
	ErrIncludeCycle       = NewError("circular include")
	ErrInvalidRegistry    = NewError("invalid function registry")
	ErrInvalidOption      = NewError("invalid engine option")
	ErrReadInput          = NewError("failed to read input")
	ErrDecodeData         = NewError("failed to decode data")
	ErrUnsupportedFormat  = NewError("unsupported data format")
)

// Error represents an error with optional structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	msg   string
	err   error       // Wrapped error (for errors.Unwrap)
	attrs []slog.Attr // Attributes for structured logging
	kind  *Error      // Sentinel this error was derived from
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError wraps a standard error into an Error.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	// Build error message using the first available format,
	// depending on which fields are set:
	//
	//   1. "<msg>: <err>" // base and wrapped error both set
	//   2. "<msg>"        // wrapped error is nil
	//   3. "<err>"        // base error message is empty
	//   4. ""             // no fields are set
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether e was derived from target.
//
// ErrIncludeCycle additionally matches ErrResourceLimit, since both abort the
// render unconditionally.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	origin := e.origin()
	if origin == t {
		return true
	}

	return origin == ErrIncludeCycle && t == ErrResourceLimit
}

func (e *Error) origin() *Error {
	if e.kind != nil {
		return e.kind
	}

	return e
}

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		attrs: e.attrs, // Share attrs
		kind:  e.origin(),
	}
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
		kind:  e.origin(),
	}
}

// Attrs returns the structured attributes attached to the error.
func (e *Error) Attrs() []slog.Attr {
	return append([]slog.Attr(nil), e.attrs...)
}

// Policy selects how recoverable failures inside a template surface.
type Policy int

const (
	// PolicyComment embeds a diagnostic marker in the output.
	PolicyComment Policy = iota
	// PolicyFail aborts the render and returns the error.
	PolicyFail
	// PolicySilent replaces the failed construct with nothing.
	PolicySilent
)

// String returns the lowercase name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyComment:
		return "comment"

	case PolicyFail:
		return "fail"

	case PolicySilent:
		return "silent"

	default:
		return "unknown"
	}
}

// ParsePolicy parses a policy name as produced by [Policy.String].
// Unknown names yield PolicyComment and false.
func ParsePolicy(s string) (Policy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "comment":
		return PolicyComment, true

	case "fail":
		return PolicyFail, true

	case "silent":
		return PolicySilent, true

	default:
		return PolicyComment, false
	}
}

// Policies returns the names of all policies.
func Policies() []string {
	return []string{
		PolicyComment.String(),
		PolicyFail.String(),
		PolicySilent.String(),
	}
}
