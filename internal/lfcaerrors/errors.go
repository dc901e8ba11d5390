// Package lfcaerrors provides the structured error type used across the
// analysis pipeline and query surface. Every error kind is drawn from the
// closed vocabulary a caller is expected to switch on; nothing else should
// be type-asserted against.
package lfcaerrors

import (
	"fmt"
	"runtime"
	"strings"
)

// Kind is the closed vocabulary of error categories.
type Kind int

const (
	// KindValidation: malformed input, unknown enum, out-of-range or
	// missing required parameter. Recovered by the caller.
	KindValidation Kind = iota
	// KindNotFound: entity absent.
	KindNotFound
	// KindState: operation not permitted in the current run/analysis state.
	KindState
	// KindParse: per-commit extraction failure; recoverable up to a
	// consecutive-failure limit.
	KindParse
	// KindIO: storage or mirror failure; aborts the current stage.
	KindIO
	// KindInternal: any uncaught error. Never leaks its raw message to a
	// caller; callers are expected to log it and surface a trace id.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindNotFound:
		return "NotFound"
	case KindState:
		return "StateError"
	case KindParse:
		return "ParseError"
	case KindIO:
		return "IOError"
	default:
		return "Internal"
	}
}

// Error is the structured error carried through the pipeline and query
// surface. It implements Unwrap/Is so callers can use errors.Is/As against
// a Kind-tagged sentinel without string matching.
type Error struct {
	Kind       Kind
	Message    string
	Cause      error
	Context    map[string]any
	StackTrace string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on Kind only, same as the teacher's errors.go pattern: two
// *Error values are "the same" for errors.Is purposes iff they carry the
// same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithContext attaches a key/value pair and returns the receiver for
// chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func captureStackTrace(skip int) string {
	var sb strings.Builder
	for i := skip; i < skip+8; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			break
		}
		sb.WriteString(fmt.Sprintf("  %s:%d %s\n", file, line, fn.Name()))
	}
	return sb.String()
}

// New creates a new Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, StackTrace: captureStackTrace(2)}
}

// Newf creates a new Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a Kind and message. Returns nil if err
// is nil, so call sites can write `return lfcaerrors.Wrap(err, ...)`
// unconditionally.
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: err, StackTrace: captureStackTrace(2)}
}

// Convenience constructors, one per Kind.

func Validation(message string) *Error       { return New(KindValidation, message) }
func Validationf(f string, a ...any) *Error  { return Newf(KindValidation, f, a...) }
func NotFound(message string) *Error         { return New(KindNotFound, message) }
func NotFoundf(f string, a ...any) *Error    { return Newf(KindNotFound, f, a...) }
func State(message string) *Error            { return New(KindState, message) }
func Statef(f string, a ...any) *Error       { return Newf(KindState, f, a...) }
func Parse(message string) *Error            { return New(KindParse, message) }
func Parsef(f string, a ...any) *Error       { return Newf(KindParse, f, a...) }
func IO(err error, message string) *Error    { return Wrap(err, KindIO, message) }
func IOf(err error, f string, a ...any) *Error {
	return Wrap(err, KindIO, fmt.Sprintf(f, a...))
}
func Internal(message string) *Error      { return New(KindInternal, message) }
func Internalf(f string, a ...any) *Error { return Newf(KindInternal, f, a...) }

// GetKind returns the Kind of err, or KindInternal if err is not an *Error
// (an uncaught error is, by definition, internal per §7's propagation
// policy).
func GetKind(err error) Kind {
	if err == nil {
		return KindInternal
	}
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindInternal
}
