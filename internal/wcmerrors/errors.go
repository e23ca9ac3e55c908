// Package wcmerrors defines the error taxonomy returned across the WCM user
// API boundary: Invalid, State, NoMem, Fail, NotSupported, AlreadyConfigured.
package wcmerrors

import (
	"errors"
	"fmt"
)

// Kind is one of the WCM error kinds. It is compared with errors.Is via the
// sentinel values below, never by switching on an HTTP status or string.
type Kind int

const (
	// KindInvalid: caller-supplied arguments fail validation.
	KindInvalid Kind = iota
	// KindState: current STA/uAP/PS state forbids the operation.
	KindState
	// KindNoMem: buffer or slot exhaustion.
	KindNoMem
	// KindFail: driver or OS primitive rejected the request.
	KindFail
	// KindNotSupported: feature disabled in this build.
	KindNotSupported
	// KindAlreadyConfigured: a second host-sleep config while one is active.
	KindAlreadyConfigured
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindState:
		return "state"
	case KindNoMem:
		return "nomem"
	case KindFail:
		return "fail"
	case KindNotSupported:
		return "not_supported"
	case KindAlreadyConfigured:
		return "already_configured"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Error wraps an underlying cause with a WCM error Kind. It unwraps to the
// cause so callers can still errors.As into driver-specific error types.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "profile.add", "sta.connect"
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same Kind, so callers can
// write errors.Is(err, wcmerrors.Invalid) against a constructed sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an *Error for op/kind with an optional wrapped cause.
func New(op string, kind Kind, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Sentinels usable with errors.Is(err, wcmerrors.Invalid), etc. Only the
// Kind is compared (see (*Error).Is), so the Op/Err fields here are unused.
var (
	Invalid            = &Error{Kind: KindInvalid}
	State              = &Error{Kind: KindState}
	NoMem              = &Error{Kind: KindNoMem}
	Fail               = &Error{Kind: KindFail}
	NotSupported       = &Error{Kind: KindNotSupported}
	AlreadyConfigured  = &Error{Kind: KindAlreadyConfigured}
)

// KindOf extracts the Kind from err, defaulting to KindFail for errors that
// were not constructed through this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFail
}
