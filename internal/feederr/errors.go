// Package feederr classifies the failures the feed and quoting cores can
// raise so callers can decide recovery without string-matching messages.
package feederr

import (
	"errors"
	"fmt"
)

// Kind is one of the seven recovery classes described for the core.
type Kind int

const (
	// TransientNetwork covers socket errors, remote closes and send failures.
	// Recovery: reconnect loop.
	TransientNetwork Kind = iota
	// StaleConnection is an inactivity or pong timeout.
	// Recovery: deliberate close, then reconnect.
	StaleConnection
	// SequenceGap is a book-sync invariant violation.
	// Recovery: drop synchronizer state, trigger startSync, keep buffering.
	SequenceGap
	// ParseError is a malformed frame.
	// Recovery: surface on Error, discard the message, continue.
	ParseError
	// AuthFailure is an auth frame rejected by the venue.
	// Recovery: fire AuthenticationStateChanged(false); do not subscribe
	// to private topics; fatal for the private channel only.
	AuthFailure
	// ExchangeReject is an order rejected by the gateway.
	// Recovery: route to the Quoter, clear the active-order slot.
	ExchangeReject
	// Configuration is an unknown product/venue combination.
	// Recovery: none, fatal at adapter construction.
	Configuration
)

func (k Kind) String() string {
	switch k {
	case TransientNetwork:
		return "transient_network"
	case StaleConnection:
		return "stale_connection"
	case SequenceGap:
		return "sequence_gap"
	case ParseError:
		return "parse_error"
	case AuthFailure:
		return "auth_failure"
	case ExchangeReject:
		return "exchange_reject"
	case Configuration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a recovery Kind.
type Error struct {
	Kind Kind
	Op   string // component/operation that raised it, e.g. "binance.processMessage"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a classified error from a format string.
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err, if it (or something it wraps) is an
// *Error. The second return is false for unclassified errors.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// Is reports whether err is a classified error of the given Kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
