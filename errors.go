package kestrel

import "github.com/kestrel-http/kestrel/kerr"

// Re-export kerr's taxonomy under the root package so callers importing
// only "kestrel" can inspect error kinds without a second import, the
// same flat-namespace convenience caddy's own top-level package offers
// for its error/config types.
type (
	Kind  = kerr.Kind
	Error = kerr.Error
)

const (
	ParseError            = kerr.ParseError
	Timeout               = kerr.Timeout
	BadField              = kerr.BadField
	BufferOverflow        = kerr.BufferOverflow
	ShortRead             = kerr.ShortRead
	RangeNotSatisfiable   = kerr.RangeNotSatisfiable
	HandlerException      = kerr.HandlerException
	UpstreamConnectFailed = kerr.UpstreamConnectFailed
	TLSHandshakeFailed    = kerr.TLSHandshakeFailed
)

// NewError constructs a kind-tagged error.
func NewError(kind Kind, op string, err error) *Error { return kerr.New(kind, op, err) }

// AsError reports whether err is a *Error of the given kind.
func AsError(err error, kind Kind) bool { return kerr.Is(err, kind) }
