package util

import (
	"context"
	"errors"
)

// ErrNotReady is the backpressure signal: the component cannot take more
// work right now and the caller should hold its events instead of dropping
// them.
var ErrNotReady = errors.New("not ready, retry later")

// TransportState is the connection lifecycle of a transport. Exactly one
// state is active at a time and only the goroutine driving the transport
// moves between them.
type TransportState int

const (
	StateInitializing TransportState = iota
	StateResolvingDNS
	StateResolvedDNS
	StateBackoff
)

func (s TransportState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateResolvingDNS:
		return "resolving_dns"
	case StateResolvedDNS:
		return "resolved_dns"
	case StateBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}

// Transport pushes one ready payload at a time toward the collector. All
// methods are driven by a single goroutine; implementations keep their state
// unguarded on that assumption.
type Transport interface {
	// TrySend delivers the payload if the transport is ready. It returns
	// ErrNotReady while the destination is being resolved or waited out.
	// Per-packet send failures are absorbed (reported to the observer,
	// payload dropped) and do not surface as errors.
	TrySend(ctx context.Context, payload []byte) error

	// WaitReady blocks until a send could succeed or ctx is done.
	WaitReady(ctx context.Context) error

	// Healthcheck verifies the destination at startup as far as the
	// transport allows.
	Healthcheck(ctx context.Context) error

	State() TransportState

	Close() error
}

// Acker receives best-effort delivery notices: n events were handed to the
// transport. It regulates upstream production and is not an end-to-end
// guarantee.
type Acker interface {
	Ack(n int)
}

// AckFunc adapts a function to the Acker interface.
type AckFunc func(n int)

func (f AckFunc) Ack(n int) { f(n) }
