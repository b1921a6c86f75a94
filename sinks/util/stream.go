package util

import (
	"context"
	"fmt"
	"net"
	"time"

	"flashcat.cloud/statsgraf/pkg/backoff"
	"flashcat.cloud/statsgraf/pkg/obs"
)

const (
	streamDialTimeout  = 10 * time.Second
	streamWriteTimeout = 10 * time.Second
)

// StreamTransport is the stream-socket instance of the transport contract:
// same backoff policy on connect failure, but none of the DNS state machine
// depth, because the dialer resolves names internally. A write error drops
// the payload and the connection; the next send reconnects.
type StreamTransport struct {
	sink    string
	network string
	address string

	observer obs.Observer
	retry    *backoff.Backoff
	dialer   net.Dialer

	conn    net.Conn
	state   TransportState
	retryAt time.Time
}

func NewTCPTransport(sink, address string, observer obs.Observer) (*StreamTransport, error) {
	if _, _, err := net.SplitHostPort(address); err != nil {
		return nil, fmt.Errorf("invalid address %q: %v", address, err)
	}
	return newStreamTransport(sink, "tcp", address, observer), nil
}

func NewUnixTransport(sink, socketPath string, observer obs.Observer) (*StreamTransport, error) {
	if socketPath == "" {
		return nil, fmt.Errorf("unix socket path is empty")
	}
	return newStreamTransport(sink, "unix", socketPath, observer), nil
}

func newStreamTransport(sink, network, address string, observer obs.Observer) *StreamTransport {
	if observer == nil {
		observer = obs.Nop()
	}
	return &StreamTransport{
		sink:     sink,
		network:  network,
		address:  address,
		observer: observer,
		retry:    backoff.New(resolveBackoffInitial, resolveBackoffFactor, resolveBackoffMax),
		dialer:   net.Dialer{Timeout: streamDialTimeout},
		state:    StateInitializing,
	}
}

func (t *StreamTransport) poll(ctx context.Context) bool {
	for {
		switch t.state {
		case StateInitializing, StateResolvingDNS:
			conn, err := t.dialer.DialContext(ctx, t.network, t.address)
			if ctx.Err() != nil {
				return false
			}
			if err != nil {
				t.observer.ResolveFailed(t.sink, t.address, err)
				delay := t.retry.Next()
				t.retryAt = time.Now().Add(delay)
				t.state = StateBackoff
				t.observer.BackoffEntered(t.sink, delay)
				continue
			}

			t.conn = conn
			t.state = StateResolvedDNS
			t.retry.Reset()
			t.observer.ResolveSucceeded(t.sink, t.address, conn.RemoteAddr().String())

		case StateResolvedDNS:
			return true

		case StateBackoff:
			if time.Now().Before(t.retryAt) {
				return false
			}
			t.state = StateInitializing
		}
	}
}

func (t *StreamTransport) TrySend(ctx context.Context, payload []byte) error {
	if !t.poll(ctx) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrNotReady
	}

	t.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	if _, err := t.conn.Write(payload); err != nil {
		// drop the payload and the connection, reconnect on the next send
		t.observer.SendFailed(t.sink, err)
		t.conn.Close()
		t.conn = nil
		t.state = StateInitializing
		return nil
	}

	t.observer.SendSucceeded(t.sink, len(payload))
	return nil
}

func (t *StreamTransport) WaitReady(ctx context.Context) error {
	for {
		if t.poll(ctx) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		wait := time.Until(t.retryAt)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Healthcheck dials the destination once and closes the probe connection.
func (t *StreamTransport) Healthcheck(ctx context.Context) error {
	conn, err := t.dialer.DialContext(ctx, t.network, t.address)
	if err != nil {
		return fmt.Errorf("failed to connect %s %s: %v", t.network, t.address, err)
	}
	return conn.Close()
}

func (t *StreamTransport) State() TransportState {
	return t.state
}

func (t *StreamTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}
