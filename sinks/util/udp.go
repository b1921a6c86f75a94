package util

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"flashcat.cloud/statsgraf/pkg/backoff"
	"flashcat.cloud/statsgraf/pkg/dnsx"
	"flashcat.cloud/statsgraf/pkg/obs"
)

// retry schedule for failed resolutions
const (
	resolveBackoffInitial = 500 * time.Millisecond
	resolveBackoffFactor  = 2
	resolveBackoffMax     = time.Minute
)

// UDPTransport owns one datagram socket and the resolution state machine in
// front of it. The destination is resolved once and the address cached until
// a failure forces re-resolution; there is no periodic refresh.
type UDPTransport struct {
	sink string
	host string
	port int

	resolver dnsx.Resolver
	observer obs.Observer
	retry    *backoff.Backoff

	conn *net.UDPConn

	state   TransportState
	addr    *net.UDPAddr
	retryAt time.Time
}

func NewUDPTransport(sink, address string, resolver dnsx.Resolver, observer obs.Observer) (*UDPTransport, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %v", address, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port in address %q", address)
	}

	// one unconnected socket for the whole life of the transport
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to bind udp socket: %v", err)
	}

	if resolver == nil {
		resolver = dnsx.Default()
	}
	if observer == nil {
		observer = obs.Nop()
	}

	return &UDPTransport{
		sink:     sink,
		host:     host,
		port:     port,
		resolver: resolver,
		observer: observer,
		retry:    backoff.New(resolveBackoffInitial, resolveBackoffFactor, resolveBackoffMax),
		conn:     conn,
		state:    StateInitializing,
	}, nil
}

// poll advances the state machine until it either holds a resolved address
// or sits in a backoff window. The DNS lookup runs inline on the calling
// goroutine, so the only not-ready state a caller observes is the backoff
// wait.
func (t *UDPTransport) poll(ctx context.Context) (*net.UDPAddr, bool) {
	for {
		switch t.state {
		case StateInitializing:
			t.state = StateResolvingDNS

		case StateResolvingDNS:
			addrs, err := t.resolver.LookupIPAddr(ctx, t.host)
			if ctx.Err() != nil {
				// teardown while resolving leaves nothing to roll back
				return nil, false
			}
			if err == nil && len(addrs) == 0 {
				err = fmt.Errorf("resolving %s returned no addresses", t.host)
			}
			if err != nil {
				t.observer.ResolveFailed(t.sink, t.host, err)
				delay := t.retry.Next()
				t.retryAt = time.Now().Add(delay)
				t.state = StateBackoff
				t.observer.BackoffEntered(t.sink, delay)
				continue
			}

			// first address wins, no balancing across results
			t.addr = &net.UDPAddr{IP: addrs[0].IP, Zone: addrs[0].Zone, Port: t.port}
			t.state = StateResolvedDNS
			// a success rewinds the retry schedule, so a later unrelated
			// failure starts from the initial delay again
			t.retry.Reset()
			t.observer.ResolveSucceeded(t.sink, t.host, t.addr.String())

		case StateResolvedDNS:
			return t.addr, true

		case StateBackoff:
			if time.Now().Before(t.retryAt) {
				return nil, false
			}
			t.state = StateInitializing
		}
	}
}

func (t *UDPTransport) TrySend(ctx context.Context, payload []byte) error {
	addr, ready := t.poll(ctx)
	if !ready {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrNotReady
	}

	if _, err := t.conn.WriteToUDP(payload, addr); err != nil {
		// lossy contract: the packet is gone, the state is untouched and
		// the pipeline keeps going
		t.observer.SendFailed(t.sink, err)
		return nil
	}

	t.observer.SendSucceeded(t.sink, len(payload))
	return nil
}

func (t *UDPTransport) WaitReady(ctx context.Context) error {
	for {
		if _, ready := t.poll(ctx); ready {
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

// Healthcheck always passes: there is no way to probe a datagram
// destination without sending data.
func (t *UDPTransport) Healthcheck(ctx context.Context) error {
	return nil
}

func (t *UDPTransport) State() TransportState {
	return t.state
}

func (t *UDPTransport) Close() error {
	return t.conn.Close()
}
