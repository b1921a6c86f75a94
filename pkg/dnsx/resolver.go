package dnsx

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// Resolver is the lookup capability handed to transports. *net.Resolver
// satisfies it; tests substitute fakes.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Default resolves through the system stub resolver.
func Default() Resolver {
	return net.DefaultResolver
}

// ServerResolver queries explicitly configured DNS servers instead of the
// system stub, for hosts that only resolve inside a given infrastructure.
type ServerResolver struct {
	servers []string
	client  *dns.Client
}

func NewServerResolver(servers []string, timeout time.Duration) *ServerResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	normalized := make([]string, 0, len(servers))
	for _, s := range servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		normalized = append(normalized, s)
	}

	return &ServerResolver{
		servers: normalized,
		client:  &dns.Client{Timeout: timeout},
	}
}

func (r *ServerResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IPAddr{{IP: ip}}, nil
	}
	if len(r.servers) == 0 {
		return nil, fmt.Errorf("no dns servers configured")
	}

	var lastErr error
	for _, server := range r.servers {
		addrs, err := r.query(ctx, host, server)
		if err != nil {
			lastErr = err
			continue
		}
		if len(addrs) > 0 {
			return addrs, nil
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("no address found for %s", host)
}

func (r *ServerResolver) query(ctx context.Context, host, server string) ([]net.IPAddr, error) {
	var addrs []net.IPAddr

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(host), qtype)

		in, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s for %s: %v", server, host, err)
		}

		for _, rr := range in.Answer {
			switch record := rr.(type) {
			case *dns.A:
				addrs = append(addrs, net.IPAddr{IP: record.A})
			case *dns.AAAA:
				addrs = append(addrs, net.IPAddr{IP: record.AAAA})
			}
		}

		// answers from the A round are enough, skip the AAAA round
		if len(addrs) > 0 {
			break
		}
	}

	return addrs, nil
}
