package statsd

import (
	"context"
	"fmt"
	"log"

	"flashcat.cloud/statsgraf/pkg/dnsx"
	"flashcat.cloud/statsgraf/pkg/obs"
	"flashcat.cloud/statsgraf/sinks/util"
	"flashcat.cloud/statsgraf/types"
)

const (
	ModeUDP  = "udp"
	ModeTCP  = "tcp"
	ModeUnix = "unix"
)

type Options struct {
	Name      string
	Mode      string
	Address   string
	Namespace string
	Batch     util.BatchSettings
	ChanSize  int

	// optional collaborators, defaulted when nil
	Resolver dnsx.Resolver
	Acker    util.Acker
	Observer obs.Observer
}

// Sink drives encoded metric events through a batch queue into a statsd
// collector. Submit either takes the event or reports ErrNotReady, in which
// case the caller must hold it and try again.
type Sink struct {
	name      string
	namespace string
	queue     *util.BatchQueue
	transport util.Transport
	observer  obs.Observer
}

func New(opts Options) (*Sink, error) {
	if opts.Name == "" {
		opts.Name = opts.Mode + "://" + opts.Address
	}
	if opts.Observer == nil {
		opts.Observer = obs.Nop()
	}

	batch, err := opts.Batch.Normalize()
	if err != nil {
		return nil, fmt.Errorf("sink %s: %v", opts.Name, err)
	}

	var transport util.Transport
	switch opts.Mode {
	case ModeUDP:
		transport, err = util.NewUDPTransport(opts.Name, opts.Address, opts.Resolver, opts.Observer)
	case ModeTCP:
		transport, err = util.NewTCPTransport(opts.Name, opts.Address, opts.Observer)
	case ModeUnix:
		transport, err = util.NewUnixTransport(opts.Name, opts.Address, opts.Observer)
	default:
		return nil, fmt.Errorf("sink %s: unknown mode %q", opts.Name, opts.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("sink %s: %v", opts.Name, err)
	}

	return &Sink{
		name:      opts.Name,
		namespace: opts.Namespace,
		queue:     util.NewBatchQueue(opts.Name, batch, opts.ChanSize, transport, opts.Acker, opts.Observer),
		transport: transport,
		observer:  opts.Observer,
	}, nil
}

func (s *Sink) Name() string {
	return s.name
}

// Submit encodes one event and queues it for delivery. Events the wire
// protocol cannot express are counted and swallowed, they are not errors.
func (s *Sink) Submit(m *types.Metric) error {
	if err := m.Validate(); err != nil {
		log.Println("D! sink", s.name, "dropping malformed event:", err)
		s.observer.EncodeSkipped(s.name)
		return nil
	}

	frame := Encode(m, s.namespace)
	if frame == nil {
		s.observer.EncodeSkipped(s.name)
		return nil
	}

	return s.queue.Push(frame)
}

func (s *Sink) Pending() int {
	return s.queue.Pending()
}

func (s *Sink) Healthcheck(ctx context.Context) error {
	return s.transport.Healthcheck(ctx)
}

// Stop drains what it can within the shutdown grace period and releases the
// socket.
func (s *Sink) Stop() {
	s.queue.Stop()
}
