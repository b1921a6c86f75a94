// Package listener is the statsd ingest socket. Datagrams are parsed and
// handed to the sinks manager, so anything a statsd client can emit can
// also be bridged.
package listener

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log"
	"net"

	"flashcat.cloud/statsgraf/config"
	statsdparser "flashcat.cloud/statsgraf/parser/statsd"
	"flashcat.cloud/statsgraf/pkg/obs"
	"flashcat.cloud/statsgraf/sinks"
	"flashcat.cloud/statsgraf/types"
)

// maxDatagramSize matches the largest payload a UDP socket can carry, the
// sender's batcher keeps real datagrams far below this.
const maxDatagramSize = 65535

const defaultMaxTCPConnections = 250

type Listener struct {
	conf     *config.Listener
	parser   *statsdparser.Parser
	observer obs.Observer
}

func New(conf *config.Listener, observer obs.Observer) *Listener {
	if observer == nil {
		observer = obs.Nop()
	}
	return &Listener{
		conf:     conf,
		parser:   statsdparser.NewParser(),
		observer: observer,
	}
}

// Run serves until ctx is canceled. Sockets are closed on cancel which
// unblocks the pending reads.
func (l *Listener) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	proto := l.conf.Protocol
	if proto == "" {
		proto = "udp"
	}

	errCh := make(chan error, 2)
	loops := 0
	if proto == "udp" || proto == "both" {
		loops++
		go func() { errCh <- l.serveUDP(ctx) }()
	}
	if proto == "tcp" || proto == "both" {
		loops++
		go func() { errCh <- l.serveTCP(ctx) }()
	}
	if loops == 0 {
		return fmt.Errorf("unknown listener protocol: %s", proto)
	}

	var firstErr error
	for i := 0; i < loops; i++ {
		err := <-errCh
		if err != nil && firstErr == nil {
			firstErr = err
		}
		// one loop going down takes the other with it
		cancel()
	}
	return firstErr
}

func (l *Listener) serveUDP(ctx context.Context) error {
	udpAddr, err := net.ResolveUDPAddr("udp", l.conf.Address)
	if err != nil {
		return err
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}

	if l.conf.ReadBuffer > 0 {
		if err := conn.SetReadBuffer(l.conf.ReadBuffer); err != nil {
			log.Println("W! failed to set statsd listener read buffer:", err)
		}
	}

	log.Println("I! statsd listener on udp:", conn.LocalAddr())

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, maxDatagramSize)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		l.dispatch(buf[:n])
	}
}

func (l *Listener) serveTCP(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.conf.Address)
	if err != nil {
		return err
	}

	log.Println("I! statsd listener on tcp:", ln.Addr())

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	maxConns := l.conf.MaxTCPConnections
	if maxConns <= 0 {
		maxConns = defaultMaxTCPConnections
	}
	sem := make(chan struct{}, maxConns)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case sem <- struct{}{}:
		default:
			log.Println("W! statsd listener refused tcp connection, too many open:", conn.RemoteAddr())
			conn.Close()
			continue
		}

		go func(c net.Conn) {
			defer func() { <-sem }()
			l.readLines(ctx, c)
		}(conn)
	}
}

// readLines consumes newline-delimited statsd messages from one tcp
// connection until the peer disconnects or ctx ends.
func (l *Listener) readLines(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxDatagramSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		l.dispatch(line)
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.Println("W! statsd listener tcp read error:", err)
	}
}

func (l *Listener) dispatch(payload []byte) {
	mlist := types.NewMetricList()
	if err := l.parser.Parse(payload, mlist); err != nil {
		log.Println("E! failed to parse statsd datagram:", err)
		return
	}

	ms := mlist.PopBackAll()
	if len(ms) == 0 {
		return
	}

	// a datagram source has no way to push back on the sender, refused
	// events are dropped and counted
	if err := sinks.WriteMetrics(ms); err != nil {
		l.observer.EventsDropped("listener", len(ms), "backpressure")
	}
}
