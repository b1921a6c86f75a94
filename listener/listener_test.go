package listener

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashcat.cloud/statsgraf/config"
	"flashcat.cloud/statsgraf/pkg/obs"
	"flashcat.cloud/statsgraf/sinks"
)

func newUDPListener(t *testing.T) (*net.UDPConn, string) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, conn.LocalAddr().String()
}

func readDatagram(t *testing.T, conn *net.UDPConn) string {
	t.Helper()
	buf := make([]byte, 65536)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func freePort(t *testing.T) string {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	addr := conn.LocalAddr().String()
	conn.Close()
	return addr
}

func initSinks(t *testing.T, observer obs.Observer, scs ...config.SinkConfig) {
	t.Helper()
	config.Config = &config.ConfigType{
		Global: config.Global{Hostname: "test-host"},
		Sinks:  scs,
	}
	for i := range config.Config.Sinks {
		require.NoError(t, config.Config.Sinks[i].Validate())
	}
	require.NoError(t, config.InitHostname())
	require.NoError(t, sinks.Init(observer))
	t.Cleanup(sinks.Stop)
}

// startListener runs l until the test ends and blocks until the socket
// answers, the bind is asynchronous from the test's point of view.
func startListener(t *testing.T, l *Listener, addr string, collector *net.UDPConn) *net.UDPConn {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	client, err := net.Dial("udp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.Eventually(t, func() bool {
		client.Write([]byte("warmup:1|c"))
		buf := make([]byte, 65536)
		collector.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		_, _, err := collector.ReadFromUDP(buf)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	return client.(*net.UDPConn)
}

func TestListenerForwardsDatagrams(t *testing.T) {
	collector, sinkAddr := newUDPListener(t)
	initSinks(t, nil, config.SinkConfig{
		Name:    "test",
		Mode:    "udp",
		Address: sinkAddr,
		Batch:   config.BatchConfig{MaxEvents: 1, Timeout: config.Duration(time.Hour)},
	})

	addr := freePort(t)
	l := New(&config.Listener{Enable: true, Address: addr}, nil)
	client := startListener(t, l, addr, collector)

	_, err := client.Write([]byte("app:1|c\nlatency:2.5|ms"))
	require.NoError(t, err)

	assert.Equal(t, "app:1|c|#agent_hostname:test-host\n", readDatagram(t, collector))
	assert.Equal(t, "latency:2.5|h|#agent_hostname:test-host\n", readDatagram(t, collector))
}

func TestListenerSkipsGarbage(t *testing.T) {
	collector, sinkAddr := newUDPListener(t)
	initSinks(t, nil, config.SinkConfig{
		Name:    "test",
		Mode:    "udp",
		Address: sinkAddr,
		Batch:   config.BatchConfig{MaxEvents: 1, Timeout: config.Duration(time.Hour)},
	})

	addr := freePort(t)
	l := New(&config.Listener{Enable: true, Address: addr}, nil)
	client := startListener(t, l, addr, collector)

	_, err := client.Write([]byte("complete garbage"))
	require.NoError(t, err)
	_, err = client.Write([]byte("ok:1|c"))
	require.NoError(t, err)

	assert.Equal(t, "ok:1|c|#agent_hostname:test-host\n", readDatagram(t, collector))
}

func TestListenerDropsOnBackpressure(t *testing.T) {
	rec := obs.NewRecorder()
	initSinks(t, rec, config.SinkConfig{
		Name:     "stalled",
		Mode:     "udp",
		Address:  "statsgraf-test.invalid:8125",
		ChanSize: 1,
		Batch:    config.BatchConfig{MaxEvents: 1, Timeout: config.Duration(time.Hour)},
	})

	addr := freePort(t)
	l := New(&config.Listener{Enable: true, Address: addr}, rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	client, err := net.Dial("udp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	// the stalled sink holds one event in hand and one in its channel,
	// keep writing until the refusals show up as drops
	require.Eventually(t, func() bool {
		client.Write([]byte("x:1|c"))
		return rec.Dropped("backpressure") >= 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.GreaterOrEqual(t, rec.Accepted(), 1)
}

func dialTCP(t *testing.T, addr string) net.Conn {
	t.Helper()
	var conn net.Conn
	require.Eventually(t, func() bool {
		c, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 5*time.Second, 10*time.Millisecond)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestListenerForwardsTCPLines(t *testing.T) {
	collector, sinkAddr := newUDPListener(t)
	initSinks(t, nil, config.SinkConfig{
		Name:    "test",
		Mode:    "udp",
		Address: sinkAddr,
		Batch:   config.BatchConfig{MaxEvents: 1, Timeout: config.Duration(time.Hour)},
	})

	addr := freePort(t)
	l := New(&config.Listener{Enable: true, Address: addr, Protocol: "tcp"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	conn := dialTCP(t, addr)
	_, err := conn.Write([]byte("app:1|c\nlatency:2.5|ms\n"))
	require.NoError(t, err)

	assert.Equal(t, "app:1|c|#agent_hostname:test-host\n", readDatagram(t, collector))
	assert.Equal(t, "latency:2.5|h|#agent_hostname:test-host\n", readDatagram(t, collector))
}

func TestListenerServesBothProtocols(t *testing.T) {
	collector, sinkAddr := newUDPListener(t)
	initSinks(t, nil, config.SinkConfig{
		Name:    "test",
		Mode:    "udp",
		Address: sinkAddr,
		Batch:   config.BatchConfig{MaxEvents: 1, Timeout: config.Duration(time.Hour)},
	})

	addr := freePort(t)
	l := New(&config.Listener{Enable: true, Address: addr, Protocol: "both"}, nil)
	client := startListener(t, l, addr, collector)

	conn := dialTCP(t, addr)
	_, err := conn.Write([]byte("via_tcp:1|c\n"))
	require.NoError(t, err)
	assert.Equal(t, "via_tcp:1|c|#agent_hostname:test-host\n", readDatagram(t, collector))

	_, err = client.Write([]byte("via_udp:1|c"))
	require.NoError(t, err)
	assert.Equal(t, "via_udp:1|c|#agent_hostname:test-host\n", readDatagram(t, collector))
}

func TestListenerRejectsUnknownProtocol(t *testing.T) {
	initSinks(t, nil)

	l := New(&config.Listener{Enable: true, Address: ":0", Protocol: "quic"}, nil)
	err := l.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quic")
}

func TestListenerStopsOnCancel(t *testing.T) {
	initSinks(t, nil)

	addr := freePort(t)
	l := New(&config.Listener{Enable: true, Address: addr}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop on cancel")
	}
}
