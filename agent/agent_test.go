package agent

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashcat.cloud/statsgraf/config"
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

func initAgentConfig(t *testing.T, sinkAddr string) {
	t.Helper()
	config.Config = &config.ConfigType{
		Global: config.Global{Hostname: "test-host"},
		SelfMetrics: config.SelfMetrics{
			Enable:   true,
			Interval: config.Duration(50 * time.Millisecond),
		},
		Sinks: []config.SinkConfig{{
			Name:    "test",
			Mode:    "udp",
			Address: sinkAddr,
			Batch:   config.BatchConfig{MaxEvents: 1, Timeout: config.Duration(time.Hour)},
		}},
	}
	for i := range config.Config.Sinks {
		require.NoError(t, config.Config.Sinks[i].Validate())
	}
	require.NoError(t, config.InitHostname())
}

func TestAgentDeliversSelfMetrics(t *testing.T) {
	collector, addr := newUDPListener(t)
	initAgentConfig(t, addr)

	ag := NewAgent()
	require.NoError(t, ag.Start())
	defer ag.Stop()

	// the first gather happens before any pipeline series exist, so the
	// info gauge arrives alone
	want := "statsgraf_info:1|g|#agent_hostname:test-host,version:unknown\n"
	assert.Equal(t, want, readDatagram(t, collector))
}

func TestAgentReload(t *testing.T) {
	collector, addr := newUDPListener(t)
	initAgentConfig(t, addr)

	ag := NewAgent()
	require.NoError(t, ag.Start())
	readDatagram(t, collector)

	ag.Reload()
	defer ag.Stop()

	assert.Contains(t, readDatagram(t, collector), "statsgraf_info:1|g")
}

func TestAgentStartFailsOnBadSink(t *testing.T) {
	config.Config = &config.ConfigType{
		Sinks: []config.SinkConfig{{
			Name:    "broken",
			Mode:    "carrier-pigeon",
			Address: "localhost:8125",
		}},
	}
	require.NoError(t, config.InitHostname())

	ag := NewAgent()
	assert.Error(t, ag.Start())
}

func TestAgentStopIsIdempotentBeforeStart(t *testing.T) {
	ag := NewAgent()
	ag.Stop()
}
