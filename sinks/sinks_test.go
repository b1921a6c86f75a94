package sinks

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashcat.cloud/statsgraf/config"
	"flashcat.cloud/statsgraf/pkg/obs"
	"flashcat.cloud/statsgraf/sinks/util"
	"flashcat.cloud/statsgraf/types"
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

func noDatagram(t *testing.T, conn *net.UDPConn) bool {
	t.Helper()
	buf := make([]byte, 65536)
	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := conn.ReadFromUDP(buf)
	return err != nil
}

func initTestConfig(t *testing.T, sinks ...config.SinkConfig) {
	t.Helper()
	config.Config = &config.ConfigType{
		Global: config.Global{
			Hostname: "test-host",
			Labels:   map[string]string{"env": "prod"},
		},
		Sinks: sinks,
	}
	for i := range config.Config.Sinks {
		require.NoError(t, config.Config.Sinks[i].Validate())
	}
	require.NoError(t, config.InitHostname())
}

func TestWriteMetricFansOutThroughFilters(t *testing.T) {
	connA, addrA := newUDPListener(t)
	connB, addrB := newUDPListener(t)

	initTestConfig(t,
		config.SinkConfig{
			Name:     "pass-only",
			Mode:     "udp",
			Address:  addrA,
			NamePass: []string{"app_*"},
			Batch:    config.BatchConfig{MaxEvents: 1, Timeout: config.Duration(time.Hour)},
		},
		config.SinkConfig{
			Name:     "drop-secrets",
			Mode:     "udp",
			Address:  addrB,
			NameDrop: []string{"secret*"},
			Batch:    config.BatchConfig{MaxEvents: 1, Timeout: config.Duration(time.Hour)},
		},
	)

	rec := obs.NewRecorder()
	require.NoError(t, Init(rec))
	defer Stop()

	require.NoError(t, WriteMetric(types.NewCounter("app_requests", 1)))
	want := "app_requests:1|c|#agent_hostname:test-host,env:prod\n"
	assert.Equal(t, want, readDatagram(t, connA))
	assert.Equal(t, want, readDatagram(t, connB))

	require.NoError(t, WriteMetric(types.NewCounter("secret_token_reads", 1)))
	assert.True(t, noDatagram(t, connA))
	assert.True(t, noDatagram(t, connB))

	require.NoError(t, WriteMetric(types.NewCounter("other", 1)))
	assert.True(t, noDatagram(t, connA))
	assert.Equal(t, "other:1|c|#agent_hostname:test-host,env:prod\n", readDatagram(t, connB))

	assert.Equal(t, 3, rec.Accepted())
}

func TestEventTagsWinOverGlobalLabels(t *testing.T) {
	conn, addr := newUDPListener(t)

	initTestConfig(t, config.SinkConfig{
		Name:    "test",
		Mode:    "udp",
		Address: addr,
		Batch:   config.BatchConfig{MaxEvents: 1, Timeout: config.Duration(time.Hour)},
	})

	require.NoError(t, Init(nil))
	defer Stop()

	m := types.NewCounter("hits", 1, map[string]string{"env": "staging"})
	require.NoError(t, WriteMetric(m))
	assert.Equal(t, "hits:1|c|#agent_hostname:test-host,env:staging\n", readDatagram(t, conn))
}

func TestWriteMetricReportsSaturatedSinks(t *testing.T) {
	initTestConfig(t, config.SinkConfig{
		Name:     "stalled",
		Mode:     "udp",
		Address:  "statsgraf-test.invalid:8125",
		ChanSize: 1,
		Batch:    config.BatchConfig{MaxEvents: 1, Timeout: config.Duration(time.Hour)},
	})

	require.NoError(t, Init(obs.NewRecorder()))
	defer Stop()

	// the loop parks on the unresolvable destination with one event in
	// hand. The next event fills the channel and the one after is refused
	require.NoError(t, WriteMetric(types.NewCounter("a", 1)))
	require.Eventually(t, func() bool {
		return Pendings()["stalled"] == 0
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, WriteMetric(types.NewCounter("b", 1)))
	assert.ErrorIs(t, WriteMetric(types.NewCounter("c", 1)), util.ErrNotReady)
}

func TestPendings(t *testing.T) {
	_, addr := newUDPListener(t)
	initTestConfig(t, config.SinkConfig{
		Name:    "test",
		Mode:    "udp",
		Address: addr,
	})

	require.NoError(t, Init(nil))
	defer Stop()

	assert.Equal(t, map[string]int{"test": 0}, Pendings())
}
