package prometheus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashcat.cloud/statsgraf/types"
)

func parseAll(t *testing.T, input string) map[string]*types.Metric {
	t.Helper()
	mlist := types.NewMetricList()
	require.NoError(t, NewParser(nil).Parse([]byte(input), mlist))

	byName := make(map[string]*types.Metric)
	for _, m := range mlist.PopBackAll() {
		byName[m.Name] = m
	}
	return byName
}

func TestParseCounterAndGauge(t *testing.T) {
	input := `# TYPE http_requests_total counter
http_requests_total{code="200"} 1027
# TYPE queue_depth gauge
queue_depth 42
`
	ms := parseAll(t, input)
	require.Len(t, ms, 2)

	counter := ms["http_requests_total"]
	require.NotNil(t, counter)
	assert.Equal(t, types.Absolute, counter.Kind)
	assert.Equal(t, types.Gauge{Value: 1027}, counter.Value)
	assert.Equal(t, map[string]string{"code": "200"}, counter.Tags)

	gauge := ms["queue_depth"]
	require.NotNil(t, gauge)
	assert.Equal(t, types.Gauge{Value: 42}, gauge.Value)
}

func TestParseSummary(t *testing.T) {
	input := `# TYPE rpc_duration_seconds summary
rpc_duration_seconds{quantile="0.5"} 0.05
rpc_duration_seconds_sum 1.7
rpc_duration_seconds_count 26
`
	mlist := types.NewMetricList()
	require.NoError(t, NewParser(nil).Parse([]byte(input), mlist))
	ms := mlist.PopBackAll()
	require.Len(t, ms, 3)

	var quantile *types.Metric
	for _, m := range ms {
		if m.Tags["quantile"] == "0.5" {
			quantile = m
		}
	}
	require.NotNil(t, quantile)
	assert.Equal(t, "rpc_duration_seconds", quantile.Name)
	assert.Equal(t, types.Gauge{Value: 0.05}, quantile.Value)
}

func TestParseHistogramBuckets(t *testing.T) {
	input := `# TYPE latency histogram
latency_bucket{le="0.1"} 5
latency_bucket{le="+Inf"} 9
latency_sum 0.8
latency_count 9
`
	mlist := types.NewMetricList()
	require.NoError(t, NewParser(nil).Parse([]byte(input), mlist))
	ms := mlist.PopBackAll()
	require.Len(t, ms, 4)

	buckets := 0
	for _, m := range ms {
		if m.Name == "latency_bucket" {
			buckets++
			assert.NotEmpty(t, m.Tags["le"])
		}
	}
	assert.Equal(t, 2, buckets)
}

func TestParseRejectsGarbage(t *testing.T) {
	mlist := types.NewMetricList()
	assert.Error(t, NewParser(nil).Parse([]byte("{{{ not exposition"), mlist))
}
