package statsd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	statsdparser "flashcat.cloud/statsgraf/parser/statsd"
	"flashcat.cloud/statsgraf/types"
)

func testTags() map[string]string {
	return map[string]string{
		"normal_tag": "value",
		"true_tag":   "true",
		"empty_tag":  "",
	}
}

func TestEncodeTags(t *testing.T) {
	assert.Equal(t, "empty_tag:,normal_tag:value,true_tag", EncodeTags(testTags()))
	assert.Equal(t, "", EncodeTags(nil))
}

func TestEncodeCounter(t *testing.T) {
	assert.Equal(t, "requests:1.5|c\n", string(Encode(types.NewCounter("requests", 1.5), "")))
	assert.Equal(t, "vector.requests:1|c\n", string(Encode(types.NewCounter("requests", 1), "vector")))
	assert.Equal(t,
		"requests:2|c|#empty_tag:,normal_tag:value,true_tag\n",
		string(Encode(types.NewCounter("requests", 2, testTags()), "")))
}

func TestEncodeGauge(t *testing.T) {
	cases := []struct {
		name   string
		metric *types.Metric
		want   string
	}{
		{"incremental positive carries a sign", types.NewGauge("temp", 1.5), "temp:+1.5|g\n"},
		{"incremental negative", types.NewGauge("temp", -1.5), "temp:-1.5|g\n"},
		{"incremental zero", types.NewGauge("temp", 0), "temp:+0|g\n"},
		{"absolute is unsigned", types.NewAbsoluteGauge("temp", 1.5), "temp:1.5|g\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, string(Encode(c.metric, "")))
		})
	}
}

func TestEncodeDistribution(t *testing.T) {
	m := types.NewDistribution("latency", []float64{1.5, 2.5}, []uint32{1, 10}, types.Histogram)
	assert.Equal(t, "latency:1.5|h|latency:2.5|h|@0.1\n", string(Encode(m, "")))

	m = types.NewDistribution("latency", []float64{3}, []uint32{1}, types.Summary, testTags())
	assert.Equal(t, "latency:3|d|#empty_tag:,normal_tag:value,true_tag\n", string(Encode(m, "")))
}

func TestEncodeSet(t *testing.T) {
	m := types.NewSet("users", []string{"abc", "def"})
	assert.Equal(t, "users:abc|s|users:def|s\n", string(Encode(m, "")))
}

func TestEncodeNamespacePrefix(t *testing.T) {
	m := types.NewDistribution("latency", []float64{1, 2}, []uint32{1, 1}, types.Histogram)
	// the namespace prefixes the message once, not every segment group
	assert.Equal(t, "app.latency:1|h|latency:2|h\n", string(Encode(m, "app")))
}

func TestEncodeUnsupportedShapesYieldNothing(t *testing.T) {
	unsupported := []*types.Metric{
		{Name: "c", Kind: types.Absolute, Value: types.Counter{Value: 1}},
		{Name: "d", Kind: types.Absolute, Value: types.Distribution{Values: []float64{1}, SampleRates: []uint32{1}}},
		{Name: "s", Kind: types.Absolute, Value: types.Set{Values: []string{"x"}}},
	}
	for _, m := range unsupported {
		assert.Nil(t, Encode(m, "app"))
	}
}

// Every encodable shape must survive a trip through the statsd parser.
func TestEncodeRoundTrip(t *testing.T) {
	metrics := []*types.Metric{
		types.NewCounter("counter", 1.5, testTags()),
		types.NewGauge("gauge", -1.5, testTags()),
		types.NewAbsoluteGauge("gauge", 1.5, testTags()),
		types.NewDistribution("distribution", []float64{1.5}, []uint32{1}, types.Histogram, testTags()),
		types.NewDistribution("distribution", []float64{1.5}, []uint32{1}, types.Summary, testTags()),
		types.NewSet("set", []string{"abc"}, testTags()),
	}

	p := statsdparser.NewParser()
	for _, original := range metrics {
		frame := Encode(original, "")
		require.NotNil(t, frame)

		mlist := types.NewMetricList()
		require.NoError(t, p.Parse(frame, mlist))
		require.Equal(t, 1, mlist.Len(), "frame %q", frame)
		assert.Equal(t, original, mlist.PopBack(), "frame %q", frame)
	}
}
