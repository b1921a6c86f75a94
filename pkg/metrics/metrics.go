// Package metrics converts prometheus metric families into delivery events.
// Cumulative series map onto absolute gauges, the receiving statsd collector
// keeps the last value per series.
package metrics

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"

	"github.com/matttproud/golang_protobuf_extensions/pbutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"flashcat.cloud/statsgraf/types"
)

// MakeLabels merges the sample's own label pairs over the given base labels.
func MakeLabels(m *dto.Metric, labels map[string]string) map[string]string {
	result := map[string]string{}
	for key, value := range labels {
		result[key] = value
	}
	for _, pair := range m.GetLabel() {
		result[pair.GetName()] = pair.GetValue()
	}
	return result
}

func HandleSummary(m *dto.Metric, tags map[string]string, metricName string, mlist *types.MetricList) {
	mlist.PushFront(types.NewAbsoluteGauge(metricName+"_count", float64(m.GetSummary().GetSampleCount()), tags))
	mlist.PushFront(types.NewAbsoluteGauge(metricName+"_sum", m.GetSummary().GetSampleSum(), tags))

	for _, q := range m.GetSummary().Quantile {
		// quantiles are NaN until the window sees an observation
		if math.IsNaN(q.GetValue()) {
			continue
		}
		mlist.PushFront(types.NewAbsoluteGauge(metricName, q.GetValue(), tags, map[string]string{"quantile": fmt.Sprint(q.GetQuantile())}))
	}
}

func HandleHistogram(m *dto.Metric, tags map[string]string, metricName string, mlist *types.MetricList) {
	mlist.PushFront(types.NewAbsoluteGauge(metricName+"_count", float64(m.GetHistogram().GetSampleCount()), tags))
	mlist.PushFront(types.NewAbsoluteGauge(metricName+"_sum", m.GetHistogram().GetSampleSum(), tags))

	for _, b := range m.GetHistogram().Bucket {
		le := fmt.Sprint(b.GetUpperBound())
		mlist.PushFront(types.NewAbsoluteGauge(metricName+"_bucket", float64(b.GetCumulativeCount()), tags, map[string]string{"le": le}))
	}
}

func HandleGaugeCounter(m *dto.Metric, tags map[string]string, metricName string, mlist *types.MetricList) {
	value, ok := sampleValue(m)
	if !ok {
		return
	}
	mlist.PushFront(types.NewAbsoluteGauge(metricName, value, tags))
}

func sampleValue(m *dto.Metric) (float64, bool) {
	var v float64
	switch {
	case m.Gauge != nil:
		v = m.GetGauge().GetValue()
	case m.Counter != nil:
		v = m.GetCounter().GetValue()
	case m.Untyped != nil:
		v = m.GetUntyped().GetValue()
	default:
		return 0, false
	}
	return v, !math.IsNaN(v)
}

// Parse decodes an exposition payload, either text format or delimited
// protobuf depending on the Content-Type header.
func Parse(buf []byte, header http.Header) (map[string]*dto.MetricFamily, error) {
	// gather even if the buffer begins with a newline
	buf = bytes.TrimPrefix(buf, []byte("\n"))
	reader := bufio.NewReader(bytes.NewBuffer(buf))

	metricFamilies := make(map[string]*dto.MetricFamily)
	mediatype, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err == nil && mediatype == "application/vnd.google.protobuf" &&
		params["encoding"] == "delimited" &&
		params["proto"] == "io.prometheus.client.MetricFamily" {
		for {
			mf := &dto.MetricFamily{}
			if _, ierr := pbutil.ReadDelimited(reader, mf); ierr != nil {
				if ierr == io.EOF {
					break
				}
				return nil, fmt.Errorf("reading metric family protocol buffer failed: %s", ierr)
			}
			metricFamilies[mf.GetName()] = mf
		}
	} else {
		var parser expfmt.TextParser
		metricFamilies, err = parser.TextToMetricFamilies(reader)
		if err != nil {
			return nil, fmt.Errorf("reading text format failed: %s", err)
		}
	}
	return metricFamilies, nil
}
