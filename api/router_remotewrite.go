package api

import (
	"log"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/common/model"
	"github.com/prometheus/prometheus/prompb"

	"flashcat.cloud/statsgraf/sinks"
	"flashcat.cloud/statsgraf/types"
)

func remoteWrite(c *gin.Context) {
	req, err := DecodeWriteRequest(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	count := len(req.Timeseries)
	if count == 0 {
		c.String(http.StatusBadRequest, "payload empty")
		return
	}

	ms := make([]*types.Metric, 0, count)
	for i := 0; i < count; i++ {
		if duplicateLabelKey(req.Timeseries[i]) {
			continue
		}

		var name string
		tags := make(map[string]string)
		for _, label := range req.Timeseries[i].Labels {
			if label.Name == model.MetricNameLabel {
				name = label.Value
				continue
			}
			tags[label.Name] = label.Value
		}
		if name == "" {
			log.Println("E! remote write series carries no name label, dropping")
			continue
		}

		for _, sample := range req.Timeseries[i].Samples {
			// stale markers and other NaNs have no statsd representation
			if math.IsNaN(sample.Value) {
				continue
			}
			ms = append(ms, types.NewAbsoluteGauge(name, sample.Value, tags))
		}
	}

	if len(ms) == 0 {
		c.String(http.StatusBadRequest, "no convertible samples in payload")
		return
	}

	respondWrite(c, sinks.WriteMetrics(ms))
}

func duplicateLabelKey(series prompb.TimeSeries) bool {
	labelKeys := make(map[string]struct{})

	for j := 0; j < len(series.Labels); j++ {
		if _, has := labelKeys[series.Labels[j].Name]; has {
			return true
		} else {
			labelKeys[series.Labels[j].Name] = struct{}{}
		}
	}

	return false
}
