package prometheus

import (
	"net/http"

	dto "github.com/prometheus/client_model/go"

	"flashcat.cloud/statsgraf/pkg/metrics"
	"flashcat.cloud/statsgraf/types"
)

// Parser decodes a prometheus exposition payload. The request header is kept
// around to tell delimited protobuf from text format.
type Parser struct {
	Header http.Header
}

func NewParser(header http.Header) *Parser {
	return &Parser{Header: header}
}

func (p *Parser) Parse(buf []byte, mlist *types.MetricList) error {
	metricFamilies, err := metrics.Parse(buf, p.Header)
	if err != nil {
		return err
	}

	for metricName, mf := range metricFamilies {
		for _, m := range mf.Metric {
			tags := metrics.MakeLabels(m, nil)

			switch mf.GetType() {
			case dto.MetricType_SUMMARY:
				metrics.HandleSummary(m, tags, metricName, mlist)
			case dto.MetricType_HISTOGRAM:
				metrics.HandleHistogram(m, tags, metricName, mlist)
			default:
				metrics.HandleGaugeCounter(m, tags, metricName, mlist)
			}
		}
	}

	return nil
}
