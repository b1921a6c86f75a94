package statsd

import (
	"strconv"
	"strings"

	"flashcat.cloud/statsgraf/pkg/tagx"
	"flashcat.cloud/statsgraf/types"
)

// Encode renders one metric event as a statsd wire message. Multi-value
// events (distributions, sets) become one message with a pipe-joined segment
// group per value. A kind/value combination the protocol cannot express
// yields nil, the caller decides whether that is worth counting.
func Encode(m *types.Metric, namespace string) []byte {
	var segments []string

	tagSegment := ""
	if len(m.Tags) > 0 {
		tagSegment = "#" + EncodeTags(m.Tags)
	}

	push := func(value, typeCode, rate string) {
		segments = append(segments, m.Name+":"+value, typeCode)
		if rate != "" {
			segments = append(segments, rate)
		}
		if tagSegment != "" {
			segments = append(segments, tagSegment)
		}
	}

	switch m.Kind {
	case types.Incremental:
		switch v := m.Value.(type) {
		case types.Counter:
			push(formatFloat(v.Value), "c", "")
		case types.Gauge:
			// incremental gauges always carry an explicit sign, that is
			// how a decoder tells them apart from absolute ones
			push(formatSignedFloat(v.Value), "g", "")
		case types.Distribution:
			typeCode := "h"
			if v.Statistic == types.Summary {
				typeCode = "d"
			}
			for i, value := range v.Values {
				rate := ""
				if v.SampleRates[i] != 1 {
					rate = "@" + formatFloat(1/float64(v.SampleRates[i]))
				}
				push(formatFloat(value), typeCode, rate)
			}
		case types.Set:
			for _, value := range v.Values {
				push(value, "s", "")
			}
		}
	case types.Absolute:
		if v, ok := m.Value.(types.Gauge); ok {
			push(formatFloat(v.Value), "g", "")
		}
	}

	if len(segments) == 0 {
		return nil
	}

	message := strings.Join(segments, "|")
	if namespace != "" {
		message = namespace + "." + message
	}
	return append([]byte(message), '\n')
}

// EncodeTags renders the tag map in sorted key order. A value of the literal
// string "true" encodes as the bare tag name.
func EncodeTags(tags map[string]string) string {
	keys := tagx.SortedKeys(tags)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		if v := tags[k]; v != "true" {
			sb.WriteByte(':')
			sb.WriteString(v)
		}
	}
	return sb.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatSignedFloat(v float64) string {
	if v < 0 {
		return formatFloat(v)
	}
	return "+" + formatFloat(v)
}
