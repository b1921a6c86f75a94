package influx

import (
	"log"
	"time"

	"github.com/influxdata/line-protocol/v2/lineprotocol"

	"flashcat.cloud/statsgraf/types"
)

// Parser decodes influx line protocol. Every numeric field becomes one
// absolute gauge named measurement_field, timestamps are discarded because
// the statsd wire has no place for them.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(input []byte, mlist *types.MetricList) error {
	decoder := lineprotocol.NewDecoderWithBytes(input)

	for decoder.Next() {
		if err := nextMetric(decoder, mlist); err != nil {
			log.Println("E! failed to parse influx line:", err)
			continue
		}
	}

	return nil
}

func nextMetric(decoder *lineprotocol.Decoder, mlist *types.MetricList) error {
	measurement, err := decoder.Measurement()
	if err != nil {
		return err
	}
	name := string(measurement)

	var tags map[string]string
	for {
		key, value, err := decoder.NextTag()
		if err != nil {
			return err
		}
		if key == nil {
			break
		}
		if tags == nil {
			tags = make(map[string]string)
		}
		tags[string(key)] = string(value)
	}

	for {
		key, value, err := decoder.NextField()
		if err != nil {
			return err
		}
		if key == nil {
			break
		}
		if fv, ok := fieldToFloat(value); ok {
			mlist.PushFront(types.NewAbsoluteGauge(name+"_"+string(key), fv, tags))
		}
	}

	if _, err := decoder.Time(lineprotocol.Nanosecond, time.Time{}); err != nil {
		return err
	}

	return nil
}

func fieldToFloat(v lineprotocol.Value) (float64, bool) {
	switch x := v.Interface().(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		// string fields have no numeric meaning on the statsd wire
		return 0, false
	}
}
