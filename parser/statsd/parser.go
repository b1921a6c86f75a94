package statsd

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"flashcat.cloud/statsgraf/types"
)

// Parser decodes statsd text lines, one metric per line:
//
//	name:value|type[|@rate][|#tag1:v1,tag2]
//
// Counters are scaled by the sample rate while distributions carry it along.
// Gauges with an explicit sign are deltas, unsigned ones are snapshots.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(input []byte, mlist *types.MetricList) error {
	for _, line := range strings.Split(string(input), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		m, err := parseLine(line)
		if err != nil {
			log.Println("E! failed to parse statsd line:", line, err)
			continue
		}
		mlist.PushFront(m)
	}
	return nil
}

func parseLine(line string) (*types.Metric, error) {
	parts := strings.Split(line, "|")
	if len(parts) < 2 {
		return nil, fmt.Errorf("missing type part")
	}

	name, rawValue, found := strings.Cut(parts[0], ":")
	if !found {
		return nil, fmt.Errorf("missing value part")
	}
	if name == "" {
		return nil, fmt.Errorf("empty metric name")
	}
	name = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return '_'
		}
		return r
	}, name)

	rate := 1.0
	var tags map[string]string
	for _, part := range parts[2:] {
		switch {
		case strings.HasPrefix(part, "@"):
			r, err := strconv.ParseFloat(part[1:], 64)
			if err != nil || r <= 0 {
				return nil, fmt.Errorf("bad sample rate %q", part)
			}
			rate = r
		case strings.HasPrefix(part, "#"):
			tags = parseTags(part[1:])
		default:
			return nil, fmt.Errorf("unexpected part %q", part)
		}
	}

	switch parts[1] {
	case "c":
		v, err := strconv.ParseFloat(rawValue, 64)
		if err != nil {
			return nil, fmt.Errorf("bad counter value %q", rawValue)
		}
		return types.NewCounter(name, v/rate, tags), nil

	case "g":
		v, err := strconv.ParseFloat(rawValue, 64)
		if err != nil {
			return nil, fmt.Errorf("bad gauge value %q", rawValue)
		}
		if strings.HasPrefix(rawValue, "+") || strings.HasPrefix(rawValue, "-") {
			return types.NewGauge(name, v, tags), nil
		}
		return types.NewAbsoluteGauge(name, v, tags), nil

	case "h", "ms", "d":
		v, err := strconv.ParseFloat(rawValue, 64)
		if err != nil {
			return nil, fmt.Errorf("bad distribution value %q", rawValue)
		}
		statistic := types.Histogram
		if parts[1] == "d" {
			statistic = types.Summary
		}
		return types.NewDistribution(name, []float64{v}, []uint32{uint32(1/rate + 0.5)}, statistic, tags), nil

	case "s":
		return types.NewSet(name, []string{rawValue}, tags), nil

	default:
		return nil, fmt.Errorf("unknown metric type %q", parts[1])
	}
}

func parseTags(s string) map[string]string {
	if s == "" {
		return nil
	}
	tags := make(map[string]string)
	for _, item := range strings.Split(s, ",") {
		if item == "" {
			continue
		}
		if k, v, found := strings.Cut(item, ":"); found {
			tags[k] = v
		} else {
			// a bare tag name stands for the value "true"
			tags[item] = "true"
		}
	}
	return tags
}
