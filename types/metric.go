package types

import (
	"fmt"
	"strings"

	"flashcat.cloud/statsgraf/pkg/tagx"
)

// MetricKind tells whether a value is a delta to merge into prior state or a
// snapshot that replaces it.
type MetricKind int

const (
	Incremental MetricKind = iota
	Absolute
)

func (k MetricKind) String() string {
	switch k {
	case Incremental:
		return "incremental"
	case Absolute:
		return "absolute"
	default:
		return "unknown"
	}
}

// Statistic selects how distribution values are aggregated downstream.
type Statistic int

const (
	Histogram Statistic = iota
	Summary
)

func (s Statistic) String() string {
	switch s {
	case Histogram:
		return "histogram"
	case Summary:
		return "summary"
	default:
		return "unknown"
	}
}

// MetricValue is the closed set of value shapes an event can carry.
type MetricValue interface {
	metricValue()
}

type Counter struct {
	Value float64
}

type Gauge struct {
	Value float64
}

type Distribution struct {
	Values      []float64
	SampleRates []uint32
	Statistic   Statistic
}

type Set struct {
	Values []string
}

func (Counter) metricValue()      {}
func (Gauge) metricValue()        {}
func (Distribution) metricValue() {}
func (Set) metricValue()          {}

// Metric is one telemetry event on its way to a collector. It is built by a
// source, encoded exactly once and not retained afterwards.
type Metric struct {
	Name string            `json:"name"`
	Tags map[string]string `json:"tags"`
	Kind MetricKind        `json:"kind"`

	Value MetricValue `json:"-"`
}

// characters that would corrupt the line protocol if they appeared in a
// metric name or tag key
var (
	nameReplacer   = strings.NewReplacer(":", "_", "|", "_", "@", "_", "#", "_", "\n", "_")
	tagKeyReplacer = strings.NewReplacer(":", "_", "|", "_", ",", "_", "#", "_", "\n", "_")
)

func newMetric(name string, kind MetricKind, value MetricValue, tags []map[string]string) *Metric {
	m := &Metric{
		Name:  nameReplacer.Replace(name),
		Tags:  make(map[string]string),
		Kind:  kind,
		Value: value,
	}

	for i := 0; i < len(tags); i++ {
		for k, v := range tags[i] {
			m.Tags[tagKeyReplacer.Replace(k)] = v
		}
	}

	return m
}

func NewCounter(name string, value float64, tags ...map[string]string) *Metric {
	return newMetric(name, Incremental, Counter{Value: value}, tags)
}

// NewGauge builds an incremental gauge, i.e. a signed adjustment of the
// collector-side value.
func NewGauge(name string, value float64, tags ...map[string]string) *Metric {
	return newMetric(name, Incremental, Gauge{Value: value}, tags)
}

// NewAbsoluteGauge builds a gauge snapshot that replaces the collector-side
// value.
func NewAbsoluteGauge(name string, value float64, tags ...map[string]string) *Metric {
	return newMetric(name, Absolute, Gauge{Value: value}, tags)
}

// NewDistribution pairs each value with its sample rate. A rate of zero is
// treated as an unsampled observation (rate 1).
func NewDistribution(name string, values []float64, rates []uint32, statistic Statistic, tags ...map[string]string) *Metric {
	if len(rates) < len(values) {
		padded := make([]uint32, len(values))
		copy(padded, rates)
		rates = padded
	}
	for i := range rates {
		if rates[i] == 0 {
			rates[i] = 1
		}
	}
	return newMetric(name, Incremental, Distribution{
		Values:      values,
		SampleRates: rates[:len(values)],
		Statistic:   statistic,
	}, tags)
}

func NewSet(name string, values []string, tags ...map[string]string) *Metric {
	return newMetric(name, Incremental, Set{Values: values}, tags)
}

// Validate reports whether the event is structurally sound enough to encode.
func (m *Metric) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("metric name is empty")
	}
	if m.Value == nil {
		return fmt.Errorf("metric %s carries no value", m.Name)
	}
	if d, ok := m.Value.(Distribution); ok {
		if len(d.Values) != len(d.SampleRates) {
			return fmt.Errorf("metric %s: %d values but %d sample rates", m.Name, len(d.Values), len(d.SampleRates))
		}
	}
	return nil
}

func (m *Metric) Clone() *Metric {
	c := *m
	c.Tags = tagx.Copy(m.Tags)
	return &c
}

// AddTag sets a tag without overwriting one already present, so event tags
// win over global labels.
func (m *Metric) AddTag(key, value string) {
	if m.Tags == nil {
		m.Tags = make(map[string]string)
	}
	if _, has := m.Tags[key]; !has {
		m.Tags[key] = value
	}
}

func (m *Metric) String() string {
	var val string
	switch v := m.Value.(type) {
	case Counter:
		val = fmt.Sprintf("counter(%v)", v.Value)
	case Gauge:
		val = fmt.Sprintf("gauge(%v)", v.Value)
	case Distribution:
		val = fmt.Sprintf("%s(%v)", v.Statistic, v.Values)
	case Set:
		val = fmt.Sprintf("set(%v)", v.Values)
	default:
		val = "none"
	}

	var sb strings.Builder
	sb.WriteString(m.Name)
	for _, k := range m.SortedTagKeys() {
		sb.WriteString(" ")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(m.Tags[k])
	}
	return fmt.Sprintf("%s %s %s", sb.String(), m.Kind, val)
}

// SortedTagKeys returns the tag keys in the deterministic order encoders
// must use.
func (m *Metric) SortedTagKeys() []string {
	return tagx.SortedKeys(m.Tags)
}
