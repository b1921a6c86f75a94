package sinks

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"flashcat.cloud/statsgraf/config"
	"flashcat.cloud/statsgraf/pkg/dnsx"
	"flashcat.cloud/statsgraf/pkg/filter"
	"flashcat.cloud/statsgraf/pkg/obs"
	"flashcat.cloud/statsgraf/sinks/statsd"
	"flashcat.cloud/statsgraf/sinks/util"
	"flashcat.cloud/statsgraf/types"
)

const agentHostnameLabelKey = "agent_hostname"

type Instance struct {
	sink     *statsd.Sink
	namepass filter.Filter
	namedrop filter.Filter
}

func (ins *Instance) wants(name string) bool {
	if ins.namepass != nil && !ins.namepass.Match(name) {
		return false
	}
	if ins.namedrop != nil && ins.namedrop.Match(name) {
		return false
	}
	return true
}

// Manager fans events out to every configured sink. Enrichment (global
// labels, agent_hostname) happens once here, the sinks only encode and ship.
type Manager struct {
	instances []*Instance
	labels    map[string]string
	hostname  string
	observer  obs.Observer
}

var manager *Manager

func Init(observer obs.Observer) error {
	if observer == nil {
		observer = obs.Nop()
	}

	var resolver dnsx.Resolver
	if servers := config.Config.Global.DNSServers; len(servers) > 0 {
		resolver = dnsx.NewServerResolver(servers, 5*time.Second)
		log.Println("I! resolving sink hosts via", strings.Join(servers, ","))
	}

	hostname := ""
	if !config.Config.Global.OmitHostname {
		hostname = config.Config.GetHostname()
	}

	m := &Manager{
		labels:   config.GlobalLabels(),
		hostname: hostname,
		observer: observer,
	}

	for _, sc := range config.Config.Sinks {
		namepass, err := filter.Compile(sc.NamePass)
		if err != nil {
			return fmt.Errorf("sink %s: bad namepass: %v", sc.Name, err)
		}
		namedrop, err := filter.Compile(sc.NameDrop)
		if err != nil {
			return fmt.Errorf("sink %s: bad namedrop: %v", sc.Name, err)
		}

		name := sc.Name
		sink, err := statsd.New(statsd.Options{
			Name:      name,
			Mode:      sc.Mode,
			Address:   sc.Address,
			Namespace: sc.Namespace,
			ChanSize:  sc.ChanSize,
			Batch: util.BatchSettings{
				MaxBytes:  sc.Batch.MaxBytes,
				MaxEvents: sc.Batch.MaxEvents,
				Timeout:   sc.Batch.TimeoutDuration(),
			},
			Resolver: resolver,
			Observer: observer,
			Acker: util.AckFunc(func(n int) {
				observer.EventsAcked(name, n)
			}),
		})
		if err != nil {
			return err
		}

		m.instances = append(m.instances, &Instance{
			sink:     sink,
			namepass: namepass,
			namedrop: namedrop,
		})
		log.Println("I! sink started:", name)
	}

	manager = m
	return nil
}

func Stop() {
	if manager == nil {
		return
	}
	for _, ins := range manager.instances {
		ins.sink.Stop()
	}
}

// Healthcheck probes every sink destination once.
func Healthcheck(ctx context.Context) error {
	if manager == nil {
		return fmt.Errorf("sinks not initialized")
	}
	for _, ins := range manager.instances {
		if err := ins.sink.Healthcheck(ctx); err != nil {
			return fmt.Errorf("sink %s: %v", ins.sink.Name(), err)
		}
	}
	return nil
}

// Pendings reports the queue depth per sink.
func Pendings() map[string]int {
	ret := make(map[string]int)
	if manager == nil {
		return ret
	}
	for _, ins := range manager.instances {
		ret[ins.sink.Name()] = ins.sink.Pending()
	}
	return ret
}

// WriteMetric hands one event to every sink that wants it. A sink whose
// queue is saturated refuses the event, the aggregated refusal is returned
// so ingest layers can push back.
func WriteMetric(m *types.Metric) error {
	if config.Config.TestMode {
		fmt.Println(m.String())
		return nil
	}
	if config.Config.DebugMode {
		log.Println("D!", m.String())
	}

	if manager == nil {
		return fmt.Errorf("sinks not initialized")
	}

	manager.enrich(m)

	var refused []string
	for _, ins := range manager.instances {
		if !ins.wants(m.Name) {
			continue
		}
		if err := ins.sink.Submit(m); err != nil {
			refused = append(refused, ins.sink.Name())
			continue
		}
		manager.observer.EventsAccepted(ins.sink.Name(), 1)
	}

	if len(refused) > 0 {
		return fmt.Errorf("sink %s: %w", strings.Join(refused, ","), util.ErrNotReady)
	}
	return nil
}

func WriteMetrics(ms []*types.Metric) error {
	var firstErr error
	for _, m := range ms {
		if err := WriteMetric(m); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Manager) enrich(event *types.Metric) {
	if m.hostname != "" {
		event.AddTag(agentHostnameLabelKey, m.hostname)
	}
	for k, v := range m.labels {
		event.AddTag(k, v)
	}
}
