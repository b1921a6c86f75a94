package agent

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shirou/gopsutil/v3/process"

	"flashcat.cloud/statsgraf/config"
	"flashcat.cloud/statsgraf/pkg/metrics"
	"flashcat.cloud/statsgraf/sinks"
	"flashcat.cloud/statsgraf/types"
)

const defaultSelfMetricsInterval = 10 * time.Second

// selfMetrics pushes the bridge's own series through the delivery pipeline,
// the downstream collector sees the bridge's health next to the traffic it
// carries.
type selfMetrics struct {
	gatherer prometheus.Gatherer
	proc     *process.Process
	interval time.Duration
}

func newSelfMetrics(gatherer prometheus.Gatherer, interval config.Duration) *selfMetrics {
	d := time.Duration(interval)
	if d <= 0 {
		d = defaultSelfMetricsInterval
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Println("W! failed to open own process for stats:", err)
	}

	return &selfMetrics{gatherer: gatherer, proc: proc, interval: d}
}

func (s *selfMetrics) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.push()
		}
	}
}

func (s *selfMetrics) push() {
	mfs, err := s.gatherer.Gather()
	if err != nil {
		log.Println("E! failed to gather self metrics:", err)
		return
	}

	mlist := types.NewMetricList()
	mlist.PushFront(types.NewAbsoluteGauge("statsgraf_info", 1, map[string]string{"version": config.Version}))

	for _, mf := range mfs {
		metricName := mf.GetName()
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

	s.pushProc(mlist)

	// self stats are droppable, a saturated sink already shows up in them
	if err := sinks.WriteMetrics(mlist.PopBackAll()); err != nil && config.Config.DebugMode {
		log.Println("D! self metrics refused:", err)
	}
}

func (s *selfMetrics) pushProc(mlist *types.MetricList) {
	if s.proc == nil {
		return
	}

	if v, err := s.proc.Percent(0); err == nil {
		mlist.PushFront(types.NewAbsoluteGauge("statsgraf_proc_cpu_usage", v, nil))
	}
	if minfo, err := s.proc.MemoryInfo(); err == nil {
		mlist.PushFront(types.NewAbsoluteGauge("statsgraf_proc_mem_rss", float64(minfo.RSS), nil))
	}
}
