package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PromObserver exports pipeline events as prometheus series, served by the
// agent's /metrics route.
type PromObserver struct {
	accepted      *prometheus.CounterVec
	acked         *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	encodeSkipped *prometheus.CounterVec
	batches       *prometheus.CounterVec
	sentBytes     *prometheus.CounterVec
	sendErrors    *prometheus.CounterVec
	resolves      *prometheus.CounterVec
	resolveErrors *prometheus.CounterVec
	backoffs      *prometheus.CounterVec
	inflight      *prometheus.GaugeVec
}

func NewPromObserver(reg prometheus.Registerer) *PromObserver {
	factory := promauto.With(reg)

	return &PromObserver{
		accepted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "statsgraf_events_accepted_total",
			Help: "Events accepted into a sink queue.",
		}, []string{"sink"}),
		acked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "statsgraf_events_acked_total",
			Help: "Events handed to the transport (best-effort delivery).",
		}, []string{"sink"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "statsgraf_events_dropped_total",
			Help: "Events dropped before delivery.",
		}, []string{"sink", "reason"}),
		encodeSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "statsgraf_encode_skipped_total",
			Help: "Events with no wire representation.",
		}, []string{"sink"}),
		batches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "statsgraf_batches_flushed_total",
			Help: "Batches flushed to the transport.",
		}, []string{"sink"}),
		sentBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "statsgraf_sent_bytes_total",
			Help: "Payload bytes put on the wire.",
		}, []string{"sink"}),
		sendErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "statsgraf_send_errors_total",
			Help: "Socket-level send failures.",
		}, []string{"sink"}),
		resolves: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "statsgraf_resolve_total",
			Help: "Successful destination resolutions.",
		}, []string{"sink"}),
		resolveErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "statsgraf_resolve_errors_total",
			Help: "Failed or empty destination resolutions.",
		}, []string{"sink"}),
		backoffs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "statsgraf_backoff_entered_total",
			Help: "Times a transport entered backoff.",
		}, []string{"sink"}),
		inflight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "statsgraf_inflight_events",
			Help: "Events accepted but not yet handed to the transport.",
		}, []string{"sink"}),
	}
}

func (p *PromObserver) EventsAccepted(sink string, n int) {
	p.accepted.WithLabelValues(sink).Add(float64(n))
	p.inflight.WithLabelValues(sink).Add(float64(n))
}

func (p *PromObserver) EventsAcked(sink string, n int) {
	p.acked.WithLabelValues(sink).Add(float64(n))
	p.inflight.WithLabelValues(sink).Sub(float64(n))
}

func (p *PromObserver) EventsDropped(sink string, n int, reason string) {
	p.dropped.WithLabelValues(sink, reason).Add(float64(n))
}

func (p *PromObserver) EncodeSkipped(sink string) {
	p.encodeSkipped.WithLabelValues(sink).Inc()
}

func (p *PromObserver) BatchFlushed(sink string, events, bytes int) {
	p.batches.WithLabelValues(sink).Inc()
}

func (p *PromObserver) SendSucceeded(sink string, bytes int) {
	p.sentBytes.WithLabelValues(sink).Add(float64(bytes))
}

func (p *PromObserver) SendFailed(sink string, err error) {
	p.sendErrors.WithLabelValues(sink).Inc()
}

func (p *PromObserver) ResolveSucceeded(sink, host, addr string) {
	p.resolves.WithLabelValues(sink).Inc()
}

func (p *PromObserver) ResolveFailed(sink, host string, err error) {
	p.resolveErrors.WithLabelValues(sink).Inc()
}

func (p *PromObserver) BackoffEntered(sink string, delay time.Duration) {
	p.backoffs.WithLabelValues(sink).Inc()
}
