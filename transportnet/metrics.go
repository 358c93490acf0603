package transportnet

import (
	"time"

	"github.com/coresim/gdbstub"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements gdbstub.Recorder against Prometheus, scaled down
// from the TCPInfoCollector pattern in runZeroInc-sockstats/pkg/exporter:
// that collector walks /proc for every open fd on each scrape, which
// doesn't apply to a library with no fixed set of sockets to enumerate,
// so here the session itself pushes observations as they happen instead
// of a collector pulling them.
type Recorder struct {
	commandLatency *prometheus.HistogramVec
	disconnects    *prometheus.CounterVec
}

// NewRecorder builds a Recorder and registers its collectors with reg.
// Pass prometheus.DefaultRegisterer for the global registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		commandLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gdbstub",
			Name:      "command_duration_seconds",
			Help:      "Time spent dispatching one GDB remote protocol command.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gdbstub",
			Name:      "disconnects_total",
			Help:      "Session disconnects, partitioned by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(r.commandLatency, r.disconnects)
	return r
}

// ObserveCommand implements gdbstub.Recorder.
func (r *Recorder) ObserveCommand(name string, dur time.Duration) {
	r.commandLatency.WithLabelValues(name).Observe(dur.Seconds())
}

// ObserveDisconnect implements gdbstub.Recorder.
func (r *Recorder) ObserveDisconnect(reason gdbstub.DisconnectReason) {
	r.disconnects.WithLabelValues(reason.String()).Inc()
}
