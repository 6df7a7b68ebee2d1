package meshclock

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments a Core updates as it ticks and
// receives. A Core built with Opts.Metrics == nil gets one created with a
// nil Registerer (promauto.With(nil) builds working, unregistered
// instruments), so metrics are always safe to read even when the host
// doesn't care to expose them.
type Metrics struct {
	broadcastsSent  prometheus.Counter
	sendFailures    prometheus.Counter
	framesReceived  prometheus.Counter
	framesMalformed prometheus.Counter
	offsetUs        prometheus.Gauge
	syncState       prometheus.Gauge
}

// NewMetrics creates the mesh clock instruments, registered with reg. Pass
// nil to get working instruments that aren't exposed anywhere, which is
// what Core does by default.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		broadcastsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "meshclock_broadcasts_sent_total",
			Help: "Number of clock broadcast frames successfully handed to the radio.",
		}),
		sendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "meshclock_broadcast_send_failures_total",
			Help: "Number of clock broadcasts the radio rejected.",
		}),
		framesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "meshclock_frames_received_total",
			Help: "Number of valid clock frames received and applied.",
		}),
		framesMalformed: factory.NewCounter(prometheus.CounterOpts{
			Name: "meshclock_frames_malformed_total",
			Help: "Number of received frames that failed to decode as clock frames.",
		}),
		offsetUs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "meshclock_offset_microseconds",
			Help: "Current mesh clock offset applied to the local monotonic counter.",
		}),
		syncState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "meshclock_sync_state",
			Help: "Current sync state: 0=ALONE, 1=SYNCED, 2=LOST.",
		}),
	}
}
