package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/domain"
)

// PrometheusCollector implements ports.MetricsRecorder on top of promauto
// metrics. Routing misses and outbound drops are counters only: the protocol
// never surfaces them to clients, so the counters are the sole evidence that
// frames were dropped.
type PrometheusCollector struct {
	connectionsActive prometheus.Gauge
	sessionsActive    prometheus.Gauge

	messagesRouted *prometheus.CounterVec
	routingMisses  *prometheus.CounterVec
	outboundDrops  prometheus.Counter

	peersJoinedTotal *prometheus.CounterVec
	peersLeftTotal   *prometheus.CounterVec
	streamPeerCount  *prometheus.GaugeVec

	ticksRecorded *prometheus.CounterVec
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		connectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vilokanam_signal_connections_active",
			Help: "Number of open signaling connections",
		}),

		sessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vilokanam_signal_sessions_active",
			Help: "Number of live stream sessions",
		}),

		messagesRouted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vilokanam_signal_messages_routed_total",
			Help: "Signaling messages enqueued for delivery, by message type",
		}, []string{"type"}),

		routingMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vilokanam_signal_routing_misses_total",
			Help: "Messages dropped because the target connection was unknown or in another stream",
		}, []string{"type"}),

		outboundDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vilokanam_signal_outbound_drops_total",
			Help: "Messages evicted from full outbound queues",
		}),

		peersJoinedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vilokanam_signal_peers_joined_total",
			Help: "Successful stream joins, by role",
		}, []string{"role"}),

		peersLeftTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vilokanam_signal_peers_left_total",
			Help: "Stream departures, by role",
		}, []string{"role"}),

		streamPeerCount: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vilokanam_signal_stream_peer_count",
			Help: "Number of peers in each stream, by role",
		}, []string{"stream_id", "role"}),

		ticksRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vilokanam_metering_ticks_total",
			Help: "Pay-per-second usage ticks recorded, by stream",
		}, []string{"stream_id"}),
	}
}

func (p *PrometheusCollector) RecordMessageRouted(messageType string) {
	p.messagesRouted.WithLabelValues(messageType).Inc()
}

func (p *PrometheusCollector) RecordRoutingMiss(messageType string) {
	p.routingMisses.WithLabelValues(messageType).Inc()
}

func (p *PrometheusCollector) RecordOutboundDrop() {
	p.outboundDrops.Inc()
}

func (p *PrometheusCollector) RecordPeerJoined(streamID domain.StreamID, role domain.Role) {
	p.peersJoinedTotal.WithLabelValues(string(role)).Inc()
	p.streamPeerCount.WithLabelValues(string(streamID), string(role)).Inc()
}

func (p *PrometheusCollector) RecordPeerLeft(streamID domain.StreamID, role domain.Role) {
	p.peersLeftTotal.WithLabelValues(string(role)).Inc()
	p.streamPeerCount.WithLabelValues(string(streamID), string(role)).Dec()
}

func (p *PrometheusCollector) RecordTicks(streamID domain.StreamID, ticks uint64) {
	p.ticksRecorded.WithLabelValues(string(streamID)).Add(float64(ticks))
}

// SetConnections updates the active connection gauge. Driven by a periodic
// sampler in main rather than by per-event increments.
func (p *PrometheusCollector) SetConnections(n int) {
	p.connectionsActive.Set(float64(n))
}

// SetSessions updates the live session gauge.
func (p *PrometheusCollector) SetSessions(n int) {
	p.sessionsActive.Set(float64(n))
}

// RecordSessionEnded removes per-stream gauge series once a session ends so
// stale stream IDs do not accumulate in the registry.
func (p *PrometheusCollector) RecordSessionEnded(streamID domain.StreamID) {
	p.streamPeerCount.DeleteLabelValues(string(streamID), string(domain.RoleBroadcaster))
	p.streamPeerCount.DeleteLabelValues(string(streamID), string(domain.RoleViewer))
}
