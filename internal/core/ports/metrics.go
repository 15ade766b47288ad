package ports

import "github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/domain"

// MetricsRecorder receives signaling events from the router and lifecycle
// manager. The Prometheus collector implements it; tests use NopMetrics.
type MetricsRecorder interface {
	RecordMessageRouted(messageType string)
	RecordRoutingMiss(messageType string)
	RecordOutboundDrop()
	RecordPeerJoined(streamID domain.StreamID, role domain.Role)
	RecordPeerLeft(streamID domain.StreamID, role domain.Role)
	RecordSessionEnded(streamID domain.StreamID)
	RecordTicks(streamID domain.StreamID, ticks uint64)
}

// NopMetrics discards every event.
type NopMetrics struct{}

func (NopMetrics) RecordMessageRouted(string)                    {}
func (NopMetrics) RecordRoutingMiss(string)                      {}
func (NopMetrics) RecordOutboundDrop()                           {}
func (NopMetrics) RecordPeerJoined(domain.StreamID, domain.Role) {}
func (NopMetrics) RecordPeerLeft(domain.StreamID, domain.Role)   {}
func (NopMetrics) RecordSessionEnded(domain.StreamID)            {}
func (NopMetrics) RecordTicks(domain.StreamID, uint64)           {}
