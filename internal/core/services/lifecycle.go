package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/domain"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/ports"
)

// Lifecycle cleans up after a connection's transport closes and notifies the
// remaining members of its stream. Directory and registry mutations happen
// under the stores' own locks; peer_left delivery runs afterwards so no lock
// is held during notification.
type Lifecycle struct {
	registry  ports.ConnectionRegistry
	directory ports.SessionDirectory
	metrics   ports.MetricsRecorder
	logger    *zap.SugaredLogger
}

func NewLifecycle(registry ports.ConnectionRegistry, directory ports.SessionDirectory, metrics ports.MetricsRecorder, logger *zap.SugaredLogger) *Lifecycle {
	return &Lifecycle{
		registry:  registry,
		directory: directory,
		metrics:   metrics,
		logger:    logger,
	}
}

func (l *Lifecycle) HandleDisconnect(ctx context.Context, connID domain.ConnectionID) {
	conn, _, registered := l.registry.Get(connID)

	streamID, remaining, wasMember := l.directory.Leave(ctx, connID)
	l.registry.Remove(connID)

	if registered && conn.Role != domain.RoleUnassigned {
		l.metrics.RecordPeerLeft(conn.StreamID, conn.Role)
	}

	if !wasMember {
		return
	}
	if len(remaining) == 0 {
		l.metrics.RecordSessionEnded(streamID)
	}

	l.logger.Infow("peer left stream",
		"connection_id", connID,
		"stream_id", streamID,
		"remaining", len(remaining),
	)

	// Delivery failures are logged, not retried: a member whose own
	// transport is going down will be cleaned up by its own handler.
	notice := domain.NewPeerLeftMessage(connID)
	for _, member := range remaining {
		if member == connID {
			continue
		}
		_, sender, ok := l.registry.Get(member)
		if !ok {
			l.logger.Debugw("skipping peer_left for departed member",
				"member_id", member,
				"stream_id", streamID,
			)
			continue
		}
		if !sender.Enqueue(notice) {
			l.metrics.RecordOutboundDrop()
			l.logger.Warnw("failed to deliver peer_left notification",
				"member_id", member,
				"stream_id", streamID,
			)
		}
	}
}
