package ports

import (
	"context"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/domain"
)

// MessageRouter interprets one inbound frame and delivers the resulting
// outbound frames to their target connections' queues. It never blocks on
// transport I/O.
type MessageRouter interface {
	Route(ctx context.Context, senderID domain.ConnectionID, msg domain.SignalMessage)
}

// LifecycleManager reacts to a connection's transport closing: session and
// registry cleanup, then departure notifications to the remaining members.
type LifecycleManager interface {
	HandleDisconnect(ctx context.Context, connID domain.ConnectionID)
}

// MeteringService records and reports pay-per-second usage ticks.
type MeteringService interface {
	RecordTick(ctx context.Context, streamID domain.StreamID, viewerID domain.ConnectionID, ticks uint64) (uint64, error)
	TickCount(ctx context.Context, streamID domain.StreamID) (domain.StreamUsage, error)
	Run(ctx context.Context)
}
