package ports

import (
	"context"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/domain"
)

// Sender is the outbound side of one transport connection. Enqueue must not
// block: implementations apply backpressure by dropping the oldest queued
// message when the queue is full. The return value reports whether the
// message was accepted without a drop.
type Sender interface {
	Enqueue(msg domain.SignalMessage) bool
	Close()
}

// ConnectionRegistry owns the set of currently open transport connections.
// Register generates a fresh unique id. Membership is set once on a
// successful join and removed with the whole entry on disconnect. All
// methods are safe for concurrent use from independent connection handlers.
type ConnectionRegistry interface {
	Register(sender Sender, remoteAddr string) domain.ConnectionID
	Get(id domain.ConnectionID) (*domain.Connection, Sender, bool)
	SetMembership(id domain.ConnectionID, streamID domain.StreamID, role domain.Role)
	Remove(id domain.ConnectionID)
	ForEach(fn func(conn *domain.Connection, sender Sender))
	Count() int
}

// SessionDirectory maps stream ids to their sessions and enforces the
// one-broadcaster invariant. Leave is idempotent: leaving twice, or leaving
// with an id that never joined, is a no-op.
type SessionDirectory interface {
	Join(ctx context.Context, streamID domain.StreamID, connID domain.ConnectionID, role domain.Role) (domain.JoinOutcome, error)
	Leave(ctx context.Context, connID domain.ConnectionID) (domain.StreamID, []domain.ConnectionID, bool)
	PeerOf(ctx context.Context, connID domain.ConnectionID, streamID domain.StreamID) ([]domain.ConnectionID, error)
	Session(ctx context.Context, streamID domain.StreamID) (*domain.Session, error)
	ListSessions(ctx context.Context) ([]*domain.Session, error)
	SessionCount(ctx context.Context) (int, error)
}

// TickStore accumulates per-stream billing ticks. RecordTick returns the
// total after the increment.
type TickStore interface {
	RecordTick(ctx context.Context, streamID domain.StreamID, ticks uint64) (uint64, error)
	TickCount(ctx context.Context, streamID domain.StreamID) (uint64, error)
}
