package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/domain"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/ports"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/pkg/tracing"
)

// Router interprets inbound signaling frames and enqueues the resulting
// outbound frames. Join mutates the session directory; offer, answer and
// ice_candidate only read it, so forwarding runs fully in parallel across
// connections.
type Router struct {
	registry  ports.ConnectionRegistry
	directory ports.SessionDirectory
	metrics   ports.MetricsRecorder
	logger    *zap.SugaredLogger
}

func NewRouter(registry ports.ConnectionRegistry, directory ports.SessionDirectory, metrics ports.MetricsRecorder, logger *zap.SugaredLogger) *Router {
	return &Router{
		registry:  registry,
		directory: directory,
		metrics:   metrics,
		logger:    logger,
	}
}

func (r *Router) Route(ctx context.Context, senderID domain.ConnectionID, msg domain.SignalMessage) {
	ctx, span := tracing.TraceSignalMessage(ctx, msg.Type, string(senderID))
	defer span.End()

	switch msg.Type {
	case domain.MessageTypeJoin:
		r.handleJoin(ctx, senderID, msg)
	case domain.MessageTypeOffer, domain.MessageTypeAnswer:
		r.handleDescription(ctx, senderID, msg)
	case domain.MessageTypeICECandidate:
		r.handleCandidate(ctx, senderID, msg)
	default:
		r.logger.Debugw("unknown message type",
			"connection_id", senderID,
			"type", msg.Type,
		)
		r.reply(senderID, domain.NewErrorMessage(domain.ErrorReasonUnknownType))
	}
}

func (r *Router) handleJoin(ctx context.Context, senderID domain.ConnectionID, msg domain.SignalMessage) {
	// Stream ids are opaque to the relay: any non-empty identifier a client
	// presents names a valid stream.
	if msg.StreamID == "" {
		r.reply(senderID, domain.NewErrorMessage(domain.ErrorReasonInvalidJoin))
		return
	}

	outcome, err := r.directory.Join(ctx, msg.StreamID, senderID, msg.Role)
	if err != nil {
		tracing.RecordError(ctx, err)
		switch {
		case errors.Is(err, domain.ErrBroadcasterExists):
			r.logger.Infow("rejected broadcaster join, slot taken",
				"connection_id", senderID,
				"stream_id", msg.StreamID,
			)
			r.reply(senderID, domain.NewErrorMessage(domain.ErrorReasonBroadcasterExists))
		case errors.Is(err, domain.ErrAlreadyJoined):
			r.reply(senderID, domain.NewErrorMessage(domain.ErrorReasonAlreadyJoined))
		default:
			r.reply(senderID, domain.NewErrorMessage(domain.ErrorReasonInvalidJoin))
		}
		return
	}

	r.registry.SetMembership(senderID, outcome.StreamID, outcome.Role)
	r.metrics.RecordPeerJoined(outcome.StreamID, outcome.Role)
	tracing.AddSpanAttributes(ctx,
		tracing.StreamIDKey.String(string(outcome.StreamID)),
		tracing.RoleKey.String(string(outcome.Role)),
	)

	r.logger.Infow("peer joined stream",
		"connection_id", senderID,
		"stream_id", outcome.StreamID,
		"role", outcome.Role,
	)

	r.reply(senderID, domain.NewJoinedMessage(outcome.StreamID))

	// A joining viewer is announced to the broadcaster, which is expected to
	// respond with an offer. A joining broadcaster gets nothing further:
	// existing viewers are discoverable through the session directory.
	if outcome.Role == domain.RoleViewer && outcome.BroadcasterID != "" {
		r.deliver(outcome.BroadcasterID, domain.NewPeerJoinedMessage(senderID, outcome.StreamID))
	}
}

// handleDescription forwards an offer or answer to its named target if the
// target exists and belongs to the same stream. Anything else is dropped
// silently: the sender cannot distinguish a peer that never existed from one
// that just left, so no error goes back.
func (r *Router) handleDescription(ctx context.Context, senderID domain.ConnectionID, msg domain.SignalMessage) {
	conn, sender, ok := r.registry.Get(msg.TargetID)
	if !ok || conn.StreamID != msg.StreamID {
		r.metrics.RecordRoutingMiss(msg.Type)
		r.logger.Debugw("dropped description for unknown or mismatched target",
			"type", msg.Type,
			"source_id", senderID,
			"target_id", msg.TargetID,
			"stream_id", msg.StreamID,
		)
		return
	}

	forwarded := domain.SignalMessage{
		Type:     msg.Type,
		StreamID: msg.StreamID,
		SourceID: senderID,
		Payload:  msg.Payload,
	}
	r.enqueue(msg.TargetID, sender, forwarded)
}

// handleCandidate forwards an ICE candidate verbatim. Candidates may arrive
// in any order and more than once; dedup and ordering are the client state
// machine's concern.
func (r *Router) handleCandidate(ctx context.Context, senderID domain.ConnectionID, msg domain.SignalMessage) {
	_, sender, ok := r.registry.Get(msg.TargetID)
	if !ok {
		r.metrics.RecordRoutingMiss(msg.Type)
		return
	}

	forwarded := domain.SignalMessage{
		Type:     domain.MessageTypeICECandidate,
		StreamID: msg.StreamID,
		SourceID: senderID,
		Payload:  msg.Payload,
	}
	r.enqueue(msg.TargetID, sender, forwarded)
}

// reply sends a message back to the connection the inbound frame came from.
func (r *Router) reply(connID domain.ConnectionID, msg domain.SignalMessage) {
	_, sender, ok := r.registry.Get(connID)
	if !ok {
		return
	}
	r.enqueue(connID, sender, msg)
}

// deliver sends a message to an arbitrary connection, dropping on miss.
func (r *Router) deliver(connID domain.ConnectionID, msg domain.SignalMessage) {
	_, sender, ok := r.registry.Get(connID)
	if !ok {
		r.metrics.RecordRoutingMiss(msg.Type)
		return
	}
	r.enqueue(connID, sender, msg)
}

func (r *Router) enqueue(target domain.ConnectionID, sender ports.Sender, msg domain.SignalMessage) {
	if !sender.Enqueue(msg) {
		r.metrics.RecordOutboundDrop()
		r.logger.Warnw("outbound queue full, dropped oldest message",
			"target_id", target,
			"type", msg.Type,
		)
	}
	r.metrics.RecordMessageRouted(msg.Type)
}
