package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/domain"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/ports"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/infrastructure/repositories/memory"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/pkg/logger"
)

// fakeSender records enqueued messages; full simulates a saturated queue.
type fakeSender struct {
	messages []domain.SignalMessage
	full     bool
	closed   bool
}

func (s *fakeSender) Enqueue(msg domain.SignalMessage) bool {
	if s.full {
		return false
	}
	s.messages = append(s.messages, msg)
	return true
}

func (s *fakeSender) Close() { s.closed = true }

func (s *fakeSender) byType(msgType string) []domain.SignalMessage {
	var out []domain.SignalMessage
	for _, m := range s.messages {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

// countingMetrics tallies recorder calls for drop assertions.
type countingMetrics struct {
	ports.NopMetrics
	routed int
	misses int
	drops  int
}

func (m *countingMetrics) RecordMessageRouted(string) { m.routed++ }
func (m *countingMetrics) RecordRoutingMiss(string)   { m.misses++ }
func (m *countingMetrics) RecordOutboundDrop()        { m.drops++ }

type routerFixture struct {
	router   *Router
	registry ports.ConnectionRegistry
	metrics  *countingMetrics
}

func newRouterFixture() *routerFixture {
	registry := memory.NewMemoryConnectionRegistry()
	directory := memory.NewMemorySessionDirectory()
	metrics := &countingMetrics{}
	return &routerFixture{
		router:   NewRouter(registry, directory, metrics, logger.Nop()),
		registry: registry,
		metrics:  metrics,
	}
}

func (f *routerFixture) connect(t *testing.T) (domain.ConnectionID, *fakeSender) {
	t.Helper()
	sender := &fakeSender{}
	return f.registry.Register(sender, ""), sender
}

func (f *routerFixture) join(t *testing.T, connID domain.ConnectionID, sender *fakeSender, streamID domain.StreamID, role domain.Role) {
	t.Helper()
	f.router.Route(context.Background(), connID, domain.SignalMessage{
		Type:     domain.MessageTypeJoin,
		StreamID: streamID,
		Role:     role,
	})
	joined := sender.byType(domain.MessageTypeJoined)
	assert.Len(t, joined, 1, "expected a joined reply")
	assert.Equal(t, streamID, joined[0].StreamID)
}

func TestJoinBroadcaster(t *testing.T) {
	f := newRouterFixture()
	bID, bSender := f.connect(t)

	f.join(t, bID, bSender, "s1", domain.RoleBroadcaster)

	// A joining broadcaster gets joined and nothing further.
	assert.Len(t, bSender.messages, 1)

	conn, _, _ := f.registry.Get(bID)
	assert.Equal(t, domain.RoleBroadcaster, conn.Role)
	assert.Equal(t, domain.StreamID("s1"), conn.StreamID)
}

func TestViewerJoinAnnouncedToBroadcaster(t *testing.T) {
	f := newRouterFixture()
	bID, bSender := f.connect(t)
	vID, vSender := f.connect(t)

	f.join(t, bID, bSender, "s1", domain.RoleBroadcaster)
	f.join(t, vID, vSender, "s1", domain.RoleViewer)

	announcements := bSender.byType(domain.MessageTypePeerJoined)
	assert.Len(t, announcements, 1)
	assert.Equal(t, vID, announcements[0].PeerID)
	assert.Equal(t, domain.StreamID("s1"), announcements[0].StreamID)
}

func TestBroadcasterConflictReported(t *testing.T) {
	f := newRouterFixture()
	b1ID, b1Sender := f.connect(t)
	b2ID, b2Sender := f.connect(t)

	f.join(t, b1ID, b1Sender, "s1", domain.RoleBroadcaster)

	f.router.Route(context.Background(), b2ID, domain.SignalMessage{
		Type:     domain.MessageTypeJoin,
		StreamID: "s1",
		Role:     domain.RoleBroadcaster,
	})

	errs := b2Sender.byType(domain.MessageTypeError)
	assert.Len(t, errs, 1)
	assert.Equal(t, domain.ErrorReasonBroadcasterExists, errs[0].Reason)

	// The loser's registry entry stays unassigned.
	conn, _, _ := f.registry.Get(b2ID)
	assert.Equal(t, domain.RoleUnassigned, conn.Role)
}

func TestDuplicateJoinReported(t *testing.T) {
	f := newRouterFixture()
	vID, vSender := f.connect(t)

	f.join(t, vID, vSender, "s1", domain.RoleViewer)

	f.router.Route(context.Background(), vID, domain.SignalMessage{
		Type:     domain.MessageTypeJoin,
		StreamID: "s2",
		Role:     domain.RoleViewer,
	})

	errs := vSender.byType(domain.MessageTypeError)
	assert.Len(t, errs, 1)
	assert.Equal(t, domain.ErrorReasonAlreadyJoined, errs[0].Reason)
}

// Stream ids are opaque: anything non-empty a client presents is accepted,
// including characters outside the URL-safe set.
func TestJoinAcceptsOpaqueStreamID(t *testing.T) {
	f := newRouterFixture()

	for _, streamID := range []domain.StreamID{"stream.v2", "urn:stream:42", "живое видео"} {
		bID, bSender := f.connect(t)
		f.join(t, bID, bSender, streamID, domain.RoleBroadcaster)
		assert.Empty(t, bSender.byType(domain.MessageTypeError))

		vID, vSender := f.connect(t)
		f.join(t, vID, vSender, streamID, domain.RoleViewer)
		assert.Empty(t, vSender.byType(domain.MessageTypeError))
	}
}

func TestInvalidJoinReported(t *testing.T) {
	f := newRouterFixture()
	vID, vSender := f.connect(t)

	f.router.Route(context.Background(), vID, domain.SignalMessage{
		Type: domain.MessageTypeJoin,
		Role: domain.RoleViewer,
	})

	errs := vSender.byType(domain.MessageTypeError)
	assert.Len(t, errs, 1)
	assert.Equal(t, domain.ErrorReasonInvalidJoin, errs[0].Reason)
}

func TestUnknownTypeReported(t *testing.T) {
	f := newRouterFixture()
	cID, cSender := f.connect(t)

	f.router.Route(context.Background(), cID, domain.SignalMessage{Type: "subscribe"})

	errs := cSender.byType(domain.MessageTypeError)
	assert.Len(t, errs, 1)
	assert.Equal(t, domain.ErrorReasonUnknownType, errs[0].Reason)
}

// Routing correctness: an offer reaches its target with the payload intact
// and the source id stamped.
func TestOfferForwarded(t *testing.T) {
	f := newRouterFixture()
	bID, bSender := f.connect(t)
	vID, vSender := f.connect(t)
	f.join(t, bID, bSender, "s1", domain.RoleBroadcaster)
	f.join(t, vID, vSender, "s1", domain.RoleViewer)

	payload := json.RawMessage(`{"type":"offer","sdp":"v=0\r\no=- 1 1 IN IP4 0.0.0.0"}`)
	f.router.Route(context.Background(), bID, domain.SignalMessage{
		Type:     domain.MessageTypeOffer,
		StreamID: "s1",
		TargetID: vID,
		Payload:  payload,
	})

	offers := vSender.byType(domain.MessageTypeOffer)
	assert.Len(t, offers, 1)
	assert.Equal(t, bID, offers[0].SourceID)
	assert.JSONEq(t, string(payload), string(offers[0].Payload))
	assert.Empty(t, offers[0].TargetID, "target id is not echoed to the receiver")
}

// Drop-on-miss: an offer to an unregistered target produces no delivery and
// no error back to the sender.
func TestOfferToUnknownTargetDropped(t *testing.T) {
	f := newRouterFixture()
	bID, bSender := f.connect(t)
	f.join(t, bID, bSender, "s1", domain.RoleBroadcaster)

	f.router.Route(context.Background(), bID, domain.SignalMessage{
		Type:     domain.MessageTypeOffer,
		StreamID: "s1",
		TargetID: "gone",
		Payload:  json.RawMessage(`{}`),
	})

	assert.Empty(t, bSender.byType(domain.MessageTypeError))
	assert.Equal(t, 1, f.metrics.misses)
}

// An offer whose target sits in a different stream is treated as a miss.
func TestOfferToWrongStreamDropped(t *testing.T) {
	f := newRouterFixture()
	bID, bSender := f.connect(t)
	vID, vSender := f.connect(t)
	f.join(t, bID, bSender, "s1", domain.RoleBroadcaster)
	f.join(t, vID, vSender, "s2", domain.RoleViewer)

	f.router.Route(context.Background(), bID, domain.SignalMessage{
		Type:     domain.MessageTypeOffer,
		StreamID: "s1",
		TargetID: vID,
		Payload:  json.RawMessage(`{}`),
	})

	assert.Empty(t, vSender.byType(domain.MessageTypeOffer))
	assert.Empty(t, bSender.byType(domain.MessageTypeError))
	assert.Equal(t, 1, f.metrics.misses)
}

func TestAnswerForwarded(t *testing.T) {
	f := newRouterFixture()
	bID, bSender := f.connect(t)
	vID, vSender := f.connect(t)
	f.join(t, bID, bSender, "s1", domain.RoleBroadcaster)
	f.join(t, vID, vSender, "s1", domain.RoleViewer)

	payload := json.RawMessage(`{"type":"answer","sdp":"v=0"}`)
	f.router.Route(context.Background(), vID, domain.SignalMessage{
		Type:     domain.MessageTypeAnswer,
		StreamID: "s1",
		TargetID: bID,
		Payload:  payload,
	})

	answers := bSender.byType(domain.MessageTypeAnswer)
	assert.Len(t, answers, 1)
	assert.Equal(t, vID, answers[0].SourceID)
	assert.JSONEq(t, string(payload), string(answers[0].Payload))
}

func TestCandidateForwardedVerbatim(t *testing.T) {
	f := newRouterFixture()
	bID, bSender := f.connect(t)
	vID, vSender := f.connect(t)
	f.join(t, bID, bSender, "s1", domain.RoleBroadcaster)
	f.join(t, vID, vSender, "s1", domain.RoleViewer)

	payload := json.RawMessage(`{"candidate":"candidate:1 1 UDP 2122252543 192.0.2.1 54400 typ host"}`)
	f.router.Route(context.Background(), vID, domain.SignalMessage{
		Type:     domain.MessageTypeICECandidate,
		StreamID: "s1",
		TargetID: bID,
		Payload:  payload,
	})

	candidates := bSender.byType(domain.MessageTypeICECandidate)
	assert.Len(t, candidates, 1)
	assert.Equal(t, vID, candidates[0].SourceID)
	assert.JSONEq(t, string(payload), string(candidates[0].Payload))
}

func TestCandidateToUnknownTargetDropped(t *testing.T) {
	f := newRouterFixture()
	vID, vSender := f.connect(t)
	f.join(t, vID, vSender, "s1", domain.RoleViewer)

	f.router.Route(context.Background(), vID, domain.SignalMessage{
		Type:     domain.MessageTypeICECandidate,
		StreamID: "s1",
		TargetID: "gone",
		Payload:  json.RawMessage(`{}`),
	})

	assert.Empty(t, vSender.byType(domain.MessageTypeError))
	assert.Equal(t, 1, f.metrics.misses)
}

func TestFullQueueCountsDrop(t *testing.T) {
	f := newRouterFixture()
	bID, bSender := f.connect(t)
	vID, vSender := f.connect(t)
	f.join(t, bID, bSender, "s1", domain.RoleBroadcaster)
	f.join(t, vID, vSender, "s1", domain.RoleViewer)

	vSender.full = true
	f.router.Route(context.Background(), bID, domain.SignalMessage{
		Type:     domain.MessageTypeOffer,
		StreamID: "s1",
		TargetID: vID,
		Payload:  json.RawMessage(`{}`),
	})

	assert.Equal(t, 1, f.metrics.drops)
}
