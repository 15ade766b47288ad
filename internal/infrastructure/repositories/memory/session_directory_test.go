package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/domain"
)

func TestJoinBroadcasterThenViewer(t *testing.T) {
	dir := NewMemorySessionDirectory()
	ctx := context.Background()

	outcome, err := dir.Join(ctx, "s1", "b1", domain.RoleBroadcaster)
	assert.NoError(t, err)
	assert.Equal(t, domain.StreamID("s1"), outcome.StreamID)
	assert.Equal(t, domain.RoleBroadcaster, outcome.Role)

	outcome, err = dir.Join(ctx, "s1", "v1", domain.RoleViewer)
	assert.NoError(t, err)
	assert.Equal(t, domain.ConnectionID("b1"), outcome.BroadcasterID,
		"viewer outcome should carry the current broadcaster id")
}

func TestBroadcasterConflict(t *testing.T) {
	dir := NewMemorySessionDirectory()
	ctx := context.Background()

	_, err := dir.Join(ctx, "s1", "b1", domain.RoleBroadcaster)
	assert.NoError(t, err)

	_, err = dir.Join(ctx, "s1", "b2", domain.RoleBroadcaster)
	assert.ErrorIs(t, err, domain.ErrBroadcasterExists)

	// The incumbent keeps the slot.
	sess, err := dir.Session(ctx, "s1")
	assert.NoError(t, err)
	assert.Equal(t, domain.ConnectionID("b1"), sess.BroadcasterID)

	// The rejected connection is free to join elsewhere.
	_, err = dir.Join(ctx, "s2", "b2", domain.RoleBroadcaster)
	assert.NoError(t, err)
}

func TestDuplicateJoinRejected(t *testing.T) {
	dir := NewMemorySessionDirectory()
	ctx := context.Background()

	_, err := dir.Join(ctx, "s1", "v1", domain.RoleViewer)
	assert.NoError(t, err)

	_, err = dir.Join(ctx, "s1", "v1", domain.RoleViewer)
	assert.ErrorIs(t, err, domain.ErrAlreadyJoined)

	_, err = dir.Join(ctx, "s2", "v1", domain.RoleViewer)
	assert.ErrorIs(t, err, domain.ErrAlreadyJoined,
		"one connection may be in at most one session")
}

func TestJoinValidation(t *testing.T) {
	dir := NewMemorySessionDirectory()
	ctx := context.Background()

	_, err := dir.Join(ctx, "", "c1", domain.RoleViewer)
	assert.ErrorIs(t, err, domain.ErrEmptyStreamID)

	_, err = dir.Join(ctx, "s1", "c1", domain.Role("moderator"))
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestViewerMayJoinBroadcasterlessStream(t *testing.T) {
	dir := NewMemorySessionDirectory()
	ctx := context.Background()

	outcome, err := dir.Join(ctx, "s1", "v1", domain.RoleViewer)
	assert.NoError(t, err)
	assert.Empty(t, outcome.BroadcasterID)

	// Broadcaster arrives later and finds the waiting viewer.
	_, err = dir.Join(ctx, "s1", "b1", domain.RoleBroadcaster)
	assert.NoError(t, err)

	peers, err := dir.PeerOf(ctx, "b1", "s1")
	assert.NoError(t, err)
	assert.Equal(t, []domain.ConnectionID{"v1"}, peers)
}

func TestLeaveIdempotent(t *testing.T) {
	dir := NewMemorySessionDirectory()
	ctx := context.Background()

	_, _ = dir.Join(ctx, "s1", "b1", domain.RoleBroadcaster)
	_, _ = dir.Join(ctx, "s1", "v1", domain.RoleViewer)

	streamID, remaining, ok := dir.Leave(ctx, "v1")
	assert.True(t, ok)
	assert.Equal(t, domain.StreamID("s1"), streamID)
	assert.Equal(t, []domain.ConnectionID{"b1"}, remaining)

	// Second leave is a no-op.
	_, _, ok = dir.Leave(ctx, "v1")
	assert.False(t, ok)

	// Leaving an id that never joined is a no-op.
	_, _, ok = dir.Leave(ctx, "ghost")
	assert.False(t, ok)

	sess, err := dir.Session(ctx, "s1")
	assert.NoError(t, err)
	assert.Empty(t, sess.ViewerIDs)
}

func TestBroadcasterLeaveFreesSlot(t *testing.T) {
	dir := NewMemorySessionDirectory()
	ctx := context.Background()

	_, _ = dir.Join(ctx, "s1", "b1", domain.RoleBroadcaster)
	_, _ = dir.Join(ctx, "s1", "v1", domain.RoleViewer)

	_, remaining, ok := dir.Leave(ctx, "b1")
	assert.True(t, ok)
	assert.Equal(t, []domain.ConnectionID{"v1"}, remaining)

	// A new broadcaster can claim the freed slot.
	_, err := dir.Join(ctx, "s1", "b2", domain.RoleBroadcaster)
	assert.NoError(t, err)
}

func TestEmptySessionEvicted(t *testing.T) {
	dir := NewMemorySessionDirectory()
	ctx := context.Background()

	_, _ = dir.Join(ctx, "s1", "b1", domain.RoleBroadcaster)
	_, _, _ = dir.Leave(ctx, "b1")

	_, err := dir.Session(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	count, err := dir.SessionCount(ctx)
	assert.NoError(t, err)
	assert.Zero(t, count)
}

func TestPeerOf(t *testing.T) {
	dir := NewMemorySessionDirectory()
	ctx := context.Background()

	_, _ = dir.Join(ctx, "s1", "b1", domain.RoleBroadcaster)
	_, _ = dir.Join(ctx, "s1", "v1", domain.RoleViewer)
	_, _ = dir.Join(ctx, "s1", "v2", domain.RoleViewer)

	peers, err := dir.PeerOf(ctx, "b1", "s1")
	assert.NoError(t, err)
	assert.Equal(t, []domain.ConnectionID{"v1", "v2"}, peers)

	peers, err = dir.PeerOf(ctx, "v1", "s1")
	assert.NoError(t, err)
	assert.Equal(t, []domain.ConnectionID{"b1"}, peers)

	_, err = dir.PeerOf(ctx, "stranger", "s1")
	assert.ErrorIs(t, err, domain.ErrConnectionNotFound)

	_, err = dir.PeerOf(ctx, "b1", "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestListSessions(t *testing.T) {
	dir := NewMemorySessionDirectory()
	ctx := context.Background()

	_, _ = dir.Join(ctx, "s2", "b2", domain.RoleBroadcaster)
	_, _ = dir.Join(ctx, "s1", "b1", domain.RoleBroadcaster)
	_, _ = dir.Join(ctx, "s1", "v1", domain.RoleViewer)

	sessions, err := dir.ListSessions(ctx)
	assert.NoError(t, err)
	assert.Len(t, sessions, 2)
	assert.Equal(t, domain.StreamID("s1"), sessions[0].StreamID)
	assert.Equal(t, []domain.ConnectionID{"v1"}, sessions[0].ViewerIDs)
	assert.Equal(t, domain.StreamID("s2"), sessions[1].StreamID)
}

// Single-broadcaster invariant under concurrent contention: many goroutines
// race for the same slot, exactly one may win.
func TestSingleBroadcasterUnderContention(t *testing.T) {
	dir := NewMemorySessionDirectory()
	ctx := context.Background()

	const contenders = 32
	var wg sync.WaitGroup
	wins := make(chan domain.ConnectionID, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := domain.ConnectionID(fmt.Sprintf("b%d", i))
			if _, err := dir.Join(ctx, "s1", id, domain.RoleBroadcaster); err == nil {
				wins <- id
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []domain.ConnectionID
	for id := range wins {
		winners = append(winners, id)
	}
	assert.Len(t, winners, 1)

	sess, err := dir.Session(ctx, "s1")
	assert.NoError(t, err)
	assert.Equal(t, winners[0], sess.BroadcasterID)
}
