package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/domain"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/ports"
)

type session struct {
	broadcasterID domain.ConnectionID
	viewerIDs     map[domain.ConnectionID]struct{}
}

// MemorySessionDirectory maps stream ids to sessions under a single mutex,
// which makes join/leave/lookups atomic relative to each other. A reverse
// index connection->stream keeps Leave O(1) and idempotent.
type MemorySessionDirectory struct {
	sessions map[domain.StreamID]*session
	byConn   map[domain.ConnectionID]domain.StreamID
	mu       sync.RWMutex
}

func NewMemorySessionDirectory() ports.SessionDirectory {
	return &MemorySessionDirectory{
		sessions: make(map[domain.StreamID]*session),
		byConn:   make(map[domain.ConnectionID]domain.StreamID),
	}
}

func (d *MemorySessionDirectory) Join(ctx context.Context, streamID domain.StreamID, connID domain.ConnectionID, role domain.Role) (domain.JoinOutcome, error) {
	if streamID == "" {
		return domain.JoinOutcome{}, domain.ErrEmptyStreamID
	}
	if !role.Valid() {
		return domain.JoinOutcome{}, domain.ErrInvalidRole
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, member := d.byConn[connID]; member {
		return domain.JoinOutcome{}, domain.ErrAlreadyJoined
	}

	sess, exists := d.sessions[streamID]
	if !exists {
		sess = &session{viewerIDs: make(map[domain.ConnectionID]struct{})}
		d.sessions[streamID] = sess
	}

	outcome := domain.JoinOutcome{StreamID: streamID, Role: role}

	switch role {
	case domain.RoleBroadcaster:
		if sess.broadcasterID != "" {
			// The incumbent keeps the slot; the new join is rejected without
			// mutating the session.
			return domain.JoinOutcome{}, domain.ErrBroadcasterExists
		}
		sess.broadcasterID = connID
	case domain.RoleViewer:
		sess.viewerIDs[connID] = struct{}{}
		outcome.BroadcasterID = sess.broadcasterID
	}

	d.byConn[connID] = streamID
	return outcome, nil
}

func (d *MemorySessionDirectory) Leave(ctx context.Context, connID domain.ConnectionID) (domain.StreamID, []domain.ConnectionID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	streamID, member := d.byConn[connID]
	if !member {
		return "", nil, false
	}
	delete(d.byConn, connID)

	sess, exists := d.sessions[streamID]
	if !exists {
		// Reverse index pointed at a missing session; purge and move on.
		return "", nil, false
	}

	if sess.broadcasterID == connID {
		sess.broadcasterID = ""
	} else {
		delete(sess.viewerIDs, connID)
	}

	remaining := sessionMembers(sess)
	if len(remaining) == 0 {
		delete(d.sessions, streamID)
	}
	return streamID, remaining, true
}

func (d *MemorySessionDirectory) PeerOf(ctx context.Context, connID domain.ConnectionID, streamID domain.StreamID) ([]domain.ConnectionID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	sess, exists := d.sessions[streamID]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}

	if sess.broadcasterID == connID {
		viewers := make([]domain.ConnectionID, 0, len(sess.viewerIDs))
		for id := range sess.viewerIDs {
			viewers = append(viewers, id)
		}
		sort.Slice(viewers, func(i, j int) bool { return viewers[i] < viewers[j] })
		return viewers, nil
	}

	if _, viewer := sess.viewerIDs[connID]; !viewer {
		return nil, domain.ErrConnectionNotFound
	}
	if sess.broadcasterID == "" {
		return nil, nil
	}
	return []domain.ConnectionID{sess.broadcasterID}, nil
}

func (d *MemorySessionDirectory) Session(ctx context.Context, streamID domain.StreamID) (*domain.Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	sess, exists := d.sessions[streamID]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}
	return snapshotSession(streamID, sess), nil
}

func (d *MemorySessionDirectory) ListSessions(ctx context.Context) ([]*domain.Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	sessions := make([]*domain.Session, 0, len(d.sessions))
	for streamID, sess := range d.sessions {
		sessions = append(sessions, snapshotSession(streamID, sess))
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StreamID < sessions[j].StreamID })
	return sessions, nil
}

func (d *MemorySessionDirectory) SessionCount(ctx context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.sessions), nil
}

func sessionMembers(sess *session) []domain.ConnectionID {
	members := make([]domain.ConnectionID, 0, len(sess.viewerIDs)+1)
	if sess.broadcasterID != "" {
		members = append(members, sess.broadcasterID)
	}
	for id := range sess.viewerIDs {
		members = append(members, id)
	}
	return members
}

func snapshotSession(streamID domain.StreamID, sess *session) *domain.Session {
	viewers := make([]domain.ConnectionID, 0, len(sess.viewerIDs))
	for id := range sess.viewerIDs {
		viewers = append(viewers, id)
	}
	sort.Slice(viewers, func(i, j int) bool { return viewers[i] < viewers[j] })

	return &domain.Session{
		StreamID:      streamID,
		BroadcasterID: sess.broadcasterID,
		ViewerIDs:     viewers,
	}
}
