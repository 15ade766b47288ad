package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/domain"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/ports"
)

// RedisSessionDirectory keeps session membership in Redis so several relay
// instances can share one directory. The broadcaster slot is claimed with
// SETNX, which gives the same atomic check-and-set the memory directory gets
// from its mutex: when two broadcasters race, exactly one SETNX wins.
type RedisSessionDirectory struct {
	client *redis.Client
	prefix string
}

type connMembership struct {
	StreamID domain.StreamID `json:"stream_id"`
	Role     domain.Role     `json:"role"`
}

func NewRedisSessionDirectory(client *redis.Client) ports.SessionDirectory {
	return &RedisSessionDirectory{
		client: client,
		prefix: "vilokanam:",
	}
}

func (d *RedisSessionDirectory) connKey(id domain.ConnectionID) string {
	return d.prefix + "conn:" + string(id)
}

func (d *RedisSessionDirectory) broadcasterKey(streamID domain.StreamID) string {
	return fmt.Sprintf("%sstream:%s:broadcaster", d.prefix, streamID)
}

func (d *RedisSessionDirectory) viewersKey(streamID domain.StreamID) string {
	return fmt.Sprintf("%sstream:%s:viewers", d.prefix, streamID)
}

func (d *RedisSessionDirectory) streamsKey() string {
	return d.prefix + "streams"
}

func (d *RedisSessionDirectory) Join(ctx context.Context, streamID domain.StreamID, connID domain.ConnectionID, role domain.Role) (domain.JoinOutcome, error) {
	if streamID == "" {
		return domain.JoinOutcome{}, domain.ErrEmptyStreamID
	}
	if !role.Valid() {
		return domain.JoinOutcome{}, domain.ErrInvalidRole
	}

	membership, err := json.Marshal(connMembership{StreamID: streamID, Role: role})
	if err != nil {
		return domain.JoinOutcome{}, fmt.Errorf("failed to marshal membership: %w", err)
	}

	// Claiming the connection key first keeps a connection in at most one
	// session even when joins race.
	claimed, err := d.client.SetNX(ctx, d.connKey(connID), membership, 0).Result()
	if err != nil {
		return domain.JoinOutcome{}, fmt.Errorf("failed to claim connection key: %w", err)
	}
	if !claimed {
		return domain.JoinOutcome{}, domain.ErrAlreadyJoined
	}

	outcome := domain.JoinOutcome{StreamID: streamID, Role: role}

	switch role {
	case domain.RoleBroadcaster:
		won, err := d.client.SetNX(ctx, d.broadcasterKey(streamID), string(connID), 0).Result()
		if err != nil {
			d.client.Del(ctx, d.connKey(connID))
			return domain.JoinOutcome{}, fmt.Errorf("failed to claim broadcaster slot: %w", err)
		}
		if !won {
			d.client.Del(ctx, d.connKey(connID))
			return domain.JoinOutcome{}, domain.ErrBroadcasterExists
		}
	case domain.RoleViewer:
		if err := d.client.SAdd(ctx, d.viewersKey(streamID), string(connID)).Err(); err != nil {
			d.client.Del(ctx, d.connKey(connID))
			return domain.JoinOutcome{}, fmt.Errorf("failed to add viewer to stream set: %w", err)
		}
		broadcaster, err := d.client.Get(ctx, d.broadcasterKey(streamID)).Result()
		if err != nil && err != redis.Nil {
			return domain.JoinOutcome{}, fmt.Errorf("failed to read broadcaster slot: %w", err)
		}
		outcome.BroadcasterID = domain.ConnectionID(broadcaster)
	}

	if err := d.client.SAdd(ctx, d.streamsKey(), string(streamID)).Err(); err != nil {
		return domain.JoinOutcome{}, fmt.Errorf("failed to index stream: %w", err)
	}
	return outcome, nil
}

func (d *RedisSessionDirectory) Leave(ctx context.Context, connID domain.ConnectionID) (domain.StreamID, []domain.ConnectionID, bool) {
	data, err := d.client.GetDel(ctx, d.connKey(connID)).Result()
	if err != nil {
		// redis.Nil means the connection never joined; Leave is a no-op.
		return "", nil, false
	}

	var membership connMembership
	if err := json.Unmarshal([]byte(data), &membership); err != nil {
		return "", nil, false
	}
	streamID := membership.StreamID

	if membership.Role == domain.RoleBroadcaster {
		current, err := d.client.Get(ctx, d.broadcasterKey(streamID)).Result()
		if err == nil && current == string(connID) {
			d.client.Del(ctx, d.broadcasterKey(streamID))
		}
	} else {
		d.client.SRem(ctx, d.viewersKey(streamID), string(connID))
	}

	remaining := d.members(ctx, streamID)
	if len(remaining) == 0 {
		d.client.SRem(ctx, d.streamsKey(), string(streamID))
	}
	return streamID, remaining, true
}

func (d *RedisSessionDirectory) PeerOf(ctx context.Context, connID domain.ConnectionID, streamID domain.StreamID) ([]domain.ConnectionID, error) {
	broadcaster, err := d.client.Get(ctx, d.broadcasterKey(streamID)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read broadcaster slot: %w", err)
	}

	if broadcaster == string(connID) {
		viewers, err := d.client.SMembers(ctx, d.viewersKey(streamID)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read stream viewers: %w", err)
		}
		sort.Strings(viewers)
		ids := make([]domain.ConnectionID, 0, len(viewers))
		for _, v := range viewers {
			ids = append(ids, domain.ConnectionID(v))
		}
		return ids, nil
	}

	isViewer, err := d.client.SIsMember(ctx, d.viewersKey(streamID), string(connID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check stream membership: %w", err)
	}
	if !isViewer {
		return nil, domain.ErrConnectionNotFound
	}
	if broadcaster == "" {
		return nil, nil
	}
	return []domain.ConnectionID{domain.ConnectionID(broadcaster)}, nil
}

func (d *RedisSessionDirectory) Session(ctx context.Context, streamID domain.StreamID) (*domain.Session, error) {
	exists, err := d.client.SIsMember(ctx, d.streamsKey(), string(streamID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check stream index: %w", err)
	}
	if !exists {
		return nil, domain.ErrSessionNotFound
	}
	return d.snapshot(ctx, streamID)
}

func (d *RedisSessionDirectory) ListSessions(ctx context.Context) ([]*domain.Session, error) {
	streamIDs, err := d.client.SMembers(ctx, d.streamsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list streams: %w", err)
	}
	sort.Strings(streamIDs)

	sessions := make([]*domain.Session, 0, len(streamIDs))
	for _, id := range streamIDs {
		sess, err := d.snapshot(ctx, domain.StreamID(id))
		if err != nil {
			continue
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

func (d *RedisSessionDirectory) SessionCount(ctx context.Context) (int, error) {
	count, err := d.client.SCard(ctx, d.streamsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count streams: %w", err)
	}
	return int(count), nil
}

func (d *RedisSessionDirectory) members(ctx context.Context, streamID domain.StreamID) []domain.ConnectionID {
	var members []domain.ConnectionID

	broadcaster, err := d.client.Get(ctx, d.broadcasterKey(streamID)).Result()
	if err == nil && broadcaster != "" {
		members = append(members, domain.ConnectionID(broadcaster))
	}

	viewers, err := d.client.SMembers(ctx, d.viewersKey(streamID)).Result()
	if err == nil {
		for _, v := range viewers {
			members = append(members, domain.ConnectionID(v))
		}
	}
	return members
}

func (d *RedisSessionDirectory) snapshot(ctx context.Context, streamID domain.StreamID) (*domain.Session, error) {
	broadcaster, err := d.client.Get(ctx, d.broadcasterKey(streamID)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read broadcaster slot: %w", err)
	}

	viewers, err := d.client.SMembers(ctx, d.viewersKey(streamID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stream viewers: %w", err)
	}
	sort.Strings(viewers)

	viewerIDs := make([]domain.ConnectionID, 0, len(viewers))
	for _, v := range viewers {
		viewerIDs = append(viewerIDs, domain.ConnectionID(v))
	}

	return &domain.Session{
		StreamID:      streamID,
		BroadcasterID: domain.ConnectionID(broadcaster),
		ViewerIDs:     viewerIDs,
	}, nil
}
