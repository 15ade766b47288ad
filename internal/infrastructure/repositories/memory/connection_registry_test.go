package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/domain"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/ports"
)

type stubSender struct {
	enqueued []domain.SignalMessage
}

func (s *stubSender) Enqueue(msg domain.SignalMessage) bool {
	s.enqueued = append(s.enqueued, msg)
	return true
}

func (s *stubSender) Close() {}

func TestRegisterAndGet(t *testing.T) {
	reg := NewMemoryConnectionRegistry()
	sender := &stubSender{}

	id := reg.Register(sender, "10.0.0.1:50000")
	assert.NotEmpty(t, id)

	conn, got, ok := reg.Get(id)
	assert.True(t, ok)
	assert.Equal(t, id, conn.ID)
	assert.Equal(t, domain.RoleUnassigned, conn.Role)
	assert.Equal(t, "10.0.0.1:50000", conn.RemoteAddr)
	assert.Same(t, ports.Sender(sender), got)
}

func TestRegisterGeneratesUniqueIDs(t *testing.T) {
	reg := NewMemoryConnectionRegistry()

	seen := make(map[domain.ConnectionID]bool)
	for i := 0; i < 100; i++ {
		id := reg.Register(&stubSender{}, "")
		assert.False(t, seen[id], "duplicate connection id %s", id)
		seen[id] = true
	}
	assert.Equal(t, 100, reg.Count())
}

func TestSetMembership(t *testing.T) {
	reg := NewMemoryConnectionRegistry()
	id := reg.Register(&stubSender{}, "")

	reg.SetMembership(id, "s1", domain.RoleViewer)
	conn, _, _ := reg.Get(id)
	assert.Equal(t, domain.StreamID("s1"), conn.StreamID)
	assert.Equal(t, domain.RoleViewer, conn.Role)

	// Membership calls on unknown ids are no-ops.
	reg.SetMembership("ghost", "s1", domain.RoleViewer)
}

func TestRemove(t *testing.T) {
	reg := NewMemoryConnectionRegistry()
	id := reg.Register(&stubSender{}, "")

	reg.Remove(id)
	_, _, ok := reg.Get(id)
	assert.False(t, ok)
	assert.Zero(t, reg.Count())

	// Removing twice is harmless.
	reg.Remove(id)
}

func TestForEach(t *testing.T) {
	reg := NewMemoryConnectionRegistry()
	id1 := reg.Register(&stubSender{}, "")
	id2 := reg.Register(&stubSender{}, "")

	visited := make(map[domain.ConnectionID]bool)
	reg.ForEach(func(conn *domain.Connection, sender ports.Sender) {
		visited[conn.ID] = true
		assert.NotNil(t, sender)
	})

	assert.True(t, visited[id1])
	assert.True(t, visited[id2])
	assert.Len(t, visited, 2)
}
