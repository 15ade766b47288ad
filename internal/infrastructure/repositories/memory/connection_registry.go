package memory

import (
	"sync"
	"time"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/domain"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/ports"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/pkg/utils"
)

type registryEntry struct {
	conn   domain.Connection
	sender ports.Sender
}

// MemoryConnectionRegistry is the mutex-guarded owner of all open transport
// connections. Connections are keyed by a generated id with 128 bits of
// entropy, so collisions within a process lifetime are negligible.
type MemoryConnectionRegistry struct {
	entries map[domain.ConnectionID]*registryEntry
	mu      sync.RWMutex
}

func NewMemoryConnectionRegistry() ports.ConnectionRegistry {
	return &MemoryConnectionRegistry{
		entries: make(map[domain.ConnectionID]*registryEntry),
	}
}

func (r *MemoryConnectionRegistry) Register(sender ports.Sender, remoteAddr string) domain.ConnectionID {
	id := domain.ConnectionID(utils.GenerateConnectionID())

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[id] = &registryEntry{
		conn: domain.Connection{
			ID:          id,
			Role:        domain.RoleUnassigned,
			RemoteAddr:  remoteAddr,
			ConnectedAt: time.Now(),
		},
		sender: sender,
	}
	return id
}

func (r *MemoryConnectionRegistry) Get(id domain.ConnectionID) (*domain.Connection, ports.Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[id]
	if !exists {
		return nil, nil, false
	}

	conn := entry.conn
	return &conn, entry.sender, true
}

func (r *MemoryConnectionRegistry) SetMembership(id domain.ConnectionID, streamID domain.StreamID, role domain.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, exists := r.entries[id]; exists {
		entry.conn.StreamID = streamID
		entry.conn.Role = role
	}
}

func (r *MemoryConnectionRegistry) Remove(id domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, id)
}

// ForEach calls fn for every registered connection. The callback runs with a
// snapshot taken under the read lock, so fn may enqueue messages freely.
func (r *MemoryConnectionRegistry) ForEach(fn func(conn *domain.Connection, sender ports.Sender)) {
	r.mu.RLock()
	snapshot := make([]*registryEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		snapshot = append(snapshot, entry)
	}
	r.mu.RUnlock()

	for _, entry := range snapshot {
		conn := entry.conn
		fn(&conn, entry.sender)
	}
}

func (r *MemoryConnectionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
