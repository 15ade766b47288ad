package memory

import (
	"context"
	"sync"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/domain"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/ports"
)

// MemoryTickStore keeps per-stream tick counts in process memory. Counts for
// streams that never received a tick read as zero.
type MemoryTickStore struct {
	ticks map[domain.StreamID]uint64
	mu    sync.RWMutex
}

func NewMemoryTickStore() ports.TickStore {
	return &MemoryTickStore{
		ticks: make(map[domain.StreamID]uint64),
	}
}

func (s *MemoryTickStore) RecordTick(ctx context.Context, streamID domain.StreamID, ticks uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticks[streamID] += ticks
	return s.ticks[streamID], nil
}

func (s *MemoryTickStore) TickCount(ctx context.Context, streamID domain.StreamID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ticks[streamID], nil
}
