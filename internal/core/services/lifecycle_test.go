package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/domain"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/infrastructure/repositories/memory"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/pkg/logger"
)

type lifecycleFixture struct {
	routerFixture
	lifecycle *Lifecycle
}

func newLifecycleFixture() *lifecycleFixture {
	registry := memory.NewMemoryConnectionRegistry()
	directory := memory.NewMemorySessionDirectory()
	metrics := &countingMetrics{}
	return &lifecycleFixture{
		routerFixture: routerFixture{
			router:   NewRouter(registry, directory, metrics, logger.Nop()),
			registry: registry,
			metrics:  metrics,
		},
		lifecycle: NewLifecycle(registry, directory, metrics, logger.Nop()),
	}
}

func TestDisconnectNotifiesRemaining(t *testing.T) {
	f := newLifecycleFixture()
	bID, bSender := f.connect(t)
	v1ID, v1Sender := f.connect(t)
	v2ID, v2Sender := f.connect(t)
	f.join(t, bID, bSender, "s1", domain.RoleBroadcaster)
	f.join(t, v1ID, v1Sender, "s1", domain.RoleViewer)
	f.join(t, v2ID, v2Sender, "s1", domain.RoleViewer)

	f.lifecycle.HandleDisconnect(context.Background(), v1ID)

	for _, sender := range []*fakeSender{bSender, v2Sender} {
		left := sender.byType(domain.MessageTypePeerLeft)
		assert.Len(t, left, 1, "each remaining member gets exactly one peer_left")
		assert.Equal(t, v1ID, left[0].ConnectionID)
	}
	assert.Empty(t, v1Sender.byType(domain.MessageTypePeerLeft),
		"the departed connection itself gets nothing")

	_, _, ok := f.registry.Get(v1ID)
	assert.False(t, ok, "registry entry is removed")
}

func TestBroadcasterDisconnectFreesSlot(t *testing.T) {
	f := newLifecycleFixture()
	bID, bSender := f.connect(t)
	vID, vSender := f.connect(t)
	f.join(t, bID, bSender, "s1", domain.RoleBroadcaster)
	f.join(t, vID, vSender, "s1", domain.RoleViewer)

	f.lifecycle.HandleDisconnect(context.Background(), bID)

	left := vSender.byType(domain.MessageTypePeerLeft)
	assert.Len(t, left, 1)
	assert.Equal(t, bID, left[0].ConnectionID)

	// A replacement broadcaster can claim the slot on a fresh connection.
	b2ID, b2Sender := f.connect(t)
	f.join(t, b2ID, b2Sender, "s1", domain.RoleBroadcaster)
}

func TestDisconnectBeforeJoin(t *testing.T) {
	f := newLifecycleFixture()
	cID, _ := f.connect(t)

	f.lifecycle.HandleDisconnect(context.Background(), cID)

	_, _, ok := f.registry.Get(cID)
	assert.False(t, ok)
}

func TestDisconnectIdempotent(t *testing.T) {
	f := newLifecycleFixture()
	bID, bSender := f.connect(t)
	vID, vSender := f.connect(t)
	f.join(t, bID, bSender, "s1", domain.RoleBroadcaster)
	f.join(t, vID, vSender, "s1", domain.RoleViewer)

	f.lifecycle.HandleDisconnect(context.Background(), vID)
	f.lifecycle.HandleDisconnect(context.Background(), vID)

	assert.Len(t, bSender.byType(domain.MessageTypePeerLeft), 1,
		"repeated cleanup must not renotify")
}

func TestDisconnectCountsDropOnFullQueue(t *testing.T) {
	f := newLifecycleFixture()
	bID, bSender := f.connect(t)
	vID, vSender := f.connect(t)
	f.join(t, bID, bSender, "s1", domain.RoleBroadcaster)
	f.join(t, vID, vSender, "s1", domain.RoleViewer)

	bSender.full = true
	f.lifecycle.HandleDisconnect(context.Background(), vID)

	assert.Equal(t, 1, f.metrics.drops)
}
