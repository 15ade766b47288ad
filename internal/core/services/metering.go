package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/domain"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/ports"
)

// Metering records pay-per-second usage ticks. A tick is only accepted for a
// viewer that is currently a member of the stream's session, so a billing
// client cannot meter a stream it is not watching.
type Metering struct {
	ticks     ports.TickStore
	directory ports.SessionDirectory
	metrics   ports.MetricsRecorder
	logger    *zap.SugaredLogger

	autoTicks    bool
	tickInterval time.Duration
}

func NewMetering(ticks ports.TickStore, directory ports.SessionDirectory, metrics ports.MetricsRecorder, logger *zap.SugaredLogger, autoTicks bool, tickInterval time.Duration) *Metering {
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	return &Metering{
		ticks:        ticks,
		directory:    directory,
		metrics:      metrics,
		logger:       logger,
		autoTicks:    autoTicks,
		tickInterval: tickInterval,
	}
}

func (m *Metering) RecordTick(ctx context.Context, streamID domain.StreamID, viewerID domain.ConnectionID, ticks uint64) (uint64, error) {
	sess, err := m.directory.Session(ctx, streamID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return 0, domain.ErrViewerNotInStream
		}
		return 0, err
	}

	isViewer := false
	for _, id := range sess.ViewerIDs {
		if id == viewerID {
			isViewer = true
			break
		}
	}
	if !isViewer {
		return 0, domain.ErrViewerNotInStream
	}

	total, err := m.ticks.RecordTick(ctx, streamID, ticks)
	if err != nil {
		return 0, err
	}
	m.metrics.RecordTicks(streamID, ticks)
	return total, nil
}

func (m *Metering) TickCount(ctx context.Context, streamID domain.StreamID) (domain.StreamUsage, error) {
	count, err := m.ticks.TickCount(ctx, streamID)
	if err != nil {
		return domain.StreamUsage{}, err
	}
	return domain.StreamUsage{
		StreamID:  streamID,
		Ticks:     count,
		UpdatedAt: time.Now(),
	}, nil
}

// Run drives server-side auto metering: one tick per connected viewer per
// interval. It is a no-op unless auto ticks are enabled, so deployments that
// meter through an external ticker do not double-count.
func (m *Metering) Run(ctx context.Context) {
	if !m.autoTicks {
		return
	}

	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	m.logger.Infow("auto metering started", "interval", m.tickInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.recordAll(ctx)
		}
	}
}

func (m *Metering) recordAll(ctx context.Context) {
	sessions, err := m.directory.ListSessions(ctx)
	if err != nil {
		m.logger.Warnw("auto metering: failed to list sessions", "error", err)
		return
	}

	for _, sess := range sessions {
		viewers := uint64(len(sess.ViewerIDs))
		if viewers == 0 {
			continue
		}
		if _, err := m.ticks.RecordTick(ctx, sess.StreamID, viewers); err != nil {
			m.logger.Warnw("auto metering: failed to record ticks",
				"stream_id", sess.StreamID,
				"error", err,
			)
			continue
		}
		m.metrics.RecordTicks(sess.StreamID, viewers)
	}
}
