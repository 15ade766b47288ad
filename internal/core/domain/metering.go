package domain

import "time"

// StreamUsage is the billing view of one stream: how many viewer-second
// ticks have been recorded for it so far.
type StreamUsage struct {
	StreamID  StreamID  `json:"stream_id"`
	Ticks     uint64    `json:"ticks"`
	UpdatedAt time.Time `json:"updated_at"`
}
