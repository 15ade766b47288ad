package domain

// Session is the per-stream membership record: at most one broadcaster plus
// any number of viewers. A connection id appears in at most one session at a
// time, and the broadcaster id is never also a viewer id.
type Session struct {
	StreamID      StreamID
	BroadcasterID ConnectionID // empty when the stream has no broadcaster
	ViewerIDs     []ConnectionID
}

// Empty reports whether the session has no members left and can be evicted.
func (s *Session) Empty() bool {
	return s.BroadcasterID == "" && len(s.ViewerIDs) == 0
}

// Members returns every connection id in the session, broadcaster first.
func (s *Session) Members() []ConnectionID {
	members := make([]ConnectionID, 0, len(s.ViewerIDs)+1)
	if s.BroadcasterID != "" {
		members = append(members, s.BroadcasterID)
	}
	return append(members, s.ViewerIDs...)
}

// JoinOutcome is what a successful join reports back to the caller.
// BroadcasterID is set for a joining viewer when the stream already has a
// broadcaster, so the caller knows whom the viewer will negotiate with.
type JoinOutcome struct {
	StreamID      StreamID
	Role          Role
	BroadcasterID ConnectionID
}
