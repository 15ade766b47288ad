package domain

import "time"

type ConnectionID string
type StreamID string

// Role is the part a connection plays in a stream session. A connection is
// unassigned until its join message is accepted.
type Role string

const (
	RoleUnassigned  Role = ""
	RoleBroadcaster Role = "broadcaster"
	RoleViewer      Role = "viewer"
)

// Valid reports whether r is a role a client may request in a join message.
func (r Role) Valid() bool {
	return r == RoleBroadcaster || r == RoleViewer
}

// Connection is the registry's record of one open transport link. The id is
// generated server-side at accept time; role and stream are set when the join
// message is accepted.
type Connection struct {
	ID          ConnectionID
	Role        Role
	StreamID    StreamID
	RemoteAddr  string
	ConnectedAt time.Time
}
