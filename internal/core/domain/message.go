package domain

import "encoding/json"

// Message type tags carried in the "type" field of every signaling frame.
const (
	MessageTypeJoin         = "join"
	MessageTypeJoined       = "joined"
	MessageTypePeerJoined   = "peer_joined"
	MessageTypeOffer        = "offer"
	MessageTypeAnswer       = "answer"
	MessageTypeICECandidate = "ice_candidate"
	MessageTypePeerLeft     = "peer_left"
	MessageTypeError        = "error"
)

// Error reasons sent in error frames.
const (
	ErrorReasonBroadcasterExists = "broadcaster_exists"
	ErrorReasonAlreadyJoined     = "already_joined"
	ErrorReasonUnknownType       = "unknown_message_type"
	ErrorReasonMalformed         = "malformed_message"
	ErrorReasonInvalidJoin       = "invalid_join"
)

// SignalMessage is the wire envelope for every signaling frame, inbound and
// outbound. Payload carries the negotiation blob (a session description or an
// ICE candidate) and is forwarded byte-for-byte, never parsed by the relay.
type SignalMessage struct {
	Type         string          `json:"type"`
	StreamID     StreamID        `json:"stream_id,omitempty"`
	Role         Role            `json:"role,omitempty"`
	PeerID       ConnectionID    `json:"peer_id,omitempty"`
	TargetID     ConnectionID    `json:"target_id,omitempty"`
	SourceID     ConnectionID    `json:"source_id,omitempty"`
	ConnectionID ConnectionID    `json:"connection_id,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Reason       string          `json:"reason,omitempty"`
}

// Outbound is a routed message addressed to one connection.
type Outbound struct {
	Target  ConnectionID
	Message SignalMessage
}

func NewErrorMessage(reason string) SignalMessage {
	return SignalMessage{Type: MessageTypeError, Reason: reason}
}

func NewJoinedMessage(streamID StreamID) SignalMessage {
	return SignalMessage{Type: MessageTypeJoined, StreamID: streamID}
}

func NewPeerJoinedMessage(peer ConnectionID, streamID StreamID) SignalMessage {
	return SignalMessage{Type: MessageTypePeerJoined, PeerID: peer, StreamID: streamID}
}

func NewPeerLeftMessage(conn ConnectionID) SignalMessage {
	return SignalMessage{Type: MessageTypePeerLeft, ConnectionID: conn}
}
