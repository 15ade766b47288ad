package signalclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/pkg/validation"
)

// Message is the wire envelope of the signaling protocol as seen by a client.
type Message struct {
	Type         string          `json:"type"`
	StreamID     string          `json:"stream_id,omitempty"`
	Role         string          `json:"role,omitempty"`
	PeerID       string          `json:"peer_id,omitempty"`
	TargetID     string          `json:"target_id,omitempty"`
	SourceID     string          `json:"source_id,omitempty"`
	ConnectionID string          `json:"connection_id,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Reason       string          `json:"reason,omitempty"`
}

// Handlers receives decoded inbound frames. Unset handlers drop their frames.
// All handlers run on the client's single read goroutine.
type Handlers struct {
	OnJoined     func(streamID string)
	OnPeerJoined func(peerID, streamID string)
	OnOffer      func(sourceID string, payload json.RawMessage)
	OnAnswer     func(sourceID string, payload json.RawMessage)
	OnCandidate  func(sourceID string, payload json.RawMessage)
	OnPeerLeft   func(connectionID string)
	OnError      func(reason string)
	OnClose      func(err error)
}

// Client is a websocket signaling client. It handles framing and dispatch;
// negotiation policy lives in the caller, typically a negotiation.Machine
// plus a negotiation.Peer per counterpart.
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	handlers Handlers
	logger   *zap.SugaredLogger
}

// Dial connects to the relay and starts the read loop.
func Dial(ctx context.Context, url string, handlers Handlers, logger *zap.SugaredLogger) (*Client, error) {
	if err := validation.ValidateURL(url); err != nil {
		return nil, fmt.Errorf("invalid signaling URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	c := &Client{
		conn:     conn,
		handlers: handlers,
		logger:   logger,
	}
	go c.readLoop()
	return c, nil
}

// Join requests membership in a stream with the given role.
func (c *Client) Join(streamID, role string) error {
	if err := validation.ValidateStreamID(streamID); err != nil {
		return err
	}
	if err := validation.ValidateRole(role); err != nil {
		return err
	}
	return c.send(Message{Type: "join", StreamID: streamID, Role: role})
}

// SendOffer sends a session description offer to the target connection.
func (c *Client) SendOffer(targetID, streamID string, payload json.RawMessage) error {
	return c.send(Message{Type: "offer", TargetID: targetID, StreamID: streamID, Payload: payload})
}

// SendAnswer sends a session description answer to the target connection.
func (c *Client) SendAnswer(targetID, streamID string, payload json.RawMessage) error {
	return c.send(Message{Type: "answer", TargetID: targetID, StreamID: streamID, Payload: payload})
}

// SendCandidate sends an ICE candidate to the target connection.
func (c *Client) SendCandidate(targetID, streamID string, payload json.RawMessage) error {
	return c.send(Message{Type: "ice_candidate", TargetID: targetID, StreamID: streamID, Payload: payload})
}

func (c *Client) send(msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

// Close closes the transport. The relay's lifecycle cleanup takes it from
// there; the client does not send an explicit leave.
func (c *Client) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

func (c *Client) readLoop() {
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if c.handlers.OnClose != nil {
				c.handlers.OnClose(err)
			}
			return
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg Message) {
	switch msg.Type {
	case "joined":
		if c.handlers.OnJoined != nil {
			c.handlers.OnJoined(msg.StreamID)
		}
	case "peer_joined":
		if c.handlers.OnPeerJoined != nil {
			c.handlers.OnPeerJoined(msg.PeerID, msg.StreamID)
		}
	case "offer":
		if c.handlers.OnOffer != nil {
			c.handlers.OnOffer(msg.SourceID, msg.Payload)
		}
	case "answer":
		if c.handlers.OnAnswer != nil {
			c.handlers.OnAnswer(msg.SourceID, msg.Payload)
		}
	case "ice_candidate":
		if c.handlers.OnCandidate != nil {
			c.handlers.OnCandidate(msg.SourceID, msg.Payload)
		}
	case "peer_left":
		if c.handlers.OnPeerLeft != nil {
			c.handlers.OnPeerLeft(msg.ConnectionID)
		}
	case "error":
		if c.handlers.OnError != nil {
			c.handlers.OnError(msg.Reason)
		}
	default:
		c.logger.Debugw("ignoring unknown frame", "type", msg.Type)
	}
}
