package negotiation

import (
	"encoding/json"
	"fmt"
	"sync"

	webrtc "github.com/pion/webrtc/v3"
)

// Peer wraps a pion PeerConnection for signaling-driven negotiation. Offers,
// answers and candidates cross the wire as the JSON encodings of
// webrtc.SessionDescription and webrtc.ICECandidateInit; Peer converts at the
// boundary so callers only handle raw payload bytes.
type Peer struct {
	pc *webrtc.PeerConnection

	mu        sync.Mutex
	remoteSet bool
	pending   []webrtc.ICECandidateInit
}

// DefaultICEServers is the STUN configuration used when the caller supplies
// no servers of its own.
var DefaultICEServers = []webrtc.ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302"}},
}

func NewPeer(servers []webrtc.ICEServer) (*Peer, error) {
	if len(servers) == 0 {
		servers = DefaultICEServers
	}
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: servers})
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}
	return &Peer{pc: pc}, nil
}

// PeerConnection exposes the underlying pion connection for track setup.
func (p *Peer) PeerConnection() *webrtc.PeerConnection {
	return p.pc
}

// CreateOffer produces the local offer and returns its wire payload.
func (p *Peer) CreateOffer() (json.RawMessage, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("failed to set local description: %w", err)
	}
	return json.Marshal(offer)
}

// CreateAnswer applies the remote offer and produces the local answer.
func (p *Peer) CreateAnswer(offerPayload json.RawMessage) (json.RawMessage, error) {
	if err := p.ApplyRemoteDescription(offerPayload); err != nil {
		return nil, err
	}
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create answer: %w", err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("failed to set local description: %w", err)
	}
	return json.Marshal(answer)
}

// ApplyRemoteDescription sets the counterpart's session description and
// flushes any candidates that arrived before it.
func (p *Peer) ApplyRemoteDescription(payload json.RawMessage) error {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(payload, &desc); err != nil {
		return fmt.Errorf("invalid session description payload: %w", err)
	}
	if err := p.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("failed to set remote description: %w", err)
	}

	p.mu.Lock()
	p.remoteSet = true
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, cand := range pending {
		if err := p.pc.AddICECandidate(cand); err != nil {
			return fmt.Errorf("failed to apply buffered candidate: %w", err)
		}
	}
	return nil
}

// AddCandidate applies a remote ICE candidate. Candidates arriving before the
// remote description are buffered and applied in arrival order once it lands.
func (p *Peer) AddCandidate(payload json.RawMessage) error {
	var cand webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &cand); err != nil {
		return fmt.Errorf("invalid candidate payload: %w", err)
	}

	p.mu.Lock()
	if !p.remoteSet {
		p.pending = append(p.pending, cand)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := p.pc.AddICECandidate(cand); err != nil {
		return fmt.Errorf("failed to add candidate: %w", err)
	}
	return nil
}

// OnCandidate registers a callback receiving the wire payload of each local
// candidate as it is gathered. The final nil candidate is not reported.
func (p *Peer) OnCandidate(fn func(payload json.RawMessage)) {
	p.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		payload, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		fn(payload)
	})
}

// BindMachine drives the state machine from the transport's connectivity
// callback: established moves Negotiating to Connected, failure marks the
// machine Errored.
func (p *Peer) BindMachine(m *Machine) {
	p.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateConnected:
			_ = m.TransportEstablished()
		case webrtc.PeerConnectionStateFailed:
			m.Fail()
		case webrtc.PeerConnectionStateClosed:
			m.Close()
		}
	})
}

func (p *Peer) Close() error {
	return p.pc.Close()
}
