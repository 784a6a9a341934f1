// Package callclient drives a consultation call end to end: local media
// acquisition, the peer-connection handshake over the signaling relay,
// and in-call chat. It is the native-Go counterpart of the browser call
// component and shares its state machine.
package callclient

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/vitalslink/telecare/internal/domain"
)

type State string

const (
	StateIdle            State = "idle"
	StateRequestingMedia State = "requesting-media"
	StateMediaReady      State = "media-ready"
	StateConnecting      State = "connecting"
	StateInCall          State = "in-call"
	StateEnded           State = "ended"
)

// Signaler is the client's view of the signaling transport.
type Signaler interface {
	JoinRoom(room domain.RoomID, p domain.Participant) error
	SendSignal(room domain.RoomID, body SignalBody) error
	SendChat(room domain.RoomID, message string) error
	LeaveRoom() error
	Close()
}

// SignalBody is the payload the relay carries opaquely between the two
// peers: a session description or an ICE candidate.
type SignalBody struct {
	Kind      string                   `json:"kind"` // offer | answer | candidate
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}

type ChatHandler func(msg domain.ChatMessage)

// Client is the per-participant call state machine.
type Client struct {
	Room        domain.RoomID
	Participant domain.Participant

	media MediaSource
	link  PeerLink

	mu     sync.Mutex
	state  State
	sig    Signaler
	tracks []LocalTrack
	err    error

	onState StateHandler
	onChat  ChatHandler
	endOnce sync.Once
}

type StateHandler func(State)

type Option func(*Client)

func WithStateHandler(fn StateHandler) Option {
	return func(c *Client) { c.onState = fn }
}

func WithChatHandler(fn ChatHandler) Option {
	return func(c *Client) { c.onChat = fn }
}

func New(room domain.RoomID, p domain.Participant, media MediaSource, link PeerLink, opts ...Option) *Client {
	c := &Client{
		Room:        room,
		Participant: p,
		media:       media,
		link:        link,
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err reports the terminal error, if the call ended on one.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Start acquires local media and joins the consultation room. A media
// failure (permission denied, no device) is terminal: the call ends
// without ever touching the signaling room.
func (c *Client) Start(ctx context.Context, sig Signaler) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.sig = sig
	c.mu.Unlock()
	c.setState(StateRequestingMedia)

	tracks, err := c.media.Acquire(ctx)
	if err != nil {
		log.Error().Err(err).Str("module", "callclient").Msg("media acquisition failed")
		c.end(err)
		return err
	}
	c.mu.Lock()
	c.tracks = tracks
	c.mu.Unlock()
	c.setState(StateMediaReady)

	for _, t := range tracks {
		if err := c.link.AddLocalTrack(t); err != nil {
			c.end(err)
			return err
		}
	}

	c.link.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		_ = c.sig.SendSignal(c.Room, SignalBody{Kind: "candidate", Candidate: &ci})
	})
	c.link.OnConnected(func() {
		c.setState(StateInCall)
	})
	c.link.OnClosed(func() {
		c.end(nil)
	})
	if err := c.link.Start(ctx); err != nil {
		c.end(err)
		return err
	}

	if err := sig.JoinRoom(c.Room, c.Participant); err != nil {
		c.end(err)
		return err
	}
	return nil
}

// HandleRoomState receives the membership snapshot sent on admission.
// When a peer is already present, this side initiates the offer; the
// first joiner waits to be called.
func (c *Client) HandleRoomState(members []domain.Participant) {
	others := 0
	for _, m := range members {
		if m.ID != c.Participant.ID {
			others++
		}
	}
	if others == 0 {
		return
	}
	if !c.transition(StateMediaReady, StateConnecting) {
		return
	}
	offer, err := c.link.CreateOffer()
	if err != nil {
		log.Error().Err(err).Str("module", "callclient").Msg("create offer")
		c.end(err)
		return
	}
	_ = c.sig.SendSignal(c.Room, SignalBody{Kind: "offer", SDP: offer.SDP})
}

// HandlePeerJoined is presence only; the handshake starts when the
// joiner's offer arrives.
func (c *Client) HandlePeerJoined(p domain.Participant) {
	log.Info().Str("module", "callclient").Str("peer", string(p.ID)).Msg("peer joined")
}

// HandlePeerLeft ends the call: consultations are pairwise, there is
// nobody left to talk to.
func (c *Client) HandlePeerLeft(p domain.Participant) {
	log.Info().Str("module", "callclient").Str("peer", string(p.ID)).Msg("peer left")
	c.end(nil)
}

// HandleSignal applies a relayed description or candidate.
func (c *Client) HandleSignal(from domain.ParticipantID, body SignalBody) {
	switch body.Kind {
	case "offer":
		c.transition(StateMediaReady, StateConnecting)
		answer, err := c.link.ApplyOfferAndCreateAnswer(webrtc.SessionDescription{
			Type: webrtc.SDPTypeOffer,
			SDP:  body.SDP,
		})
		if err != nil {
			log.Error().Err(err).Str("module", "callclient").Msg("apply offer")
			c.end(err)
			return
		}
		_ = c.sig.SendSignal(c.Room, SignalBody{Kind: "answer", SDP: answer.SDP})
	case "answer":
		if err := c.link.ApplyAnswer(webrtc.SessionDescription{
			Type: webrtc.SDPTypeAnswer,
			SDP:  body.SDP,
		}); err != nil {
			log.Error().Err(err).Str("module", "callclient").Msg("apply answer")
			c.end(err)
		}
	case "candidate":
		if body.Candidate == nil {
			return
		}
		if err := c.link.AddICECandidate(*body.Candidate); err != nil {
			log.Error().Err(err).Str("module", "callclient").Msg("add ice candidate")
		}
	default:
		log.Warn().Str("module", "callclient").Str("kind", body.Kind).Msg("unknown signal body")
	}
}

// HandleChat surfaces a delivered room message, including the echo of
// this client's own sends. The wire frame omits the room, so it is
// filled in here.
func (c *Client) HandleChat(msg domain.ChatMessage) {
	msg.RoomID = c.Room
	if c.onChat != nil {
		c.onChat(msg)
	}
}

// HandleTransportClosed ends the call on signaling transport loss.
func (c *Client) HandleTransportClosed(err error) {
	c.end(err)
}

// SendChat delivers a chat line to the room; the server echoes it back
// with the authoritative timestamp.
func (c *Client) SendChat(message string) error {
	c.mu.Lock()
	sig := c.sig
	c.mu.Unlock()
	if sig == nil {
		return ErrNotStarted
	}
	return sig.SendChat(c.Room, message)
}

// Mute toggles local audio tracks. Side effect only; the call state does
// not change.
func (c *Client) Mute(muted bool) {
	c.setTracksEnabled("audio", !muted)
}

// SetVideoEnabled toggles local video tracks without changing state.
func (c *Client) SetVideoEnabled(enabled bool) {
	c.setTracksEnabled("video", enabled)
}

func (c *Client) setTracksEnabled(kind string, enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tracks {
		if t.Kind() == kind {
			t.SetEnabled(enabled)
		}
	}
}

// Hangup ends the call locally and tells the room.
func (c *Client) Hangup() {
	c.mu.Lock()
	sig := c.sig
	c.mu.Unlock()
	if sig != nil {
		_ = sig.LeaveRoom()
	}
	c.end(nil)
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	if c.state == StateEnded {
		c.mu.Unlock()
		return
	}
	c.state = s
	fn := c.onState
	c.mu.Unlock()
	log.Info().Str("module", "callclient").Str("state", string(s)).Msg("state change")
	if fn != nil {
		fn(s)
	}
}

// transition moves from exactly one state to another; reports whether it
// happened.
func (c *Client) transition(from, to State) bool {
	c.mu.Lock()
	if c.state != from {
		c.mu.Unlock()
		return false
	}
	c.state = to
	fn := c.onState
	c.mu.Unlock()
	log.Info().Str("module", "callclient").Str("state", string(to)).Msg("state change")
	if fn != nil {
		fn(to)
	}
	return true
}

// end is the single terminal path; explicit hangup, peer departure,
// transport loss and media failure all funnel here exactly once.
func (c *Client) end(err error) {
	c.endOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.state = StateEnded
		fn := c.onState
		sig := c.sig
		c.mu.Unlock()

		c.link.Close()
		c.media.Release()
		if sig != nil {
			sig.Close()
		}
		log.Info().Err(err).Str("module", "callclient").Msg("call ended")
		if fn != nil {
			fn(StateEnded)
		}
	})
}
