package callclient

import (
	"context"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// PeerLink abstracts the peer connection so the state machine can be
// exercised without ICE. Callback setters must be called before Start.
type PeerLink interface {
	// Start configures internal callbacks and binds the connection lifetime to ctx.
	Start(ctx context.Context) error
	// Close should stop all underlying media resources.
	Close()
	CreateOffer() (*webrtc.SessionDescription, error)
	ApplyOfferAndCreateAnswer(webrtc.SessionDescription) (*webrtc.SessionDescription, error)
	ApplyAnswer(webrtc.SessionDescription) error
	// AddICECandidate applies a remote ICE candidate.
	AddICECandidate(webrtc.ICECandidateInit) error
	AddLocalTrack(LocalTrack) error
	// OnICECandidate sets a callback for newly gathered local ICE candidates.
	OnICECandidate(func(webrtc.ICECandidateInit))
	// OnConnected fires once the peer connection reports connected.
	OnConnected(func())
	// OnClosed sets a callback for peer-connection teardown.
	OnClosed(func())
}

type webrtcLink struct {
	pc     *webrtc.PeerConnection
	cancel context.CancelFunc

	onICE       func(webrtc.ICECandidateInit)
	onConnected func()
	onClosed    func()
}

func DefaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

func NewWebRTCLink(cfg webrtc.Configuration) (PeerLink, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	return &webrtcLink{pc: pc}, nil
}

func (l *webrtcLink) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	l.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "callclient.peer").Str("ice_state", s.String()).Msg("ICE state")
		if s == webrtc.ICEConnectionStateDisconnected ||
			s == webrtc.ICEConnectionStateFailed ||
			s == webrtc.ICEConnectionStateClosed {
			cancel()
		}
	})

	l.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "callclient.peer").Str("peer_connection_state", s.String()).Msg("Peer state")
		switch s {
		case webrtc.PeerConnectionStateConnected:
			if l.onConnected != nil {
				l.onConnected()
			}
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			if l.onClosed != nil {
				l.onClosed()
			}
		}
	})

	l.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil && l.onICE != nil {
			l.onICE(cand.ToJSON())
		}
	})

	return nil
}

func (l *webrtcLink) CreateOffer() (*webrtc.SessionDescription, error) {
	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}

	gatherComplete := webrtc.GatheringCompletePromise(l.pc)
	if err := l.pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	<-gatherComplete

	return l.pc.LocalDescription(), nil
}

func (l *webrtcLink) ApplyOfferAndCreateAnswer(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if err := l.pc.SetRemoteDescription(offer); err != nil {
		return nil, err
	}
	answer, err := l.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}

	gatherComplete := webrtc.GatheringCompletePromise(l.pc)
	if err := l.pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	<-gatherComplete

	return l.pc.LocalDescription(), nil
}

func (l *webrtcLink) ApplyAnswer(answer webrtc.SessionDescription) error {
	return l.pc.SetRemoteDescription(answer)
}

func (l *webrtcLink) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return l.pc.AddICECandidate(ci)
}

func (l *webrtcLink) AddLocalTrack(t LocalTrack) error {
	_, err := l.pc.AddTrack(t.RTPTrack())
	return err
}

func (l *webrtcLink) Close() {
	if l.cancel != nil {
		l.cancel()
	}
	if l.pc != nil {
		if err := l.pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "callclient.peer").Msg("close error")
		}
	}
}

func (l *webrtcLink) OnICECandidate(fn func(webrtc.ICECandidateInit)) { l.onICE = fn }
func (l *webrtcLink) OnConnected(fn func())                           { l.onConnected = fn }
func (l *webrtcLink) OnClosed(fn func())                              { l.onClosed = fn }
