package callclient

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

var (
	ErrNoDevice       = errors.New("no capture device available")
	ErrAlreadyStarted = errors.New("call already started")
	ErrNotStarted     = errors.New("call not started")
)

// MediaSource acquires the local tracks for a call. Acquisition is
// asynchronous and never blocks the signaling transport.
type MediaSource interface {
	Acquire(ctx context.Context) ([]LocalTrack, error)
	Release()
}

// LocalTrack is a live local media track. Enable toggles (mute, camera
// off) act on the track alone and never change call state.
type LocalTrack interface {
	Kind() string // audio | video
	SetEnabled(bool)
	Enabled() bool
	RTPTrack() webrtc.TrackLocal
}

// sampleTrack wraps a pion static sample track with a mute flag the
// sample writer honors.
type sampleTrack struct {
	kind    string
	track   *webrtc.TrackLocalStaticSample
	enabled atomic.Bool
}

func (t *sampleTrack) Kind() string                { return t.kind }
func (t *sampleTrack) SetEnabled(v bool)           { t.enabled.Store(v) }
func (t *sampleTrack) Enabled() bool               { return t.enabled.Load() }
func (t *sampleTrack) RTPTrack() webrtc.TrackLocal { return t.track }

// WriteSample forwards a captured sample; disabled tracks swallow
// samples so the peer simply hears/sees nothing.
func (t *sampleTrack) WriteSample(s media.Sample) error {
	if !t.enabled.Load() {
		return nil
	}
	return t.track.WriteSample(s)
}

// SampleMediaSource builds Opus/VP8 sample tracks fed by the embedding
// application (capture pipelines live outside this package).
type SampleMediaSource struct {
	Audio bool
	Video bool

	tracks []LocalTrack
}

func NewSampleMediaSource(audio, video bool) *SampleMediaSource {
	return &SampleMediaSource{Audio: audio, Video: video}
}

func (s *SampleMediaSource) Acquire(ctx context.Context) ([]LocalTrack, error) {
	if !s.Audio && !s.Video {
		return nil, ErrNoDevice
	}
	var out []LocalTrack
	if s.Audio {
		t, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
			"audio", "telecare",
		)
		if err != nil {
			return nil, err
		}
		st := &sampleTrack{kind: "audio", track: t}
		st.enabled.Store(true)
		out = append(out, st)
	}
	if s.Video {
		t, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
			"video", "telecare",
		)
		if err != nil {
			return nil, err
		}
		st := &sampleTrack{kind: "video", track: t}
		st.enabled.Store(true)
		out = append(out, st)
	}
	s.tracks = out
	return out, nil
}

func (s *SampleMediaSource) Release() {
	s.tracks = nil
}

// Tracks exposes the acquired tracks to the capture pipeline.
func (s *SampleMediaSource) Tracks() []LocalTrack {
	return s.tracks
}
