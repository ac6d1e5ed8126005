package voice

import (
	"context"
	"errors"
	"time"

	"github.com/aliahq/voicebridge/internal/audio"
	"github.com/aliahq/voicebridge/internal/bridge"
	"github.com/aliahq/voicebridge/internal/device"
)

// SessionState represents the current state of an audio session.
type SessionState int

const (
	SessionStateStarting SessionState = iota
	SessionStateActive
	SessionStateEnding
	SessionStateEnded
)

var (
	ErrSessionActive = errors.New("audio session already active")
	ErrNoSession     = errors.New("no active audio session")
)

// CaptureHandle is the service's view of an acquired input device.
type CaptureHandle interface {
	Stop()
	SampleRate() uint32
	State() device.SessionState
}

// PlaybackHandle is the service's view of an acquired output device.
type PlaybackHandle interface {
	Stop()
	SampleRate() uint32
	State() device.SessionState
	Ring() *audio.PlaybackRing
}

// Controller abstracts device acquisition for the service.
type Controller interface {
	StartCapture(onBlock device.BlockFunc) (CaptureHandle, error)
	StartPlayback(newRing device.RingFactory) (PlaybackHandle, error)
}

// Transport abstracts the agent connection for the service.
type Transport interface {
	Connect(ctx context.Context, handlers bridge.Handlers) error
	SendAudio(pcm []byte)
	SendText(text string)
	Close() error
}

// Session is one live microphone-to-agent-to-speaker bridge. Exactly one
// capture encoder and one playback ring exist per session.
type Session struct {
	ID        string
	StartTime time.Time

	State SessionState

	capture  CaptureHandle
	playback PlaybackHandle
}

// CaptureRate reports the negotiated input device rate.
func (s *Session) CaptureRate() uint32 {
	return s.capture.SampleRate()
}

// PlaybackRate reports the negotiated output device rate. It may legitimately
// differ from the capture rate; no resampling happens in this client.
func (s *Session) PlaybackRate() uint32 {
	return s.playback.SampleRate()
}
