// Package voice wires the capture encoder, the playback ring, and the agent
// transport into one duplex audio session.
package voice

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aliahq/voicebridge/internal/audio"
	"github.com/aliahq/voicebridge/internal/bridge"
	"github.com/aliahq/voicebridge/internal/config"
	"github.com/aliahq/voicebridge/pkg/pcm"
)

// Service owns the session lifecycle: device acquisition, transport
// connection, and the glue between them. All methods run on the control
// thread; the realtime paths it sets up communicate only through the ring and
// the transport's non-blocking send queue.
type Service struct {
	logger    *zap.Logger
	cfg       *config.Config
	ctrl      Controller
	transport Transport

	mu      sync.Mutex
	session *Session
}

// NewService creates the session service.
func NewService(logger *zap.Logger, cfg *config.Config, ctrl Controller, transport Transport) *Service {
	return &Service{
		logger:    logger,
		cfg:       cfg,
		ctrl:      ctrl,
		transport: transport,
	}
}

// Start acquires both devices and connects to the agent server. Sequencing
// matters: playback first so agent audio arriving immediately after the
// handshake has a ring to land in, capture last so no frames are produced
// before the transport can carry them.
func (s *Service) Start(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return nil, ErrSessionActive
	}

	session := &Session{
		ID:        uuid.NewString(),
		StartTime: time.Now(),
		State:     SessionStateStarting,
	}

	playback, err := s.ctrl.StartPlayback(func(sampleRate uint32) *audio.PlaybackRing {
		return audio.NewPlaybackRing(int(sampleRate) * s.cfg.Audio.MaxBufferSeconds)
	})
	if err != nil {
		return nil, err
	}
	session.playback = playback
	ring := playback.Ring()

	if err := s.transport.Connect(ctx, s.handlers(ring)); err != nil {
		playback.Stop()
		return nil, err
	}

	encoder := audio.NewCaptureEncoder(s.transport.SendAudio)
	capture, err := s.ctrl.StartCapture(encoder.OnAudioBlock)
	if err != nil {
		_ = s.transport.Close()
		playback.Stop()
		return nil, err
	}
	session.capture = capture

	session.State = SessionStateActive
	s.session = session

	s.logger.Info("Audio session started",
		zap.String("session_id", session.ID),
		zap.Uint32("capture_rate", session.CaptureRate()),
		zap.Uint32("playback_rate", session.PlaybackRate()),
		zap.Int("ring_capacity", ring.Stats().Capacity))

	return session, nil
}

// Stop tears the active session down in reverse start order. Idempotent:
// stopping with no active session is a no-op.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil
	}
	session := s.session
	session.State = SessionStateEnding

	session.capture.Stop()
	if err := s.transport.Close(); err != nil {
		s.logger.Warn("Failed to close agent connection", zap.Error(err))
	}
	session.playback.Stop()

	session.State = SessionStateEnded
	s.session = nil

	stats := session.playback.Ring().Stats()
	s.logger.Info("Audio session ended",
		zap.String("session_id", session.ID),
		zap.Duration("duration", time.Since(session.StartTime)),
		zap.Uint64("underruns", stats.Underruns),
		zap.Uint64("overruns", stats.Overruns))

	return nil
}

// Status returns the active session, or ErrNoSession.
func (s *Service) Status() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, ErrNoSession
	}
	return s.session, nil
}

// SendText forwards a typed user message alongside the audio stream.
func (s *Service) SendText(text string) {
	s.transport.SendText(text)
}

func (s *Service) handlers(ring *audio.PlaybackRing) bridge.Handlers {
	return bridge.Handlers{
		OnAudio: func(payload []byte) {
			ring.Enqueue(pcm.LEToInt16(payload))
		},
		OnTurnEvent: func(turnComplete, interrupted bool) {
			if interrupted {
				// Flush queued audio from the abandoned turn; at most
				// one in-flight hardware block of it is ever heard.
				ring.Reset()
				s.logger.Info("Turn interrupted, playback buffer flushed")
				return
			}
			if turnComplete {
				s.logger.Debug("Agent turn complete")
			}
		},
		OnText: func(text string) {
			s.logger.Debug("Agent text", zap.String("text", text))
		},
		OnError: func(err error) {
			s.logger.Error("Transport failed, ending session", zap.Error(err))
			_ = s.Stop()
		},
	}
}
