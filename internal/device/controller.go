// Package device owns hardware acquisition and release. Everything here runs
// on the control thread; the realtime capture/render callbacks registered
// through the driver only touch the lock-free structures handed to them at
// start, never this package's locks.
package device

import (
	"sync"

	"go.uber.org/zap"

	"github.com/aliahq/voicebridge/internal/audio"
)

// SessionState is the lifecycle of one device handle. Stopped is terminal: a
// stopped session never returns to Active, callers construct a new one.
type SessionState int

const (
	SessionStateUninitialized SessionState = iota
	SessionStateActive
	SessionStateStopped
)

// Controller acquires input/output devices and binds the realtime processing
// units to them. One capture and one playback session exist per audio
// session; the controller itself is shared and long-lived.
type Controller struct {
	logger *zap.Logger

	mu  sync.Mutex
	drv driver
}

// NewController creates a controller. The platform audio context is not
// touched until the first Start call, so construction never fails.
func NewController(logger *zap.Logger) *Controller {
	return &Controller{logger: logger}
}

// StartCapture opens the default input device at its native sample rate and
// registers onBlock as the per-period capture callback. All suspension
// (context init, device open, permission checks) happens here, strictly
// before the realtime callback runs.
//
// Returns ErrDeviceUnavailable when no input device exists or access is
// denied, ErrModuleLoad when the processing callback cannot be bound.
func (c *Controller) StartCapture(onBlock BlockFunc) (*CaptureSession, error) {
	drv, err := c.driver()
	if err != nil {
		return nil, err
	}

	h, err := drv.openCapture(onBlock)
	if err != nil {
		return nil, err
	}

	if err := h.start(); err != nil {
		h.uninit()
		return nil, err
	}

	s := &CaptureSession{session: session{handle: h, state: SessionStateActive, logger: c.logger}}

	c.logger.Info("Capture started",
		zap.Uint32("native_sample_rate", h.sampleRate()),
		zap.Uint32("channels", h.channels()))

	return s, nil
}

// RingFactory builds the playback ring once the output device has reported
// its native sample rate, so capacity can be sized as rate×maxLatency.
type RingFactory func(sampleRate uint32) *audio.PlaybackRing

// StartPlayback opens the default output device, builds the ring via newRing
// at the negotiated native rate, and drives ring.PullBlock from the render
// callback, fanning the mono ring out to however many channels the device
// reports.
func (c *Controller) StartPlayback(newRing RingFactory) (*PlaybackSession, error) {
	drv, err := c.driver()
	if err != nil {
		return nil, err
	}

	// The render callback is bound before the ring exists; the ring is
	// assigned below, strictly before start registers the callback with
	// the host clock.
	var ring *audio.PlaybackRing
	h, err := drv.openPlayback(func(dst []float32, frameCount, channelCount int) bool {
		return ring.PullBlock(dst, frameCount, channelCount)
	})
	if err != nil {
		return nil, err
	}

	ring = newRing(h.sampleRate())

	if err := h.start(); err != nil {
		h.uninit()
		return nil, err
	}

	s := &PlaybackSession{session: session{handle: h, state: SessionStateActive, logger: c.logger}, ring: ring}

	c.logger.Info("Playback started",
		zap.Uint32("native_sample_rate", h.sampleRate()),
		zap.Uint32("channels", h.channels()))

	return s, nil
}

// Close releases the platform audio context. Sessions must be stopped first.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.drv != nil {
		c.drv.close()
		c.drv = nil
	}
}

func (c *Controller) driver() (driver, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.drv == nil {
		drv, err := newMalgoDriver(c.logger)
		if err != nil {
			return nil, err
		}
		c.drv = drv
	}
	return c.drv, nil
}

// session is the shared handle state machine.
type session struct {
	logger *zap.Logger

	mu     sync.Mutex
	handle deviceHandle
	state  SessionState
}

// Stop releases the underlying hardware. Idempotent: stopping twice, or a
// handle that never became active, is a no-op. Takes effect at the next
// callback boundary, not immediately.
func (s *session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionStateActive {
		return
	}
	s.state = SessionStateStopped

	if err := s.handle.stop(); err != nil {
		s.logger.Warn("Failed to stop audio device", zap.Error(err))
	}
	s.handle.uninit()
}

// State reports the handle's lifecycle state.
func (s *session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SampleRate reports the negotiated native rate of the opened device. Zero
// once the session is stopped.
func (s *session) SampleRate() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionStateActive {
		return 0
	}
	return s.handle.sampleRate()
}

// CaptureSession is an active microphone acquisition.
type CaptureSession struct {
	session
}

// PlaybackSession is an active output device driving a PlaybackRing.
type PlaybackSession struct {
	session
	ring *audio.PlaybackRing
}

// Ring returns the ring buffer feeding this playback device.
func (s *PlaybackSession) Ring() *audio.PlaybackRing {
	return s.ring
}
