package device

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"
)

// malgoDriver is the production driver backed by miniaudio. All calls here
// are control-thread only; the data callbacks it registers are the only code
// that runs on the realtime threads.
type malgoDriver struct {
	ctx    *malgo.AllocatedContext
	logger *zap.Logger
}

func newMalgoDriver(logger *zap.Logger) (*malgoDriver, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		logger.Debug("miniaudio", zap.String("message", strings.TrimSpace(msg)))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: platform context init: %v", ErrDeviceUnavailable, err)
	}

	return &malgoDriver{ctx: ctx, logger: logger}, nil
}

func (d *malgoDriver) openCapture(onBlock BlockFunc) (deviceHandle, error) {
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = 1
	// SampleRate stays 0: the device's native rate is negotiated, never
	// forced. Capture and playback may legitimately run at different rates.
	cfg.Alsa.NoMMap = 1

	// Scratch buffer reused across callbacks; the capture thread is the
	// only writer and onBlock consumers copy before returning.
	var scratch []float32

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			n := int(frameCount)
			if cap(scratch) < n {
				scratch = make([]float32, n)
			}
			block := scratch[:n]
			decodeF32LE(block, input)
			onBlock(block)
		},
	}

	dev, err := malgo.InitDevice(d.ctx.Context, cfg, callbacks)
	if err != nil {
		return nil, fmt.Errorf("%w: bind capture callback: %v", ErrModuleLoad, err)
	}

	return &malgoHandle{dev: dev, chans: dev.CaptureChannels()}, nil
}

func (d *malgoDriver) openPlayback(render RenderFunc) (deviceHandle, error) {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatF32
	// Channels and SampleRate stay 0 so the device's native layout wins.
	cfg.Alsa.NoMMap = 1

	var scratch []float32
	channelCount := 0 // set after the device reports its layout, before start

	callbacks := malgo.DeviceCallbacks{
		Data: func(output, _ []byte, frameCount uint32) {
			n := int(frameCount) * channelCount
			if cap(scratch) < n {
				scratch = make([]float32, n)
			}
			buf := scratch[:n]
			render(buf, int(frameCount), channelCount)
			encodeF32LE(output, buf)
		},
	}

	dev, err := malgo.InitDevice(d.ctx.Context, cfg, callbacks)
	if err != nil {
		return nil, fmt.Errorf("%w: bind render callback: %v", ErrModuleLoad, err)
	}

	channelCount = int(dev.PlaybackChannels())

	return &malgoHandle{dev: dev, chans: dev.PlaybackChannels()}, nil
}

func (d *malgoDriver) close() {
	if err := d.ctx.Uninit(); err != nil {
		d.logger.Warn("Failed to uninit platform audio context", zap.Error(err))
	}
	d.ctx.Free()
}

type malgoHandle struct {
	dev   *malgo.Device
	chans uint32
}

func (h *malgoHandle) start() error {
	if err := h.dev.Start(); err != nil {
		return fmt.Errorf("%w: start device: %v", ErrDeviceUnavailable, err)
	}
	return nil
}

func (h *malgoHandle) stop() error {
	return h.dev.Stop()
}

func (h *malgoHandle) sampleRate() uint32 {
	return h.dev.SampleRate()
}

func (h *malgoHandle) channels() uint32 {
	return h.chans
}

func (h *malgoHandle) uninit() {
	h.dev.Uninit()
}

func decodeF32LE(dst []float32, src []byte) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[4*i:]))
	}
}

func encodeF32LE(dst []byte, src []float32) {
	for i, s := range src {
		binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(s))
	}
}
