package device

// BlockFunc receives one block of native float samples per hardware period,
// on the realtime capture thread. The slice is only valid for the duration of
// the call; implementations that keep samples must copy them.
type BlockFunc func(samples []float32)

// RenderFunc fills dst with frameCount frames of channelCount interleaved
// channels and returns the keep-alive signal. It runs on the realtime render
// thread and must not block, allocate, or panic.
type RenderFunc func(dst []float32, frameCount, channelCount int) bool

// driver abstracts the platform audio subsystem so controller sequencing and
// handle state machines are testable without hardware.
type driver interface {
	openCapture(onBlock BlockFunc) (deviceHandle, error)
	openPlayback(render RenderFunc) (deviceHandle, error)
	close()
}

// deviceHandle wraps one opened hardware device. start registers the realtime
// callback with the host clock; stop deregisters it at the next callback
// boundary.
type deviceHandle interface {
	start() error
	stop() error
	sampleRate() uint32
	channels() uint32
	uninit()
}
