package audio

import (
	"github.com/aliahq/voicebridge/pkg/pcm"
)

// FrameConsumer receives one little-endian 16-bit PCM buffer per hardware
// block. The buffer is freshly allocated and never reused: it may be handed
// to the transport layer as-is.
type FrameConsumer func(frame []byte)

// CaptureEncoder converts native float blocks from the input device into
// little-endian 16-bit PCM frames and hands each one to the consumer. It is
// stateless per block: no buffering survives between calls, only the consumer
// registered at construction.
type CaptureEncoder struct {
	consumer FrameConsumer
}

// NewCaptureEncoder creates an encoder feeding the given consumer. The
// consumer must not be nil.
func NewCaptureEncoder(consumer FrameConsumer) *CaptureEncoder {
	return &CaptureEncoder{consumer: consumer}
}

// OnAudioBlock is called by the device layer once per hardware block, on the
// realtime capture thread. It never panics and never blocks: a malformed
// sample degrades to silence for that sample rather than dropping the block,
// so the transport sees an unbroken sequence of blocks. The consumer is
// invoked exactly once per call, synchronously, even for an empty block.
func (e *CaptureEncoder) OnAudioBlock(samples []float32) {
	frame := make([]byte, len(samples)*2)
	for i, x := range samples {
		s := pcm.FloatToInt16(x)
		frame[2*i] = byte(s)
		frame[2*i+1] = byte(s >> 8)
	}
	e.consumer(frame)
}
