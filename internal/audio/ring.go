package audio

import (
	"sync/atomic"

	"github.com/aliahq/voicebridge/pkg/pcm"
)

// PlaybackRing decouples bursty network delivery from the strictly periodic
// hardware render callback. It is a single-producer/single-consumer ring of
// normalized float samples: exactly one goroutine calls Enqueue (the network
// delivery path) and exactly one calls PullBlock (the device render
// callback). Under that ownership split the two monotonically increasing
// indices are the only shared state and no locks are needed.
//
// The ring never blocks in either direction. When the writer laps the reader
// the oldest unread samples are overwritten (freshest data wins — latency is
// worse than a dropped sample). When the reader catches the writer it emits
// silence instead of stale data.
type PlaybackRing struct {
	buf      []float32
	capacity uint64

	// Monotonic sample counts, taken modulo capacity for addressing.
	// writeIdx is advanced only by Enqueue, readIdx only by PullBlock.
	// Reset never touches either: it publishes a flush marker that the
	// reader consumes at the next callback boundary. With exactly one
	// writer per index there is no store to lose.
	writeIdx atomic.Uint64
	readIdx  atomic.Uint64

	// flushed marks everything enqueued before the last Reset as dead.
	// Written on the producer side, consumed by the reader as a floor for
	// its index.
	flushed atomic.Uint64

	underruns atomic.Uint64
	overruns  atomic.Uint64
}

// RingStats is a point-in-time snapshot of ring counters.
type RingStats struct {
	Capacity  int
	Buffered  int
	Underruns uint64
	Overruns  uint64
}

// NewPlaybackRing creates a ring holding capacity mono samples. Capacity is
// sized by the caller as sampleRate×maxLatencySeconds so the buffer absorbs
// worst-case network delay.
func NewPlaybackRing(capacity int) *PlaybackRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &PlaybackRing{
		buf:      make([]float32, capacity),
		capacity: uint64(capacity),
	}
}

// Reset discards everything enqueued so far, so queued audio from an
// interrupted turn is never played. Samples enqueued after Reset play
// normally. A render callback already in flight may still emit up to one
// block of old audio; callers must not assume synchronous silence.
//
// Reset is safe against a concurrent PullBlock: it only publishes the flush
// marker, the reader indices stay under their owners.
func (r *PlaybackRing) Reset() {
	r.flushed.Store(r.writeIdx.Load())
}

// Enqueue converts int16 samples to normalized floats and appends them at the
// write index. It never fails and never blocks; on overflow the oldest unread
// samples are silently overwritten.
func (r *PlaybackRing) Enqueue(samples []int16) {
	w := r.writeIdx.Load()
	for _, s := range samples {
		r.buf[w%r.capacity] = pcm.Int16ToFloat(s)
		w++
	}
	// Publish once so the reader observes whole-call progress.
	r.writeIdx.Store(w)
}

// PullBlock fills dst with frameCount frames of channelCount interleaved
// channels, duplicating the mono source across channels. Missing data is
// filled with silence. dst must hold frameCount*channelCount samples. The
// return value is the keep-alive signal and is always true: the host clock
// must keep requesting audio while a session is active.
//
// PullBlock runs on the realtime audio thread: no allocation, no locks, no
// error path.
func (r *PlaybackRing) PullBlock(dst []float32, frameCount, channelCount int) bool {
	w := r.writeIdx.Load()
	rd := r.readIdx.Load()

	// Consume a pending flush: everything before the marker is dead.
	if f := r.flushed.Load(); f > rd {
		rd = f
	}

	// If the writer lapped us the data between rd and w-capacity is gone;
	// skip ahead so only the freshest samples play.
	if w-rd > r.capacity {
		r.overruns.Add(1)
		rd = w - r.capacity
	}

	starved := false
	for i := 0; i < frameCount; i++ {
		var s float32
		if rd < w {
			s = r.buf[rd%r.capacity]
			rd++
		} else {
			starved = true
		}
		base := i * channelCount
		for c := 0; c < channelCount; c++ {
			dst[base+c] = s
		}
	}
	if starved {
		r.underruns.Add(1)
	}

	r.readIdx.Store(rd)
	return true
}

// Buffered returns the number of unread samples. Advisory only; the value is
// immediately stale.
func (r *PlaybackRing) Buffered() int {
	w := r.writeIdx.Load()
	rd := r.readIdx.Load()
	if f := r.flushed.Load(); f > rd {
		rd = f
	}
	if w < rd {
		return 0
	}
	n := w - rd
	if n > r.capacity {
		n = r.capacity
	}
	return int(n)
}

// Stats returns a snapshot of the ring counters.
func (r *PlaybackRing) Stats() RingStats {
	return RingStats{
		Capacity:  int(r.capacity),
		Buffered:  r.Buffered(),
		Underruns: r.underruns.Load(),
		Overruns:  r.overruns.Load(),
	}
}
