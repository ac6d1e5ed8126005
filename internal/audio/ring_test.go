package audio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliahq/voicebridge/internal/audio"
)

func TestPlaybackRing_EmptyRingIsSilence(t *testing.T) {
	ring := audio.NewPlaybackRing(4096)

	for _, frames := range []int{1, 128, 4096, 5000} {
		dst := make([]float32, frames)
		alive := ring.PullBlock(dst, frames, 1)
		require.True(t, alive)
		for i, s := range dst {
			require.Zerof(t, s, "sample %d of %d-frame pull", i, frames)
		}
	}
}

func TestPlaybackRing_OverflowKeepsFreshestSamples(t *testing.T) {
	const capacity = 256
	const extra = 40
	ring := audio.NewPlaybackRing(capacity)

	// Enqueue capacity+extra distinct samples; the first `extra` must be
	// silently overwritten, never played.
	total := capacity + extra
	samples := make([]int16, total)
	for i := range samples {
		samples[i] = int16(i + 1)
	}
	ring.Enqueue(samples)

	dst := make([]float32, capacity)
	ring.PullBlock(dst, capacity, 1)

	for i := 0; i < capacity; i++ {
		want := float32(samples[extra+i]) / 32768.0
		assert.InDelta(t, want, dst[i], 1e-6, "sample %d", i)
	}
	assert.Equal(t, uint64(1), ring.Stats().Overruns)
}

func TestPlaybackRing_ResetDropsStaleAudio(t *testing.T) {
	const n = 480
	ring := audio.NewPlaybackRing(48000)

	loud := make([]int16, n)
	for i := range loud {
		loud[i] = 16384
	}
	ring.Enqueue(loud)
	require.Equal(t, n, ring.Buffered())

	ring.Reset()
	require.Zero(t, ring.Buffered())

	dst := make([]float32, n)
	ring.PullBlock(dst, n, 1)
	for i, s := range dst {
		require.Zerof(t, s, "pre-reset sample audible at %d", i)
	}
}

func TestPlaybackRing_ResetSparesAudioEnqueuedAfter(t *testing.T) {
	ring := audio.NewPlaybackRing(1024)

	ring.Enqueue([]int16{100, 200, 300})
	ring.Reset()
	ring.Enqueue([]int16{16384, -16384})

	require.Equal(t, 2, ring.Buffered(), "only pre-reset audio is flushed")

	dst := make([]float32, 2)
	ring.PullBlock(dst, 2, 1)
	assert.InDelta(t, 0.5, dst[0], 1e-4)
	assert.InDelta(t, -0.5, dst[1], 1e-4)
}

func TestPlaybackRing_ResetDuringPullDoesNotMutePlayback(t *testing.T) {
	// An interruption can land anywhere inside a render callback. Whatever
	// the interleaving, audio enqueued after the reset must play without
	// waiting for the ring to refill.
	const attempts = 50
	for i := 0; i < attempts; i++ {
		ring := audio.NewPlaybackRing(48000)

		stale := make([]int16, 1024)
		for j := range stale {
			stale[j] = 8192
		}
		ring.Enqueue(stale)

		dst := make([]float32, 8192)
		done := make(chan struct{})
		go func() {
			defer close(done)
			ring.PullBlock(dst, 8192, 1)
		}()
		ring.Reset()
		<-done

		ring.Enqueue([]int16{16384, 16384, 16384, 16384})
		got := make([]float32, 4)
		ring.PullBlock(got, 4, 1)
		for j, s := range got {
			require.InDeltaf(t, 0.5, s, 1e-4, "attempt %d: sample %d muted after mid-pull reset", i, j)
		}
	}
}

func TestPlaybackRing_KeepAliveUnderSustainedPulls(t *testing.T) {
	ring := audio.NewPlaybackRing(1024)
	dst := make([]float32, 128*2)

	for i := 0; i < 10_000; i++ {
		require.True(t, ring.PullBlock(dst, 128, 2), "pull %d dropped keep-alive", i)
	}
}

func TestPlaybackRing_ChannelFanOut(t *testing.T) {
	ring := audio.NewPlaybackRing(1024)
	ring.Enqueue([]int16{16384, -16384, 0})

	dst := make([]float32, 6)
	ring.PullBlock(dst, 3, 2)

	want := []float32{0.5, 0.5, -0.5, -0.5, 0, 0}
	for i := range want {
		assert.InDelta(t, want[i], dst[i], 1e-4, "slot %d", i)
	}
}

func TestPlaybackRing_ReadsResumeAcrossPulls(t *testing.T) {
	ring := audio.NewPlaybackRing(64)
	ring.Enqueue([]int16{100, 200, 300, 400})

	dst := make([]float32, 2)
	ring.PullBlock(dst, 2, 1)
	assert.InDelta(t, 100.0/32768.0, dst[0], 1e-6)
	assert.InDelta(t, 200.0/32768.0, dst[1], 1e-6)

	ring.PullBlock(dst, 2, 1)
	assert.InDelta(t, 300.0/32768.0, dst[0], 1e-6)
	assert.InDelta(t, 400.0/32768.0, dst[1], 1e-6)

	// Drained: further pulls are silence, not stale data.
	ring.PullBlock(dst, 2, 1)
	assert.Zero(t, dst[0])
	assert.Zero(t, dst[1])
	assert.Equal(t, uint64(1), ring.Stats().Underruns)
}

func TestPlaybackRing_UnderrunThenRecovery(t *testing.T) {
	ring := audio.NewPlaybackRing(64)
	dst := make([]float32, 4)

	// Starve first, then deliver: the late data must still play from the
	// start, silence never advances the reader past the writer.
	ring.PullBlock(dst, 4, 1)
	ring.Enqueue([]int16{32767})
	ring.PullBlock(dst, 4, 1)

	assert.InDelta(t, 32767.0/32768.0, dst[0], 1e-6)
	assert.Zero(t, dst[1])
}

func TestPlaybackRing_WrapsManyTimes(t *testing.T) {
	const capacity = 100
	ring := audio.NewPlaybackRing(capacity)
	dst := make([]float32, 25)

	// Interleaved producer/consumer over several laps of the ring.
	next := int16(0)
	for round := 0; round < 50; round++ {
		chunk := make([]int16, 25)
		for i := range chunk {
			chunk[i] = next
			next++
		}
		ring.Enqueue(chunk)
		ring.PullBlock(dst, 25, 1)
		for i := range dst {
			want := float32(chunk[i]) / 32768.0
			require.InDelta(t, want, dst[i], 1e-6, "round %d sample %d", round, i)
		}
	}
	assert.Zero(t, ring.Stats().Underruns)
	assert.Zero(t, ring.Stats().Overruns)
}
