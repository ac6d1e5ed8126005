// Package pcm provides pure sample-format conversion between normalized
// float32 audio and 16-bit little-endian PCM.
package pcm

import "math"

// FloatToInt16 converts a normalized sample to a signed 16-bit sample.
// Out-of-range input is clamped, never rejected; NaN degrades to silence.
func FloatToInt16(x float32) int16 {
	if math.IsNaN(float64(x)) {
		return 0
	}
	if x > 1.0 {
		x = 1.0
	} else if x < -1.0 {
		x = -1.0
	}
	return int16(x * 32767)
}

// Int16ToFloat converts a signed 16-bit sample to a normalized float sample.
func Int16ToFloat(s int16) float32 {
	return float32(s) / 32768.0
}

// Int16ToLE converts int16 samples to raw little-endian bytes.
func Int16ToLE(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}

// LEToInt16 converts raw little-endian bytes back to int16 samples.
// A trailing odd byte is ignored.
func LEToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(b[2*i]) | int16(b[2*i+1])<<8
	}
	return out
}
