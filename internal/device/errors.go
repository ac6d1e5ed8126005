package device

import "errors"

var (
	// ErrDeviceUnavailable reports that no usable input/output device exists
	// or the platform refused access. Fatal for the session attempt,
	// recoverable by retrying after remediation.
	ErrDeviceUnavailable = errors.New("audio device unavailable")

	// ErrModuleLoad reports that the processing callback could not be bound
	// to the platform audio context. Fatal for the session; there is no
	// degraded playback mode.
	ErrModuleLoad = errors.New("audio processing module failed to load")
)
