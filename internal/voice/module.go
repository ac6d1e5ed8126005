package voice

import (
	"go.uber.org/fx"

	"github.com/aliahq/voicebridge/internal/bridge"
	"github.com/aliahq/voicebridge/internal/device"
)

// Module provides the voice session service.
var Module = fx.Module("voice",
	fx.Provide(
		newController,
		newTransport,
		NewService,
	),
)

// controllerAdapter narrows the concrete device controller to the service's
// Controller interface.
type controllerAdapter struct {
	c *device.Controller
}

func newController(c *device.Controller) Controller {
	return controllerAdapter{c: c}
}

func (a controllerAdapter) StartCapture(onBlock device.BlockFunc) (CaptureHandle, error) {
	h, err := a.c.StartCapture(onBlock)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (a controllerAdapter) StartPlayback(newRing device.RingFactory) (PlaybackHandle, error) {
	h, err := a.c.StartPlayback(newRing)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func newTransport(c *bridge.Client) Transport {
	return c
}
