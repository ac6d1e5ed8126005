// Package bridge implements the websocket transport to the agent server. It
// is the only collaborator of the audio core: capture frames flow out through
// SendAudio, decoded agent audio and turn-boundary control events flow in
// through the registered handlers.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aliahq/voicebridge/internal/config"
	"github.com/aliahq/voicebridge/pkg/util"
)

// Handlers receive inbound traffic. They are invoked from the read pump
// goroutine, one at a time, and must not block for long.
type Handlers struct {
	// OnAudio receives a decoded little-endian 16-bit PCM payload.
	OnAudio func(pcm []byte)

	// OnText receives a partial text response.
	OnText func(text string)

	// OnTurnEvent receives turn-boundary control frames. interrupted means
	// queued playback audio belongs to an abandoned turn.
	OnTurnEvent func(turnComplete, interrupted bool)

	// OnError receives transport failures after which the connection is dead.
	OnError func(err error)
}

// Client is a websocket client for the agent server's audio protocol. One
// client serves one session; Connect then Close, no reuse.
type Client struct {
	logger   *zap.Logger
	cfg      *config.ServerConfig
	handlers Handlers

	conn        *websocket.Conn
	sendQ       chan Envelope
	idleTimeout time.Duration
	frameSeen   chan struct{}
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewClient creates a disconnected client. The client is reusable: each
// Connect arms a fresh pump lifecycle, so one session may follow another.
func NewClient(logger *zap.Logger, cfg *config.Config) *Client {
	return &Client{
		logger:      logger,
		cfg:         &cfg.Server,
		sendQ:       make(chan Envelope, cfg.Audio.SendQueueDepth),
		idleTimeout: time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
		frameSeen:   make(chan struct{}, 1),
	}
}

// Connect dials the agent server and starts the read/write pumps. Handlers
// must be set before any audio arrives, so they are taken here rather than
// registered later.
func (c *Client) Connect(ctx context.Context, handlers Handlers) error {
	endpoint, err := c.endpoint()
	if err != nil {
		return err
	}

	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial agent server: %w", err)
	}
	// Audio sessions stream large base64 frames.
	conn.SetReadLimit(1 << 22)

	c.conn = conn
	c.handlers = handlers

	// Frames queued by a previous session must not leak into this one.
	for len(c.sendQ) > 0 {
		<-c.sendQ
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	done := make(chan struct{})
	c.done = done

	go c.run(pumpCtx, done)

	c.logger.Info("Connected to agent server", zap.String("endpoint", endpoint))

	return nil
}

// SendAudio queues one capture frame for delivery. It never blocks: when the
// queue is full the frame is dropped, because stalling the capture path is
// worse than losing a block.
func (c *Client) SendAudio(pcm []byte) {
	select {
	case c.sendQ <- newAudioEnvelope(pcm):
	default:
		c.logger.Warn("Send queue full, dropping capture frame",
			zap.Int("frame_bytes", len(pcm)))
	}
}

// SendText queues a user text message.
func (c *Client) SendText(text string) {
	select {
	case c.sendQ <- newTextEnvelope(text):
	default:
		c.logger.Warn("Send queue full, dropping text message")
	}
}

// Close tears the connection down and waits for the pumps to exit.
// Idempotent; the client can Connect again afterwards.
func (c *Client) Close() error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	<-c.done
	c.cancel = nil
	return nil
}

func (c *Client) run(ctx context.Context, done chan struct{}) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readPump(ctx) })
	g.Go(func() error { return c.writePump(ctx) })
	if c.idleTimeout > 0 {
		g.Go(func() error { return c.watchdog(ctx) })
	}

	err := g.Wait()
	_ = c.conn.Close(websocket.StatusNormalClosure, "session ended")

	// Unblock Close before surfacing the error: OnError handlers are
	// allowed to call Close themselves.
	close(done)

	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("Agent connection failed", zap.Error(err))
		if c.handlers.OnError != nil {
			c.handlers.OnError(err)
		}
	}
}

func (c *Client) readPump(ctx context.Context) error {
	for {
		var env Envelope
		if err := wsjson.Read(ctx, c.conn, &env); err != nil {
			return fmt.Errorf("read agent frame: %w", err)
		}
		select {
		case c.frameSeen <- struct{}{}:
		default:
		}
		c.dispatch(&env)
	}
}

// watchdog ends the session when the server goes silent for longer than the
// configured idle timeout. Any inbound frame, audio or control, counts as
// traffic.
func (c *Client) watchdog(ctx context.Context) error {
	d := util.NewDebouncer(c.idleTimeout)
	defer d.Stop()

	for {
		select {
		case <-c.frameSeen:
			d.Reset()
		case <-d.C():
			return fmt.Errorf("no agent traffic for %s", c.idleTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) writePump(ctx context.Context) error {
	for {
		select {
		case env := <-c.sendQ:
			if err := wsjson.Write(ctx, c.conn, env); err != nil {
				return fmt.Errorf("write agent frame: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) dispatch(env *Envelope) {
	if env.IsControl() {
		turnComplete := env.TurnComplete != nil && *env.TurnComplete
		interrupted := env.Interrupted != nil && *env.Interrupted
		c.logger.Debug("Turn boundary",
			zap.Bool("turn_complete", turnComplete),
			zap.Bool("interrupted", interrupted))
		if c.handlers.OnTurnEvent != nil {
			c.handlers.OnTurnEvent(turnComplete, interrupted)
		}
		return
	}

	switch env.MimeType {
	case MimeAudioPCM:
		pcm, err := env.AudioPayload()
		if err != nil {
			c.logger.Warn("Malformed audio frame", zap.Error(err))
			return
		}
		if c.handlers.OnAudio != nil {
			c.handlers.OnAudio(pcm)
		}

	case MimeText:
		text, err := env.TextPayload()
		if err != nil {
			c.logger.Warn("Malformed text frame", zap.Error(err))
			return
		}
		if c.handlers.OnText != nil {
			c.handlers.OnText(text)
		}

	case MimeJSON:
		// Server-side state summaries; informational only.
		c.logger.Debug("Agent state update", zap.ByteString("payload", env.Data))

	default:
		c.logger.Debug("Unhandled frame", zap.String("mime_type", env.MimeType))
	}
}

func (c *Client) endpoint() (string, error) {
	base, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", c.cfg.URL, err)
	}

	userID := c.cfg.UserID
	if userID == "" {
		userID = uuid.NewString()
	}

	base = base.JoinPath("ws", userID)
	q := base.Query()
	q.Set("is_audio", "true")
	base.RawQuery = q.Encode()

	return base.String(), nil
}
