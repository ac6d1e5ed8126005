package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aliahq/voicebridge/internal/config"
)

func TestEnvelope_AudioRoundTrip(t *testing.T) {
	pcm := []byte{0x00, 0x40, 0x00, 0xC0, 0x00, 0x00}

	env := newAudioEnvelope(pcm)
	assert.Equal(t, MimeAudioPCM, env.MimeType)

	wire, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(wire, &decoded))
	assert.False(t, decoded.IsControl())

	got, err := decoded.AudioPayload()
	require.NoError(t, err)
	assert.Equal(t, pcm, got)
}

func TestEnvelope_ParsesServerFrames(t *testing.T) {
	tests := map[string]struct {
		wire      string
		isControl bool
		check     func(t *testing.T, env *Envelope)
	}{
		"audio_frame": {
			wire: `{"mime_type":"audio/pcm","data":"` +
				base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4}) + `"}`,
			check: func(t *testing.T, env *Envelope) {
				pcm, err := env.AudioPayload()
				require.NoError(t, err)
				assert.Equal(t, []byte{1, 2, 3, 4}, pcm)
			},
		},
		"text_frame": {
			wire: `{"mime_type":"text/plain","data":"hello"}`,
			check: func(t *testing.T, env *Envelope) {
				text, err := env.TextPayload()
				require.NoError(t, err)
				assert.Equal(t, "hello", text)
			},
		},
		"turn_complete": {
			wire:      `{"turn_complete":true,"interrupted":false}`,
			isControl: true,
			check: func(t *testing.T, env *Envelope) {
				assert.True(t, *env.TurnComplete)
				assert.False(t, *env.Interrupted)
			},
		},
		"interrupted": {
			wire:      `{"turn_complete":false,"interrupted":true}`,
			isControl: true,
			check: func(t *testing.T, env *Envelope) {
				assert.True(t, *env.Interrupted)
			},
		},
		"state_update_with_nested_data": {
			wire: `{"mime_type":"application/json","data":{"type":"state_update","stage":"greeting"}}`,
			check: func(t *testing.T, env *Envelope) {
				// Nested objects must not break envelope decoding.
				assert.NotEmpty(t, env.Data)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var env Envelope
			require.NoError(t, json.Unmarshal([]byte(tt.wire), &env))
			assert.Equal(t, tt.isControl, env.IsControl())
			tt.check(t, &env)
		})
	}
}

func TestClient_DispatchRoutesFrames(t *testing.T) {
	c := NewClient(zaptest.NewLogger(t), &config.Config{
		Audio: config.AudioConfig{SendQueueDepth: 4},
	})

	var gotAudio []byte
	var gotText string
	var gotTurnComplete, gotInterrupted bool
	c.handlers = Handlers{
		OnAudio: func(pcm []byte) { gotAudio = pcm },
		OnText:  func(text string) { gotText = text },
		OnTurnEvent: func(tc, ir bool) {
			gotTurnComplete, gotInterrupted = tc, ir
		},
	}

	audio := newAudioEnvelope([]byte{9, 8})
	c.dispatch(&audio)
	assert.Equal(t, []byte{9, 8}, gotAudio)

	text := newTextEnvelope("partial response")
	c.dispatch(&text)
	assert.Equal(t, "partial response", gotText)

	yes, no := true, false
	c.dispatch(&Envelope{TurnComplete: &no, Interrupted: &yes})
	assert.False(t, gotTurnComplete)
	assert.True(t, gotInterrupted)
}

func TestClient_SendAudioDropsWhenQueueFull(t *testing.T) {
	c := NewClient(zaptest.NewLogger(t), &config.Config{
		Audio: config.AudioConfig{SendQueueDepth: 2},
	})

	// No write pump running: the third frame must be dropped, not block.
	c.SendAudio([]byte{1})
	c.SendAudio([]byte{2})
	done := make(chan struct{})
	go func() {
		c.SendAudio([]byte{3})
		close(done)
	}()
	<-done

	assert.Len(t, c.sendQ, 2)
}

func TestClient_ReconnectAfterClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := NewClient(zaptest.NewLogger(t), &config.Config{
		Server: config.ServerConfig{URL: srv.URL, UserID: "42"},
		Audio:  config.AudioConfig{SendQueueDepth: 4},
	})

	// One client serves sequential sessions: a second Connect after Close
	// must arm a fresh pump lifecycle, and each Close must wait its own
	// session out.
	for i := 0; i < 2; i++ {
		require.NoError(t, c.Connect(context.Background(), Handlers{}))
		c.SendAudio([]byte{1, 2, 3, 4})
		require.NoError(t, c.Close())
	}

	// Closing with no session is a no-op.
	require.NoError(t, c.Close())
}

func TestClient_WatchdogFiresWhenServerGoesSilent(t *testing.T) {
	c := NewClient(zaptest.NewLogger(t), &config.Config{
		Audio: config.AudioConfig{SendQueueDepth: 1},
	})
	c.idleTimeout = 30 * time.Millisecond

	err := c.watchdog(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no agent traffic")
}

func TestClient_WatchdogDeferredByInboundFrames(t *testing.T) {
	c := NewClient(zaptest.NewLogger(t), &config.Config{
		Audio: config.AudioConfig{SendQueueDepth: 1},
	})
	c.idleTimeout = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for i := 0; i < 5; i++ {
			time.Sleep(25 * time.Millisecond)
			c.frameSeen <- struct{}{}
		}
		cancel()
	}()

	// Traffic keeps arriving well inside the timeout, so only the
	// cancellation ends the watchdog.
	err := c.watchdog(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Endpoint(t *testing.T) {
	c := NewClient(zaptest.NewLogger(t), &config.Config{
		Server: config.ServerConfig{URL: "ws://localhost:8000", UserID: "42"},
		Audio:  config.AudioConfig{SendQueueDepth: 1},
	})

	endpoint, err := c.endpoint()
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000/ws/42?is_audio=true", endpoint)
}

func TestClient_EndpointGeneratesUserID(t *testing.T) {
	c := NewClient(zaptest.NewLogger(t), &config.Config{
		Server: config.ServerConfig{URL: "ws://agent.example.com"},
		Audio:  config.AudioConfig{SendQueueDepth: 1},
	})

	endpoint, err := c.endpoint()
	require.NoError(t, err)
	assert.Contains(t, endpoint, "ws://agent.example.com/ws/")
	assert.Contains(t, endpoint, "is_audio=true")
}
