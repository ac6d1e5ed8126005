package bridge

import (
	"encoding/base64"
	"encoding/json"
)

// MIME types used on the wire.
const (
	MimeAudioPCM = "audio/pcm"
	MimeText     = "text/plain"
	MimeJSON     = "application/json"
)

// Envelope is the agent server's websocket JSON frame. Media frames carry a
// mime type plus payload; control frames carry the turn flags instead. Data
// stays raw because the server nests structured payloads under the same key
// it uses for base64 strings.
type Envelope struct {
	MimeType     string          `json:"mime_type,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	TurnComplete *bool           `json:"turn_complete,omitempty"`
	Interrupted  *bool           `json:"interrupted,omitempty"`
}

// IsControl reports whether this is a turn-boundary control frame.
func (e *Envelope) IsControl() bool {
	return e.TurnComplete != nil || e.Interrupted != nil
}

// AudioPayload decodes the base64 PCM payload of an audio frame.
func (e *Envelope) AudioPayload() ([]byte, error) {
	var b64 string
	if err := json.Unmarshal(e.Data, &b64); err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(b64)
}

// TextPayload decodes the payload of a text frame.
func (e *Envelope) TextPayload() (string, error) {
	var text string
	err := json.Unmarshal(e.Data, &text)
	return text, err
}

// newAudioEnvelope wraps a PCM16LE frame for sending.
func newAudioEnvelope(pcm []byte) Envelope {
	encoded, _ := json.Marshal(base64.StdEncoding.EncodeToString(pcm))
	return Envelope{MimeType: MimeAudioPCM, Data: encoded}
}

// newTextEnvelope wraps a user text message for sending.
func newTextEnvelope(text string) Envelope {
	encoded, _ := json.Marshal(text)
	return Envelope{MimeType: MimeText, Data: encoded}
}
