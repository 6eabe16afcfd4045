package protocol

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"
)

// Pool of buffers to avoid allocation and ensure thread safety
var bufferPool = sync.Pool{
	New: func() any {
		return &bytes.Buffer{}
	},
}

// Marshal serializes a message to JSON without HTML escaping
func Marshal(v any) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	// Create a copy to avoid aliasing the pooled buffer; drop Encode's newline
	out := make([]byte, buf.Len()-1)
	copy(out, buf.Bytes())
	return out, nil
}

// NewEvent wraps a payload in an event envelope
func NewEvent(gameID string, msg Message, meta Meta, now time.Time, version string) (*Event, error) {
	payload, err := Marshal(msg)
	if err != nil {
		return nil, err
	}
	return &Event{
		MessageType:     msg.Type(),
		GameID:          gameID,
		ActionID:        meta.ActionID,
		PlayerID:        meta.PlayerID,
		Role:            meta.Role,
		Timestamp:       now.UnixMilli(),
		ProtocolVersion: version,
		Origin:          Origin,
		Payload:         payload,
	}, nil
}
