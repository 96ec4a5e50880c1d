package protocol

import (
	"encoding/json"
	"fmt"
)

// Frame is the wire envelope for every message on the real-time channel.
// OpId carries the client-generated correlation id and is echoed back on
// direct responses; push events leave it empty.
type Frame struct {
	Event string          `json:"event"`
	OpId  string          `json:"op_id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeFrame builds a frame with the payload marshalled into Data
func EncodeFrame(event, opId string, payload interface{}) ([]byte, error) {
	f := Frame{Event: event, OpId: opId}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", event, err)
		}
		f.Data = data
	}
	return json.Marshal(f)
}

// DecodeFrame parses the envelope. The payload stays raw until the event's
// schema is applied via DecodePayload.
func DecodeFrame(raw []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if f.Event == "" {
		return nil, fmt.Errorf("decode frame: missing event name")
	}
	return &f, nil
}

// Decode decodes JSON bytes to struct
func Decode(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// Encode encodes data to JSON bytes
func Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
