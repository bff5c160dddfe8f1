package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/coldchain/fridgewatch/internal/telemetry"
)

// ReadingMessage is the wire format for one sample on the readings
// topic. Enrichment (deltas, deviation, duty cycle) happens upstream
// of the topic; this service only persists.
type ReadingMessage struct {
	DeviceID string            `json:"device_id"`
	Reading  telemetry.Reading `json:"reading"`
}

// EncodeReadingMessage encodes a ReadingMessage to JSON.
func EncodeReadingMessage(msg *ReadingMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeReadingMessage decodes JSON into a ReadingMessage.
func DecodeReadingMessage(data []byte) (*ReadingMessage, error) {
	var msg ReadingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid reading message: %w", err)
	}
	if msg.Reading.Timestamp.IsZero() {
		return nil, fmt.Errorf("reading message without timestamp")
	}
	return &msg, nil
}
