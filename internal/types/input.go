package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ReadingInput is the wire form of a reading accepted by the REST and MQTT
// ingest seams
type ReadingInput struct {
	Height     *float64   `json:"height"`
	Label      string     `json:"label"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

// DecodeReadingInput parses and validates a JSON reading. now is used when
// the payload carries no recorded_at.
func DecodeReadingInput(data []byte, now time.Time) (float64, string, time.Time, error) {
	var in ReadingInput
	if err := json.Unmarshal(data, &in); err != nil {
		return 0, "", time.Time{}, fmt.Errorf("invalid reading payload: %w", err)
	}
	if in.Height == nil {
		return 0, "", time.Time{}, errors.New("invalid reading payload: height is required")
	}
	if !ValidHeight(*in.Height) {
		return 0, "", time.Time{}, fmt.Errorf("invalid reading payload: height %v is not a finite, non-negative number", *in.Height)
	}

	label := strings.TrimSpace(in.Label)
	at := now
	if in.RecordedAt != nil && !in.RecordedAt.IsZero() {
		at = *in.RecordedAt
	}
	if label == "" {
		label = at.Format("15:04")
	}
	return *in.Height, label, at, nil
}
