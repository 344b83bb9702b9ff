package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeReadingInput(t *testing.T) {
	now := time.Date(2025, 5, 20, 9, 5, 0, 0, time.UTC)

	tests := []struct {
		name    string
		payload string
		height  float64
		label   string
		at      time.Time
		wantErr bool
	}{
		{name: "full", payload: `{"height": 2.1, "label": "14:00", "recorded_at": "2025-05-20T14:01:00Z"}`, height: 2.1, label: "14:00", at: time.Date(2025, 5, 20, 14, 1, 0, 0, time.UTC)},
		{name: "defaults", payload: `{"height": 1.5}`, height: 1.5, label: "09:05", at: now},
		{name: "zero height", payload: `{"height": 0, "label": " 10:00 "}`, height: 0, label: "10:00", at: now},
		{name: "missing height", payload: `{"label": "10:00"}`, wantErr: true},
		{name: "negative", payload: `{"height": -0.2}`, wantErr: true},
		{name: "string height", payload: `{"height": "2.1"}`, wantErr: true},
		{name: "not json", payload: `2.1m`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, label, at, err := DecodeReadingInput([]byte(tt.payload), now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.height, h)
			assert.Equal(t, tt.label, label)
			assert.True(t, tt.at.Equal(at))
		})
	}
}
