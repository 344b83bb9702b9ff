package influxdb

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrissnell/tidewatch/internal/types"
)

func TestSendReading(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n, err := New(Config{URL: srv.URL, Token: "token", Org: "org", Bucket: "tides"})
	require.NoError(t, err)

	at := time.Date(2025, 5, 20, 14, 0, 0, 0, time.UTC)
	notification := types.Notification{
		Kind:      types.NotificationReading,
		StationID: "san-fernando",
		Reading:   types.Reading{Height: 1.25, ObservedAt: "14:00", RecordedAt: at},
		Time:      at,
	}
	require.NoError(t, n.Send(notification))

	expected := write.NewPointWithMeasurement("water_level").
		AddTag("station", "san-fernando").
		AddField("height", 1.25).
		AddField("label", "14:00").
		SetTime(at)
	assert.Equal(t, strings.TrimSpace(write.PointToLineProtocol(expected, time.Nanosecond)), strings.TrimSpace(body))
}

func TestSurgePoint(t *testing.T) {
	at := time.Date(2025, 5, 20, 14, 0, 0, 0, time.UTC)
	p := point(types.Notification{
		Kind:      types.NotificationNewPeak,
		StationID: "pilote-norden",
		Reading:   types.Reading{Height: 2.4},
		Surge:     &types.SurgeState{Active: true, EventID: "ev-1", PeakHeight: 2.4},
		Time:      at,
	})

	line := write.PointToLineProtocol(p, time.Nanosecond)
	assert.True(t, strings.HasPrefix(line, "surge_event,"))
	assert.Contains(t, line, "kind=new_peak")
	assert.Contains(t, line, "event_id=ev-1")
	assert.Contains(t, line, "peak_height=2.4")
}

func TestSendServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n, err := New(Config{URL: srv.URL, Org: "org", Bucket: "tides"})
	require.NoError(t, err)
	assert.Error(t, n.Send(types.Notification{Kind: types.NotificationReading, StationID: "x"}))
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{URL: "http://localhost:8086"})
	assert.Error(t, err)
}
