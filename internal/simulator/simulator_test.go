package simulator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero step", mutate: func(c *Config) { c.Step = 0 }},
		{name: "negative amplitude", mutate: func(c *Config) { c.Amplitude = -1 }},
		{name: "negative noise", mutate: func(c *Config) { c.Noise = -0.1 }},
		{name: "surge without duration", mutate: func(c *Config) { c.SurgeDuration = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig(start)
			tt.mutate(&c)
			_, err := New(c)
			assert.Error(t, err)
		})
	}
}

func TestSurgeWindow(t *testing.T) {
	c := DefaultConfig(start)
	g, err := New(c)
	require.NoError(t, err)

	assert.Zero(t, g.SurgeAt(start))
	assert.Zero(t, g.SurgeAt(start.Add(c.SurgeOffset-time.Minute)))
	assert.InDelta(t, c.SurgeHeight, g.SurgeAt(start.Add(c.SurgeOffset+c.SurgeDuration/2)), 1e-9)
	assert.Zero(t, g.SurgeAt(start.Add(c.SurgeOffset+c.SurgeDuration+time.Minute)))
}

func TestTideStaysWithinRange(t *testing.T) {
	c := DefaultConfig(start)
	c.SurgeHeight = 0
	g, err := New(c)
	require.NoError(t, err)

	maxAmp := c.Amplitude * 1.2
	for i := 0; i < 24*6*30; i++ {
		h := g.TideAt(start.Add(time.Duration(i) * c.Step))
		assert.LessOrEqual(t, h, c.MeanLevel+maxAmp+1e-9)
		assert.GreaterOrEqual(t, h, c.MeanLevel-maxAmp-1e-9)
	}
}

func TestDefaultCurveCrossesSurgeThreshold(t *testing.T) {
	c := DefaultConfig(start)
	c.Location = time.UTC
	g, err := New(c)
	require.NoError(t, err)

	var peak float64
	var samples []Sample
	for i := 0; i < 48*6; i++ {
		s := g.Next()
		samples = append(samples, s)
		if s.Height > peak {
			peak = s.Height
		}
		assert.GreaterOrEqual(t, s.Height, 0.0)
	}

	assert.Greater(t, peak, 2.0)
	assert.Less(t, samples[len(samples)-1].Height, 1.8)
	assert.Equal(t, "00:00", samples[0].Label)
	assert.Equal(t, "00:10", samples[1].Label)
	assert.True(t, samples[1].RecordedAt.Equal(start.Add(10*time.Minute)))
}

func TestGeneratorIsDeterministic(t *testing.T) {
	a, err := New(DefaultConfig(start))
	require.NoError(t, err)
	b, err := New(DefaultConfig(start))
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Next(), b.Next())
	}
}

func TestClientPost(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		if r.URL.Path == "/api/stations/nope/readings" {
			http.Error(w, `{"error":"unknown station"}`, http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL + "/")
	require.NoError(t, err)

	s := Sample{Height: 2.05, Label: "14:00", RecordedAt: start}
	require.NoError(t, c.Post(context.Background(), "pilote-norden", s))
	assert.Equal(t, "/api/stations/pilote-norden/readings", gotPath)
	assert.Equal(t, 2.05, gotBody["height"])
	assert.Equal(t, "14:00", gotBody["label"])

	err = c.Post(context.Background(), "nope", s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("localhost:8080")
	assert.Error(t, err)
}
