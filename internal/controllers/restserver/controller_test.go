package restserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/chrissnell/tidewatch/internal/ingest"
	"github.com/chrissnell/tidewatch/internal/metrics"
	"github.com/chrissnell/tidewatch/internal/prediction"
	"github.com/chrissnell/tidewatch/internal/storage"
	"github.com/chrissnell/tidewatch/internal/storage/memory"
	"github.com/chrissnell/tidewatch/internal/surge"
	"github.com/chrissnell/tidewatch/internal/types"
	"github.com/chrissnell/tidewatch/pkg/config"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type testServer struct {
	coord  *ingest.Coordinator
	store  *memory.Store
	health *storage.HealthManager
	h      http.Handler
}

func newTestServer(t *testing.T, rc config.RESTServerData) *testServer {
	t.Helper()

	sc := surge.DefaultConfig()
	dc := prediction.DefaultConfig()
	stations := []ingest.StationConfig{
		{ID: "san-fernando", Name: "San Fernando", HistoryCapacity: 72},
		{ID: "pilote-norden", Name: "Pilote Norden", HistoryCapacity: 100, Surge: &sc, Downstream: &dc},
	}

	reg := prometheus.NewRegistry()
	rec, err := metrics.NewPromRecorderWithRegistry(reg)
	require.NoError(t, err)

	store := memory.New()
	coord, err := ingest.New(stations, store, zap.NewNop().Sugar(), ingest.WithRecorder(rec))
	require.NoError(t, err)

	hm := storage.NewHealthManager()
	ctrl, err := NewController(context.Background(), &sync.WaitGroup{}, rc, Deps{
		Stations: coord,
		Ingester: coord,
		Health:   hm,
		Gatherer: reg,
	}, zap.NewNop().Sugar())
	require.NoError(t, err)
	ctrl.handlers.now = func() time.Time { return t0 }
	ctrl.Server.Handler = ctrl.Handler()

	return &testServer{coord: coord, store: store, health: hm, h: ctrl.Server.Handler}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestListStations(t *testing.T) {
	s := newTestServer(t, config.RESTServerData{})

	rec := s.do(t, http.MethodGet, "/api/stations", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[[]StationSummary](t, rec)
	require.Len(t, got, 2)
	assert.Equal(t, "pilote-norden", got[0].ID)
	assert.True(t, got[0].Surge)
	assert.Equal(t, 2.0, got[0].SurgeOn)
	assert.Equal(t, "Tigre", got[0].Downstream)
	assert.Equal(t, "san-fernando", got[1].ID)
	assert.False(t, got[1].Surge)
}

func TestViewEndpoints(t *testing.T) {
	s := newTestServer(t, config.RESTServerData{})
	ctx := context.Background()

	_, err := s.coord.Ingest(ctx, "pilote-norden", 1.90, "13:00", t0)
	require.NoError(t, err)
	_, err = s.coord.Ingest(ctx, "pilote-norden", 2.10, "14:00", t0.Add(time.Hour))
	require.NoError(t, err)

	t.Run("view", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/stations/pilote-norden", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var got map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "pilote-norden", got["station_id"])
		assert.EqualValues(t, 2, got["readings"])
		assert.Contains(t, got, "moon")
		assert.Contains(t, got, "surge")
		assert.Contains(t, got, "prediction")
	})

	t.Run("trend", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/stations/pilote-norden/trend", "")
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[ingest.TrendView](t, rec)
		assert.Equal(t, "subiendo", got.DirectionES)
		assert.InDelta(t, 0.2, got.Delta, 1e-9)
	})

	t.Run("surge", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/stations/pilote-norden/surge", "")
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[ingest.SurgeView](t, rec)
		assert.True(t, got.Active)
		assert.Equal(t, 2.1, got.PeakHeight)
		assert.Equal(t, "Pico detectado: 2.1m a las 14:00", got.Message)
	})

	t.Run("prediction", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/stations/pilote-norden/prediction", "")
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[prediction.Prediction](t, rec)
		assert.True(t, got.Available)
		assert.InDelta(t, 2.45, got.Height, 1e-9)
		assert.Equal(t, "17:30", got.Time)
	})

	t.Run("surge on a trend-only station", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/stations/san-fernando/surge", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = s.do(t, http.MethodGet, "/api/stations/san-fernando/prediction", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown station", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/stations/riachuelo/view", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "unknown station", decode[map[string]string](t, rec)["error"])
	})

	t.Run("msgpack", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/stations/pilote-norden/view?format=msgpack", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var got map[string]any
		require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "pilote-norden", got["station_id"])
	})
}

func TestHistoryEndpoint(t *testing.T) {
	s := newTestServer(t, config.RESTServerData{})
	for i, h := range []float64{1.0, 1.1, 1.2, 1.3} {
		_, err := s.coord.Ingest(context.Background(), "san-fernando", h, "", t0.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		path   string
		status int
		count  int
		first  float64
	}{
		{name: "all", path: "/api/stations/san-fernando/history", status: http.StatusOK, count: 4, first: 1.0},
		{name: "limited", path: "/api/stations/san-fernando/history?limit=2", status: http.StatusOK, count: 2, first: 1.2},
		{name: "limit above size", path: "/api/stations/san-fernando/history?limit=50", status: http.StatusOK, count: 4, first: 1.0},
		{name: "bad limit", path: "/api/stations/san-fernando/history?limit=-1", status: http.StatusBadRequest},
		{name: "unknown", path: "/api/stations/nope/history", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.path, "")
			require.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusOK {
				return
			}
			got := decode[HistoryResponse](t, rec)
			assert.Equal(t, tt.count, got.Count)
			require.Len(t, got.Readings, tt.count)
			assert.Equal(t, tt.first, got.Readings[0].Height)
		})
	}
}

func TestPostReading(t *testing.T) {
	s := newTestServer(t, config.RESTServerData{EnableIngest: true})

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{name: "valid", path: "/api/stations/pilote-norden/readings", body: `{"height": 1.5, "label": "10:00"}`, status: http.StatusCreated},
		{name: "missing height", path: "/api/stations/pilote-norden/readings", body: `{"label": "10:00"}`, status: http.StatusBadRequest},
		{name: "negative height", path: "/api/stations/pilote-norden/readings", body: `{"height": -1}`, status: http.StatusBadRequest},
		{name: "garbage", path: "/api/stations/pilote-norden/readings", body: `altura=1.5`, status: http.StatusBadRequest},
		{name: "unknown station", path: "/api/stations/nope/readings", body: `{"height": 1.5}`, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	// Only the valid post reached the coordinator
	h, err := s.coord.History("pilote-norden")
	require.NoError(t, err)
	require.Len(t, h, 1)
	assert.Equal(t, "10:00", h[0].ObservedAt)
}

func TestPostReadingReportsSurgeEvent(t *testing.T) {
	s := newTestServer(t, config.RESTServerData{EnableIngest: true})

	rec := s.do(t, http.MethodPost, "/api/stations/pilote-norden/readings", `{"height": 2.2, "label": "03:15", "recorded_at": "2025-06-01T03:15:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	got := decode[IngestResponse](t, rec)
	assert.True(t, got.Persisted)
	require.NotNil(t, got.Event)
	assert.Equal(t, types.NotificationSurgeStarted, got.Event.Kind)
	assert.NotEmpty(t, got.Event.EventID)
	assert.Equal(t, "03:15", got.Reading.ObservedAt)
}

func TestPostReadingPersistFailure(t *testing.T) {
	s := newTestServer(t, config.RESTServerData{EnableIngest: true})
	s.store.FailSaves = assert.AnError

	rec := s.do(t, http.MethodPost, "/api/stations/san-fernando/readings", `{"height": 1.1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	got := decode[IngestResponse](t, rec)
	assert.False(t, got.Persisted)
	assert.NotEmpty(t, got.PersistError)
	assert.Equal(t, "12:00", got.Reading.ObservedAt)
}

func TestIngestDisabled(t *testing.T) {
	s := newTestServer(t, config.RESTServerData{})

	rec := s.do(t, http.MethodPost, "/api/stations/san-fernando/readings", `{"height": 1.1}`)
	assert.NotEqual(t, http.StatusCreated, rec.Code)

	h, err := s.coord.History("san-fernando")
	require.NoError(t, err)
	assert.Empty(t, h)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, config.RESTServerData{})

	rec := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	s.health.UpdateHealth("sqlite", storage.CreateHealthData(storage.StatusHealthy, "ok", nil))
	rec = s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	s.health.UpdateHealth("sqlite", storage.CreateHealthData(storage.StatusUnhealthy, "ping failed", assert.AnError))
	rec = s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	got := decode[HealthResponse](t, rec)
	assert.Equal(t, storage.StatusUnhealthy, got.Status)
	assert.Equal(t, "ping failed", got.Storage["sqlite"].Message)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, config.RESTServerData{})
	_, err := s.coord.Ingest(context.Background(), "san-fernando", 1.4, "09:00", t0)
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tidewatch_readings_total{station="san-fernando"} 1`)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, config.RESTServerData{CORSOrigins: []string{"https://tigre.example"}})

	req := httptest.NewRequest(http.MethodGet, "/api/stations", nil)
	req.Header.Set("Origin", "https://tigre.example")
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://tigre.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewControllerValidation(t *testing.T) {
	_, err := NewController(context.Background(), &sync.WaitGroup{}, config.RESTServerData{}, Deps{}, zap.NewNop().Sugar())
	assert.Error(t, err)

	coord, err := ingest.New([]ingest.StationConfig{{ID: "a", HistoryCapacity: 1}}, memory.New(), nil)
	require.NoError(t, err)
	_, err = NewController(context.Background(), &sync.WaitGroup{}, config.RESTServerData{EnableIngest: true}, Deps{Stations: coord}, zap.NewNop().Sugar())
	assert.Error(t, err)

	ctrl, err := NewController(context.Background(), &sync.WaitGroup{}, config.RESTServerData{}, Deps{Stations: coord}, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", ctrl.Server.Addr)
}
