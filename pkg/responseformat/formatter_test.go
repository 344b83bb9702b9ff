package responseformat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type payload struct {
	StationID string  `json:"station_id"`
	Height    float64 `json:"height"`
}

func TestWriteResponseFormats(t *testing.T) {
	f := NewFormatter()
	data := payload{StationID: "san-fernando", Height: 1.42}

	t.Run("json by default", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/stations/san-fernando", nil)
		require.NoError(t, f.WriteResponse(rec, req, data))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, ContentTypeJSON, rec.Header().Get("Content-Type"))
		var got payload
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, data, got)
	})

	t.Run("msgpack on request", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/stations/san-fernando?format=msgpack", nil)
		require.NoError(t, f.WriteResponse(rec, req, data))

		assert.Equal(t, ContentTypeMsgPack, rec.Header().Get("Content-Type"))
		var got map[string]any
		require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "san-fernando", got["station_id"])
		assert.InDelta(t, 1.42, got["height"], 1e-9)
	})

	t.Run("unknown format falls back to json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/?format=xml", nil)
		require.NoError(t, f.WriteResponse(rec, req, data))
		assert.Equal(t, ContentTypeJSON, rec.Header().Get("Content-Type"))
	})
}

func TestWriteError(t *testing.T) {
	f := NewFormatter()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	require.NoError(t, f.WriteError(rec, req, http.StatusNotFound, "unknown station", "no station named x"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var got ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "unknown station", got.Error)
	assert.Equal(t, "no station named x", got.Message)
}
