package restserver

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/chrissnell/tidewatch/internal/ingest"
	"github.com/chrissnell/tidewatch/internal/storage"
	"github.com/chrissnell/tidewatch/internal/types"
	"github.com/chrissnell/tidewatch/pkg/lunar"
	"github.com/chrissnell/tidewatch/pkg/responseformat"
)

const maxReadingBody = 64 << 10

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
	now        func() time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
		now:        time.Now,
	}
}

// ListStations returns every configured station in id order
func (h *Handlers) ListStations(w http.ResponseWriter, req *http.Request) {
	configs := h.controller.stations.Stations()
	out := make([]StationSummary, 0, len(configs))
	for _, sc := range configs {
		out = append(out, summarize(sc))
	}
	h.write(w, req, out)
}

// GetView returns the full read model for a station
func (h *Handlers) GetView(w http.ResponseWriter, req *http.Request) {
	v, ok := h.view(w, req)
	if !ok {
		return
	}
	h.write(w, req, StationView{View: v, Moon: lunar.Calculate(h.now())})
}

// GetTrend returns only the trend portion of the read model
func (h *Handlers) GetTrend(w http.ResponseWriter, req *http.Request) {
	v, ok := h.view(w, req)
	if !ok {
		return
	}
	h.write(w, req, v.Trend)
}

// GetSurge returns the surge detector state. Stations without surge
// detection answer 404.
func (h *Handlers) GetSurge(w http.ResponseWriter, req *http.Request) {
	v, ok := h.view(w, req)
	if !ok {
		return
	}
	if v.Surge == nil {
		h.fail(w, req, http.StatusNotFound, "surge detection not configured", "station "+v.StationID+" does not track surges")
		return
	}
	h.write(w, req, v.Surge)
}

// GetPrediction returns the downstream estimate for a station
func (h *Handlers) GetPrediction(w http.ResponseWriter, req *http.Request) {
	v, ok := h.view(w, req)
	if !ok {
		return
	}
	if v.Prediction == nil {
		h.fail(w, req, http.StatusNotFound, "prediction not configured", "station "+v.StationID+" has no downstream station")
		return
	}
	h.write(w, req, v.Prediction)
}

// GetHistory returns the readings held for a station. The optional limit
// parameter keeps only the newest N.
func (h *Handlers) GetHistory(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	limit := 0
	if l := req.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			h.fail(w, req, http.StatusBadRequest, "invalid limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	readings, err := h.controller.stations.History(id)
	if err != nil {
		h.stationError(w, req, err)
		return
	}
	if limit > 0 && len(readings) > limit {
		readings = readings[len(readings)-limit:]
	}

	h.write(w, req, HistoryResponse{StationID: id, Count: len(readings), Readings: readings})
}

// PostReading is the HTTP ingest seam. The payload is validated before the
// coordinator is called; a malformed body never reaches it.
func (h *Handlers) PostReading(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxReadingBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(w, req, http.StatusRequestEntityTooLarge, "payload too large", err.Error())
			return
		}
		h.fail(w, req, http.StatusBadRequest, "unreadable body", err.Error())
		return
	}

	height, label, at, err := types.DecodeReadingInput(body, h.now())
	if err != nil {
		h.fail(w, req, http.StatusBadRequest, "invalid reading", err.Error())
		return
	}

	res, err := h.controller.ingester.Ingest(req.Context(), id, height, label, at)
	if err != nil {
		h.stationError(w, req, err)
		return
	}

	resp := IngestResponse{
		Reading:   res.Reading,
		Event:     eventSummary(res.Event),
		Persisted: res.PersistErr == nil,
	}
	if res.PersistErr != nil {
		h.controller.logger.Errorf("reading for station [%s] applied but not persisted: %v", id, res.PersistErr)
		resp.PersistError = res.PersistErr.Error()
	}

	if err := h.formatter.WriteStatus(w, req, http.StatusCreated, resp); err != nil {
		h.controller.logger.Errorf("error writing ingest response: %v", err)
	}
}

// GetHealth reports the last health check of the state store. It answers
// 503 when any backend is unhealthy.
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	all := h.controller.health.GetAllHealth()

	resp := HealthResponse{Status: storage.StatusHealthy, Storage: all}
	status := http.StatusOK
	for _, hd := range all {
		if hd.Status != storage.StatusHealthy {
			resp.Status = storage.StatusUnhealthy
			status = http.StatusServiceUnavailable
			break
		}
	}

	if err := h.formatter.WriteStatus(w, req, status, resp); err != nil {
		h.controller.logger.Errorf("error writing health response: %v", err)
	}
}

// NotFound answers unknown routes in the same error format as the API
func (h *Handlers) NotFound(w http.ResponseWriter, req *http.Request) {
	h.fail(w, req, http.StatusNotFound, "not found", req.URL.Path)
}

func (h *Handlers) view(w http.ResponseWriter, req *http.Request) (ingest.View, bool) {
	v, err := h.controller.stations.CurrentView(mux.Vars(req)["id"])
	if err != nil {
		h.stationError(w, req, err)
		return ingest.View{}, false
	}
	return v, true
}

func (h *Handlers) stationError(w http.ResponseWriter, req *http.Request, err error) {
	switch {
	case errors.Is(err, ingest.ErrUnknownStation):
		h.fail(w, req, http.StatusNotFound, "unknown station", err.Error())
	case errors.Is(err, ingest.ErrInvalidHeight):
		h.fail(w, req, http.StatusBadRequest, "invalid reading", err.Error())
	default:
		h.controller.logger.Errorf("request %s failed: %v", req.URL.Path, err)
		h.fail(w, req, http.StatusInternalServerError, "internal error", "")
	}
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, data any) {
	if err := h.formatter.WriteResponse(w, req, data); err != nil {
		h.controller.logger.Errorf("error writing response for %s: %v", req.URL.Path, err)
	}
}

func (h *Handlers) fail(w http.ResponseWriter, req *http.Request, status int, msg, detail string) {
	if err := h.formatter.WriteError(w, req, status, msg, detail); err != nil {
		h.controller.logger.Errorf("error writing error response for %s: %v", req.URL.Path, err)
	}
}
