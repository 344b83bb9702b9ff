package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chrissnell/tidewatch/internal/controllers/restserver"
)

// Station is everything the dashboard shows for one station
type Station struct {
	Summary restserver.StationSummary
	View    restserver.StationView
}

// Fetcher loads the current state of every station
type Fetcher interface {
	Fetch(ctx context.Context) ([]Station, error)
}

// HTTPFetcher reads station views from a tidewatch REST server
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPFetcher returns a fetcher for the server at baseURL
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context) ([]Station, error) {
	var summaries []restserver.StationSummary
	if err := f.get(ctx, "/api/stations", &summaries); err != nil {
		return nil, err
	}

	out := make([]Station, 0, len(summaries))
	for _, s := range summaries {
		st := Station{Summary: s}
		if err := f.get(ctx, "/api/stations/"+url.PathEscape(s.ID)+"/view", &st.View); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (f *HTTPFetcher) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
