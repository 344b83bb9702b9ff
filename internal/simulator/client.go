package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client posts samples to the tidewatch REST ingest endpoint
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for the server at baseURL
func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("simulator: invalid server url %q", baseURL)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Post sends s as a reading for station
func (c *Client) Post(ctx context.Context, station string, s Sample) error {
	body, err := json.Marshal(s)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/api/stations/%s/readings", c.baseURL, url.PathEscape(station))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("simulator: post reading: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("simulator: server answered %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
