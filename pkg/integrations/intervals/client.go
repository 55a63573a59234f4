// Package intervals is the remote telemetry source backed by the
// Intervals.icu activity-map endpoint.
package intervals

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	shared "github.com/tracematch/sync-engine/pkg"
)

const defaultBaseURL = "https://intervals.icu/api/v1"

// Client fetches per-activity GPS streams. The credential is supplied per
// request, not held by the client, so one client serves every account.
type Client struct {
	baseURL string
	client  *http.Client
}

var _ shared.TelemetrySource = (*Client)(nil)

// NewClient creates a telemetry client against the production API.
func NewClient() *Client {
	return NewClientWithBaseURL(defaultBaseURL)
}

// NewClientWithBaseURL is used by tests and self-hosted deployments.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// mapResponse is the wire shape of the activity map endpoint. Entries in
// latlngs may be null for GPS dropouts.
type mapResponse struct {
	Bounds *struct {
		NE [2]float64 `json:"ne"`
		SW [2]float64 `json:"sw"`
	} `json:"bounds"`
	LatLngs []*[2]float64 `json:"latlngs"`
}

// FetchTelemetry retrieves one activity's GPS stream. Null entries are
// skipped; coordinate range validation is the fetcher's job.
func (c *Client) FetchTelemetry(ctx context.Context, credential string, id string) (*shared.TelemetryPayload, error) {
	url := fmt.Sprintf("%s/activity/%s/map", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// API key as username, no password.
	req.SetBasicAuth(credential, "")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("activity map request failed: HTTP %d: %s", resp.StatusCode, body)
	}

	var decoded mapResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode activity map: %w", err)
	}

	payload := &shared.TelemetryPayload{}
	if decoded.Bounds != nil {
		payload.Bounds = &shared.Bounds{
			NE: shared.Point{Lat: decoded.Bounds.NE[0], Lng: decoded.Bounds.NE[1]},
			SW: shared.Point{Lat: decoded.Bounds.SW[0], Lng: decoded.Bounds.SW[1]},
		}
	}
	payload.Points = make([]shared.Point, 0, len(decoded.LatLngs))
	for _, ll := range decoded.LatLngs {
		if ll == nil {
			continue
		}
		payload.Points = append(payload.Points, shared.Point{Lat: ll[0], Lng: ll[1]})
	}

	return payload, nil
}
