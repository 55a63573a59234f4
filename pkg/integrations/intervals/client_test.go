package intervals

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchTelemetry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/activity/i12345/map" {
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		user, _, ok := r.BasicAuth()
		if !ok || user != "api-key-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"bounds": {"ne": [47.42, 8.56], "sw": [47.36, 8.50]},
			"latlngs": [[47.37, 8.54], null, [47.38, 8.55], null, [47.39, 8.55]]
		}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	payload, err := client.FetchTelemetry(context.Background(), "api-key-1", "i12345")
	if err != nil {
		t.Fatalf("FetchTelemetry() error: %v", err)
	}

	if len(payload.Points) != 3 {
		t.Errorf("got %d points, want 3 (nulls skipped)", len(payload.Points))
	}
	if payload.Points[0].Lat != 47.37 || payload.Points[0].Lng != 8.54 {
		t.Errorf("first point = %+v", payload.Points[0])
	}
	if payload.Bounds == nil || payload.Bounds.NE.Lat != 47.42 {
		t.Errorf("bounds = %+v", payload.Bounds)
	}
}

func TestFetchTelemetryHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no access to activity", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	_, err := client.FetchTelemetry(context.Background(), "api-key-1", "i1")
	if err == nil {
		t.Fatal("FetchTelemetry() returned nil error on HTTP 403")
	}
}

func TestFetchTelemetryMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"latlngs": [[47.37`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	_, err := client.FetchTelemetry(context.Background(), "api-key-1", "i1")
	if err == nil {
		t.Fatal("FetchTelemetry() returned nil error on malformed body")
	}
}
