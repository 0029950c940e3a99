package status

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/scrape"
	"github.com/shahidirfan100/Redfin-Property-Scraper/pkg/types"
)

func TestServerRoutes(t *testing.T) {
	stats := scrape.NewStats()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := NewServer(stats, logger)

	assertRoute(t, server, http.MethodGet, "/healthz", http.StatusOK, "application/json")
	assertRoute(t, server, http.MethodGet, "/statusz", http.StatusOK, "application/json")
	assertRoute(t, server, http.MethodPost, "/healthz", http.StatusMethodNotAllowed, "")
	assertRoute(t, server, http.MethodGet, "/nope", http.StatusNotFound, "")
}

func TestStatusSnapshotBody(t *testing.T) {
	stats := scrape.NewStats()
	stats.SetState("json-api")
	stats.PageFetched(types.MethodAPI)
	stats.PageFetched(types.MethodAPI)
	stats.APICall()
	stats.RecordSaved(types.MethodAPI)

	server := NewServer(stats, slog.New(slog.NewTextHandler(io.Discard, nil)))

	req := httptest.NewRequest(http.MethodGet, "/statusz", nil)
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (body=%s)", rr.Code, rr.Body.String())
	}

	var snap scrape.Snapshot
	if err := json.NewDecoder(rr.Body).Decode(&snap); err != nil {
		t.Fatalf("decode status body: %v", err)
	}
	if snap.State != "json-api" {
		t.Fatalf("expected state json-api, got %q", snap.State)
	}
	if snap.Saved != 1 {
		t.Fatalf("expected 1 saved, got %d", snap.Saved)
	}
	if snap.Pages[string(types.MethodAPI)] != 2 {
		t.Fatalf("expected 2 api pages, got %d", snap.Pages[string(types.MethodAPI)])
	}
	if snap.APICalls != 1 {
		t.Fatalf("expected 1 api call, got %d", snap.APICalls)
	}
	if len(snap.MethodsUsed) != 1 || snap.MethodsUsed[0] != types.MethodAPI {
		t.Fatalf("unexpected methods used: %v", snap.MethodsUsed)
	}
}

func TestHealthBody(t *testing.T) {
	server := NewServer(scrape.NewStats(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode health body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
	if _, ok := body["timestamp"]; !ok {
		t.Fatal("expected a timestamp in the health body")
	}
}

func assertRoute(t *testing.T, h http.Handler, method, path string, wantStatus int, wantContentType string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != wantStatus {
		t.Fatalf("%s %s: expected status %d, got %d (body=%s)", method, path, wantStatus, rr.Code, rr.Body.String())
	}
	if wantContentType != "" {
		if got := rr.Header().Get("Content-Type"); got != wantContentType {
			t.Fatalf("%s %s: expected content-type %s, got %s", method, path, wantContentType, got)
		}
	}
}
