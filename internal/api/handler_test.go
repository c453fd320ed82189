package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/matthieugusmini/docker-follow/internal/api"
	"github.com/matthieugusmini/docker-follow/internal/follow"
)

type fakeStatusSource []follow.TargetStatus

func (f fakeStatusSource) Snapshot() []follow.TargetStatus { return f }

var statuses = fakeStatusSource{
	{Alias: "api", Name: "backend", State: follow.StateAttached, ContainerID: "abc", LinesSeen: 3, Since: time.Unix(0, 0).UTC()},
	{Alias: "web", Name: "frontend", State: follow.StateDiscovering, Since: time.Unix(0, 0).UTC()},
	{Alias: "web", Name: "frontend", Files: []string{"/a.log"}, State: follow.StateDiscovering, Since: time.Unix(0, 0).UTC()},
}

func TestHandler(t *testing.T) {
	handler := api.NewHandler(statuses)

	t.Run("healthz", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("lists every target", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/targets", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}

		var got []follow.TargetStatus
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if len(got) != len(statuses) {
			t.Fatalf("got %d targets, want %d", len(got), len(statuses))
		}
		if got[0].ContainerID != "abc" || got[0].LinesSeen != 3 || got[0].State != follow.StateAttached {
			t.Errorf("unexpected first target: %+v", got[0])
		}
	})

	t.Run("returns the targets sharing an alias", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/targets/web", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}

		var got []follow.TargetStatus
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("got %d targets, want 2", len(got))
		}
	})

	t.Run("unknown alias returns 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/targets/db", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("rejects other methods", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/targets", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status 405, got %d", rec.Code)
		}
	})
}
