package api

import (
	"net/http"

	"github.com/matthieugusmini/docker-follow/internal/follow"
)

// StatusSource provides the current state of the monitored targets.
type StatusSource interface {
	// Snapshot returns the status of every target.
	Snapshot() []follow.TargetStatus
}

// NewHandler returns an http.Handler configured with the status endpoints.
func NewHandler(status StatusSource) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz())
	mux.HandleFunc("GET /targets", handleTargets(status))
	mux.HandleFunc("GET /targets/{alias}", handleTarget(status))
	return mux
}
