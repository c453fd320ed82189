package api

import (
	"encoding/json"
	"net/http"

	"github.com/matthieugusmini/docker-follow/internal/follow"
)

func handleTargets(status StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status.Snapshot())
	}
}

// handleTarget returns the statuses of the targets labeled alias. Several
// targets can share an alias when the same container is followed twice.
func handleTarget(status StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alias := r.PathValue("alias")

		var res []follow.TargetStatus
		for _, st := range status.Snapshot() {
			if st.Alias == alias {
				res = append(res, st)
			}
		}
		if len(res) == 0 {
			http.Error(w, "target "+alias+" not found", http.StatusNotFound)
			return
		}

		writeJSON(w, res)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
