package metrics

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the metrics listing endpoint.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Get("/api/metrics", func(w http.ResponseWriter, req *http.Request) {
		limit := 30
		if v := req.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 365 {
				limit = n
			}
		}

		rows, err := store.Recent(req.Context(), limit)
		if err != nil {
			http.Error(w, "loading metrics failed", http.StatusInternalServerError)
			return
		}
		if rows == nil {
			rows = []Row{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rows)
	})
}
