package news

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const defaultNewsLimit = 25

// RegisterRoutes mounts the news listing endpoint.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Get("/api/news", func(w http.ResponseWriter, req *http.Request) {
		limit := defaultNewsLimit
		if v := req.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
				limit = n
			}
		}

		articles, err := store.LoadRecent(req.Context(), limit)
		if err != nil {
			http.Error(w, "loading news failed", http.StatusInternalServerError)
			return
		}
		if articles == nil {
			articles = []Article{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(articles)
	})
}
