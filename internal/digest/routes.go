package digest

import (
	"encoding/json"
	"html/template"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

var pageTmpl = template.Must(template.New("digest").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; max-width: 46rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.6; }
  a { color: #0969da; }
  h1, h2, h3 { line-height: 1.25; }
</style>
</head>
<body>
{{.Body}}
<p><small>Generated {{.CreatedAt}}</small></p>
</body>
</html>
`))

// RegisterRoutes mounts the digest page and its JSON endpoint.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Get("/digest", handlePage(store))
	r.Get("/api/digest", handleLatest(store))
}

func handleLatest(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := loadDigest(store, r)
		if err != nil {
			http.Error(w, "loading digest failed", http.StatusInternalServerError)
			return
		}
		if d == nil {
			http.Error(w, "no digest available", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(d)
	}
}

func handlePage(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := loadDigest(store, r)
		if err != nil {
			http.Error(w, "loading digest failed", http.StatusInternalServerError)
			return
		}
		if d == nil {
			http.Error(w, "no digest available", http.StatusNotFound)
			return
		}

		body, err := RenderHTML(d.BodyMD)
		if err != nil {
			log.Printf("digest: rendering %s: %v", d.Date, err)
			http.Error(w, "rendering digest failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		pageTmpl.Execute(w, struct {
			Title     string
			Body      template.HTML
			CreatedAt string
		}{d.Title, body, d.CreatedAt})
	}
}

func loadDigest(store *Store, r *http.Request) (*Digest, error) {
	if date := r.URL.Query().Get("date"); date != "" {
		return store.ByDate(r.Context(), date)
	}
	return store.Latest(r.Context())
}
