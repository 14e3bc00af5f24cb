package explorer

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:embed index.html
var indexHTML []byte

// RegisterPageRoutes mounts the embedded explorer page.
func RegisterPageRoutes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(indexHTML)
	})
}
