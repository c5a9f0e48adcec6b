package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the full HTTP surface: the registry API plus the
// Prometheus scrape endpoint.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}
