package httpserver

import (
	"net/http"
	"strings"

	"carboncheck/backend/services/carbon-service/internal/http/middleware"
)

// Routes aggregates handlers for HTTP server. Nil handlers are not mounted.
type Routes struct {
	Check    http.HandlerFunc
	Graph    http.HandlerFunc
	Chart    http.HandlerFunc
	Readings http.HandlerFunc
	Health   http.HandlerFunc
	Metrics  http.Handler
}

// NewRouter wires all HTTP routes. authMiddleware guards everything except health and metrics.
func NewRouter(routes Routes, authMiddleware func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()

	protected := func(handler http.Handler) http.Handler {
		if authMiddleware == nil {
			return handler
		}
		return middleware.Chain(handler, authMiddleware)
	}

	if routes.Check != nil {
		mux.Handle("/api/carbon-check", methods(protected(routes.Check), http.MethodGet, http.MethodPost))
	}
	if routes.Graph != nil {
		mux.Handle("/api/carbon-intensity/graph", methods(protected(routes.Graph), http.MethodGet))
	}
	if routes.Chart != nil {
		mux.Handle("/api/carbon-intensity/chart", methods(protected(routes.Chart), http.MethodGet))
	}
	if routes.Readings != nil {
		mux.Handle("/api/readings", methods(protected(routes.Readings), http.MethodGet))
	}
	if routes.Health != nil {
		mux.Handle("/health", methods(routes.Health, http.MethodGet))
	}
	if routes.Metrics != nil {
		mux.Handle("/metrics", methods(routes.Metrics, http.MethodGet))
	}
	return mux
}

func methods(handler http.Handler, allowed ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, m := range allowed {
			if r.Method == m {
				handler.ServeHTTP(w, r)
				return
			}
		}
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}
