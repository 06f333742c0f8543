package utils

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter constructs the base mux router with common routes.
func NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
	return r
}

// WithCORS wraps h so browsers on origins accepted by policy may call it.
// Preflight requests are answered here and never reach h.
func WithCORS(h http.Handler, policy *OriginPolicy) http.Handler {
	c := cors.New(cors.Options{
		AllowOriginFunc: policy.Allowed,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "X-Client-ID"},
		ExposedHeaders: []string{"X-Client-ID", "Retry-After"},
		MaxAge:         600,
	})
	return c.Handler(h)
}
