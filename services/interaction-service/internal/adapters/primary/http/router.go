package http

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter assemble la chaîne : OTEL -> CORS -> Auth -> routes.
func NewRouter(h *Handler, tokens TokenValidator, allowedOrigins []string) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/preferences", h.Create)
	api.HandleFunc("DELETE /v1/preferences", h.Delete)
	api.HandleFunc("GET /v1/preferences", h.List)
	api.HandleFunc("POST /v1/preferences/check", h.Check)

	var chain http.Handler = AuthMiddleware(tokens)(api)

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "baggage", "sentry-trace"},
		AllowCredentials: true,
	})
	chain = c.Handler(chain)

	chain = otelhttp.NewHandler(chain, "preference-http", otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
		return fmt.Sprintf("HTTP %s %s", r.Method, r.URL.Path)
	}))

	mux := http.NewServeMux()
	mux.Handle("/v1/", chain)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return mux
}
