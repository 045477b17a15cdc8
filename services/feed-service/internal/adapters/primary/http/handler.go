package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lytDeveloper/Lyt-sub003/pkg/explore"
	"github.com/lytDeveloper/Lyt-sub003/services/feed-service/internal/core/domain"
	"github.com/lytDeveloper/Lyt-sub003/services/feed-service/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	exploreRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lyt_explore_requests_total",
		Help: "Explore page requests by active type and outcome",
	}, []string{"type", "outcome"})

	exploreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lyt_explore_request_duration_seconds",
		Help:    "Explore page latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms à ~4s
	}, []string{"type"})
)

var validate = validator.New()

// exploreQuery porte les bornes de la query string, le décodage reste dans explore.DecodeRequest
type exploreQuery struct {
	Type     string `validate:"omitempty,oneof=project collaboration partner"`
	Category string `validate:"max=64"`
	Search   string `validate:"max=128"`
	Limit    int    `validate:"gte=0,lte=50"`
}

type Handler struct {
	service ports.ExploreService
}

func NewHandler(service ports.ExploreService) *Handler {
	return &Handler{service: service}
}

// Explore : GET /v1/explore
func (h *Handler) Explore(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req, err := explore.DecodeRequest(r.URL.Query())
	if err != nil {
		h.fail(w, "", http.StatusBadRequest, err)
		return
	}
	scope := string(req.ActiveType)
	if scope == "" {
		scope = "all"
	}
	defer func() { exploreDuration.WithLabelValues(scope).Observe(time.Since(start).Seconds()) }()

	if err := validate.Struct(exploreQuery{
		Type:     string(req.ActiveType),
		Category: req.Filter.Category,
		Search:   req.Filter.SearchQuery,
		Limit:    req.Limit,
	}); err != nil {
		h.fail(w, scope, http.StatusBadRequest, err)
		return
	}

	page, err := h.service.Explore(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidQuery), errors.Is(err, explore.ErrInvalidCursor):
		h.fail(w, scope, http.StatusBadRequest, err)
		return
	case errors.Is(err, explore.ErrFetchFailed):
		slog.Error("❌ Explore fetch failed", "type", scope, "error", err)
		h.fail(w, scope, http.StatusBadGateway, explore.ErrFetchFailed)
		return
	default:
		slog.Error("❌ Explore failed", "type", scope, "error", err)
		h.fail(w, scope, http.StatusInternalServerError, errors.New("internal error"))
		return
	}

	exploreRequests.WithLabelValues(scope, "ok").Inc()
	writeJSON(w, http.StatusOK, explore.NewPageResponse(page))
}

func (h *Handler) fail(w http.ResponseWriter, scope string, status int, err error) {
	if scope == "" {
		scope = "unknown"
	}
	exploreRequests.WithLabelValues(scope, http.StatusText(status)).Inc()
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("⚠️ response encode failed", "error", err)
	}
}
