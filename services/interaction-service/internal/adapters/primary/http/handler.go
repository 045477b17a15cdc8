package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lytDeveloper/Lyt-sub003/pkg/preference"
	"github.com/lytDeveloper/Lyt-sub003/services/interaction-service/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	preferenceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lyt_preference_requests_total",
		Help: "Preference API requests by operation and outcome",
	}, []string{"operation", "outcome"})

	preferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lyt_preference_request_duration_seconds",
		Help:    "Preference API latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms à ~1s
	}, []string{"operation"})
)

var validate = validator.New()

// pairQuery : paramètres de DELETE et GET
type pairQuery struct {
	TargetID   string `validate:"omitempty,max=128"`
	TargetType string `validate:"required,oneof=project collaboration partner user"`
	Kind       string `validate:"required,oneof=like follow hide block"`
}

type Handler struct {
	service ports.PreferenceService
}

func NewHandler(service ports.PreferenceService) *Handler {
	return &Handler{service: service}
}

// Create : POST /v1/preferences
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	defer observe("create", time.Now())

	var req preference.CreateRequest
	if !decode(w, r, "create", &req) {
		return
	}

	res, err := h.service.Create(r.Context(), preference.Record{
		UserID:     UserFromContext(r.Context()),
		TargetID:   req.TargetID,
		TargetType: req.TargetType,
		Kind:       req.Kind,
		Reason:     req.Reason,
		Actor:      req.Actor,
	})
	if err != nil {
		h.fail(w, "create", err)
		return
	}

	status := http.StatusCreated
	if res == preference.AlreadyExists {
		status = http.StatusOK
	}
	preferenceRequests.WithLabelValues("create", res.String()).Inc()
	writeJSON(w, status, preference.CreateResponse{Result: res.String()})
}

// Delete : DELETE /v1/preferences?target_id=&target_type=&kind=
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	defer observe("delete", time.Now())

	q, ok := parsePair(w, r, "delete", true)
	if !ok {
		return
	}
	err := h.service.Delete(r.Context(), UserFromContext(r.Context()), q.TargetID, preference.TargetType(q.TargetType), preference.Kind(q.Kind))
	if err != nil {
		h.fail(w, "delete", err)
		return
	}
	preferenceRequests.WithLabelValues("delete", "ok").Inc()
	w.WriteHeader(http.StatusNoContent)
}

// List : GET /v1/preferences?target_type=&kind=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	defer observe("list", time.Now())

	q, ok := parsePair(w, r, "list", false)
	if !ok {
		return
	}
	ids, err := h.service.List(r.Context(), UserFromContext(r.Context()), preference.TargetType(q.TargetType), preference.Kind(q.Kind))
	if err != nil {
		h.fail(w, "list", err)
		return
	}
	preferenceRequests.WithLabelValues("list", "ok").Inc()
	writeJSON(w, http.StatusOK, preference.ListResponse{TargetIDs: ids})
}

// Check : POST /v1/preferences/check
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	defer observe("check", time.Now())

	var req preference.CheckRequest
	if !decode(w, r, "check", &req) {
		return
	}
	members, err := h.service.Check(r.Context(), UserFromContext(r.Context()), req.TargetType, req.Kind, req.TargetIDs)
	if err != nil {
		h.fail(w, "check", err)
		return
	}
	preferenceRequests.WithLabelValues("check", "ok").Inc()
	writeJSON(w, http.StatusOK, preference.CheckResponse{Members: members})
}

// fail traduit les erreurs du domaine en codes HTTP
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, preference.ErrSelfTarget):
		preferenceRequests.WithLabelValues(op, "self_target").Inc()
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, preference.ErrInvalidTarget):
		preferenceRequests.WithLabelValues(op, "invalid").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("❌ Preference request failed", "operation", op, "error", err)
		preferenceRequests.WithLabelValues(op, "error").Inc()
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, op string, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		preferenceRequests.WithLabelValues(op, "invalid").Inc()
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		preferenceRequests.WithLabelValues(op, "invalid").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func parsePair(w http.ResponseWriter, r *http.Request, op string, needTarget bool) (pairQuery, bool) {
	v := r.URL.Query()
	q := pairQuery{
		TargetID:   v.Get("target_id"),
		TargetType: v.Get("target_type"),
		Kind:       v.Get("kind"),
	}
	err := validate.Struct(q)
	if err == nil && needTarget && q.TargetID == "" {
		err = errors.New("target_id is required")
	}
	if err != nil {
		preferenceRequests.WithLabelValues(op, "invalid").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return q, false
	}
	return q, true
}

func observe(op string, start time.Time) {
	preferenceDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("⚠️ response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, preference.ErrorResponse{Error: msg})
}
