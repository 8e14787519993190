// Package handler exposes the engine over a JSON HTTP API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/academy/internal/apperr"
	"github.com/pavelanni/academy/internal/engine"
	appI18n "github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/metrics"
	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/store"
)

const maxBodyBytes = 10 << 20

// DefaultSessionTTL is how long a login lasts when Config leaves it unset.
const DefaultSessionTTL = 24 * time.Hour

// Config holds transport settings.
type Config struct {
	SecureCookies bool
	SessionTTL    time.Duration
}

func (c Config) sessionTTL() time.Duration {
	if c.SessionTTL <= 0 {
		return DefaultSessionTTL
	}
	return c.SessionTTL
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	eng     *engine.Engine
	store   *store.Store
	metrics *metrics.Metrics
	config  Config
}

// New creates a new Handler.
func New(eng *engine.Engine, m *metrics.Metrics, cfg Config) *Handler {
	return &Handler{eng: eng, store: eng.Store(), metrics: m, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", h.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(appI18n.Middleware)
		r.Post("/auth/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Post("/auth/logout", h.handleLogout)

			r.Post("/orders/quote", h.handleQuote)
			r.Post("/orders", h.handlePlaceOrder)
			r.Get("/orders/mine", h.handleMyOrders)
			r.Get("/entitlements/mine", h.handleMyEntitlements)
			r.Get("/doors/{doorID}/access", h.handleDoorAccess)

			r.Get("/lessons/progress", h.handleLessonProgress)
			r.Post("/lessons/{lessonID}/view", h.handleRecordLessonView)

			r.Get("/exams/history", h.handleHistory)
			r.Get("/exams/stats", h.handleStudentStats)
			r.Get("/exams/{examID}", h.handleExamView)
			r.Post("/exams/{examID}/start", h.handleStartAttempt)
			r.Post("/exams/{examID}/questions/{questionID}/answer", h.handleAnswer)
			r.Post("/exams/{examID}/finish", h.handleFinishAttempt)

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireRole(model.UserRoleAdmin, model.UserRoleTeacher))
				r.Get("/orders", h.handleListOrders)
				r.Get("/courses/{courseID}/orders", h.handleCourseOrders)
				r.Post("/orders/{orderID}/approve", h.handleApproveOrder)
				r.Post("/orders/{orderID}/reject", h.handleRejectOrder)
				r.Post("/entitlements", h.handleGrant)
				r.Post("/coupons", h.handleCreateCoupon)
				r.Get("/coupons/{couponID}/stats", h.handleCouponStats)
				r.Post("/access-codes", h.handleCreateAccessCode)
				r.Post("/exams", h.handleCreateExam)
				r.Post("/exams/{examID}/questions", h.handleAddQuestion)
				r.Get("/exams/{examID}/export", h.handleExportExam)
				r.Get("/lessons/{lessonID}/exam-stats", h.handleLessonStats)
				r.Post("/catalog", h.handleImportCatalog)

				r.Group(func(r chi.Router) {
					r.Use(requireRole(model.UserRoleAdmin))
					r.Get("/users", h.handleListUsers)
					r.Post("/users", h.handleCreateUser)
					r.Post("/users/{userID}/toggle", h.handleToggleUserActive)
				})
			})
		})
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.UserCount(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeErrorCode(w http.ResponseWriter, r *http.Request, status int, code string) {
	writeJSON(w, status, map[string]errorBody{
		"error": {Code: code, Message: appI18n.T(r.Context(), code)},
	})
}

// statusOf maps an error kind to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.KindNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.KindInvalidState), errors.Is(err, apperr.KindConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.KindAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, apperr.KindValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.KindExpiredOrExhausted):
		return http.StatusGone
	}
	return http.StatusInternalServerError
}

// writeError renders err. Infrastructure failures are logged and reported
// without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	code := apperr.CodeOf(err)
	if status == http.StatusInternalServerError || code == "" {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeErrorCode(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	slog.Debug("request rejected", "path", r.URL.Path, "code", code, "error", err)
	writeErrorCode(w, r, status, code)
}

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		slog.Debug("bad request body", "path", r.URL.Path, "error", err)
		writeErrorCode(w, r, http.StatusBadRequest, "BadRequest")
		return false
	}
	return true
}

func pageFromQuery(r *http.Request) model.Page {
	n, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return model.Page{Number: n, Limit: limit}.Normalize()
}

type listResponse[T any] struct {
	Items      []T              `json:"items"`
	Pagination model.Pagination `json:"pagination"`
	Summary    string           `json:"summary,omitempty"`
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
