package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-identity/internal/platform/httpx"
)

// Registrar is the service surface the HTTP layer depends on.
type Registrar interface {
	Register(ctx context.Context, loginKey, password string) (Registration, error)
	Verify(ctx context.Context, loginKey, password string) VerifyResult
}

// RateLimits bounds per-client request rates on the user endpoints. Zero
// values disable the corresponding limiter.
type RateLimits struct {
	Register int
	Verify   int
	Window   time.Duration
}

// Handler manages user registration and verification endpoints.
type Handler struct {
	logger    *slog.Logger
	service   Registrar
	validator *validator.Validate
	limits    RateLimits
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service Registrar, limits RateLimits) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: newValidator(), limits: limits}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.limiter(h.limits.Register)).Post("/register", h.register)
	r.With(h.limiter(h.limits.Verify)).Post("/verify", h.verify)
}

func (h *Handler) limiter(limit int) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	window := h.limits.Window
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(httpx.TooManyRequests),
	)
}

type verifyResponse struct {
	User *PublicUser `json:"user"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.logger.DebugContext(r.Context(), "decode register body", slog.Any("error", err))
		httpx.ValidationProblem(w, map[string]string{"body": "Invalid request body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, validationMessages(err))
		return
	}

	reg, err := h.service.Register(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		httpx.Success(w, http.StatusCreated, "", reg)
	case errors.Is(err, ErrDuplicateLoginKey):
		httpx.Problem(w, http.StatusConflict, "Conflict", "Email is already registered")
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "Failed to register user")
	}
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.logger.DebugContext(r.Context(), "decode verify body", slog.Any("error", err))
		httpx.ValidationProblem(w, map[string]string{"body": "Invalid request body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, validationMessages(err))
		return
	}

	result := h.service.Verify(r.Context(), req.Email, req.Password)
	if !result.Valid {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "Invalid email or password")
		return
	}
	httpx.Success(w, http.StatusOK, "User verified successfully", verifyResponse{User: result.User})
}
