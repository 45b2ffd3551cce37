package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gatehouse-api/gatehouse/internal/platform/httpx"
	"github.com/gatehouse-api/gatehouse/internal/shared"
)

// Handler wires the credential endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        *Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw *Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		mw:        mw,
		validator: validator.New(),
	}
}

// MountRoutes registers authentication routes. The token endpoint is
// anonymous and optionally rate limited; logout and password reset require
// a live session.
func (h *Handler) MountRoutes(r chi.Router, loginLimiter func(http.Handler) http.Handler) {
	if loginLimiter != nil {
		r.With(loginLimiter).Post("/token", h.token)
	} else {
		r.Post("/token", h.token)
	}
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Authenticate)
		r.Post("/logout", h.logout)
		r.Post("/reset-password", h.resetPassword)
	})
}

func (h *Handler) token(w http.ResponseWriter, r *http.Request) {
	email, password, err := credentials(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	token, err := h.service.Authenticate(r.Context(), email, password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// credentials accepts either a JSON body or a password-grant style form
// with `username`/`password` fields.
func credentials(r *http.Request) (string, string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req TokenRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			return "", "", fmt.Errorf("%w: %s", shared.ErrInvalidInput, "malformed payload")
		}
		if req.Email == "" || req.Password == "" {
			return "", "", fmt.Errorf("%w: %s", shared.ErrInvalidInput, "email and password are required")
		}
		return req.Email, req.Password, nil
	}
	if err := r.ParseForm(); err != nil {
		return "", "", fmt.Errorf("%w: %s", shared.ErrInvalidInput, "malformed form")
	}
	email := r.PostFormValue("username")
	if email == "" {
		email = r.PostFormValue("email")
	}
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		return "", "", fmt.Errorf("%w: %s", shared.ErrInvalidInput, "email and password are required")
	}
	return email, password, nil
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	if err := h.service.Logout(r.Context(), identity.Token); err != nil {
		h.logger.Error("revoke token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	var req ResetOwnPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", shared.ErrInvalidInput, "malformed payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", shared.ErrInvalidInput, err.Error()))
		return
	}
	if err := h.service.ResetOwnPassword(r.Context(), identity.UserID, req.OldPassword, req.NewPassword); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
