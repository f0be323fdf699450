// handler.go

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/communityshare/server/internal/core"
	"github.com/communityshare/server/internal/mail"
	"github.com/communityshare/server/internal/resource"
	"github.com/communityshare/server/internal/user"
)

type Handler struct {
	users     user.Repository
	userRes   *resource.Resource[*user.User]
	secrets   SecretStore
	mailer    mail.Mailer
	baseURL   string
	validator *validator.Validate
	logger    *slog.Logger
}

func NewHandler(
	users user.Repository,
	userRes *resource.Resource[*user.User],
	secrets SecretStore,
	mailer mail.Mailer,
	baseURL string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		users:     users,
		userRes:   userRes,
		secrets:   secrets,
		mailer:    mailer,
		baseURL:   baseURL,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/signup", h.Signup)
	r.Get("/requester", h.GetRequester)
	r.Post("/api_key", h.CreateAPIKey)
	r.Post("/password_reset", h.RequestPasswordReset)
	r.Post("/password_reset/confirm", h.ConfirmPasswordReset)
}

// Signup creates an account and returns a fresh api key alongside the
// new user's own view of themself.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	hash, err := core.HashPassword(req.Password)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	u := &user.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
	}

	ctx := r.Context()
	if err := h.users.Create(ctx, u); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			core.BadRequest(w, "email already registered")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	key, err := h.issueAPIKey(ctx, u.ID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	serialized, err := h.userRes.SerializeAdmin(ctx, u, u.Requester())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OKWithUser(w, APIKeyResponse{APIKey: key}, serialized)
}

// GetRequester returns the authenticated user's own admin-tier view.
func (h *Handler) GetRequester(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := resource.RequesterFrom(ctx)
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	u, err := h.users.GetByID(ctx, req.ID)
	if err != nil {
		core.RespondError(w, err)
		return
	}

	serialized, err := h.userRes.SerializeAdmin(ctx, u, req)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, serialized)
}

// CreateAPIKey mints a 24h api key for the authenticated requester.
// Typically called with Basic email:password credentials.
func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := resource.RequesterFrom(ctx)
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	key, err := h.issueAPIKey(ctx, req.ID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, APIKeyResponse{APIKey: key})
}

// RequestPasswordReset always responds 200 so the endpoint cannot be
// used to probe which emails have accounts.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	ctx := r.Context()
	u, err := h.users.GetByEmail(ctx, req.Email)
	if err == nil {
		if resetErr := h.sendPasswordReset(ctx, u); resetErr != nil {
			h.logger.Error("password reset failed",
				"user_id", u.ID,
				"error", resetErr,
			)
		}
	}

	core.OK(w, map[string]string{
		"message": "If the address has an account, a reset link has been sent",
	})
}

func (h *Handler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	ctx := r.Context()

	s, err := h.secrets.Consume(ctx, req.Key)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrTokenExpired):
			core.BadRequest(w, "reset link has expired")
		case errors.Is(err, core.ErrTokenUsed):
			core.BadRequest(w, "reset link has already been used")
		case errors.Is(err, core.ErrNotFound),
			errors.Is(err, core.ErrTokenInvalid):
			core.BadRequest(w, "invalid reset link")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	info, err := s.Info()
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	action, _ := info["action"].(string)
	userID, ok := info["userId"].(float64)
	if action != actionPasswordReset || !ok {
		core.BadRequest(w, "invalid reset link")
		return
	}

	hash, err := core.HashPassword(req.Password)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	if err := h.users.UpdatePassword(ctx, int64(userID), hash); err != nil {
		core.RespondError(w, err)
		return
	}

	core.OK(w, map[string]string{"message": "password updated"})
}

func (h *Handler) issueAPIKey(ctx context.Context, userID int64) (string, error) {
	s, err := h.secrets.Create(ctx, map[string]any{
		"userId": userID,
		"action": actionAPIKey,
	}, apiKeyDurationHours)
	if err != nil {
		return "", fmt.Errorf("issue api key: %w", err)
	}
	return s.Key, nil
}

func (h *Handler) sendPasswordReset(ctx context.Context, u *user.User) error {
	s, err := h.secrets.Create(ctx, map[string]any{
		"userId": u.ID,
		"action": actionPasswordReset,
	}, passwordResetDurationHours)
	if err != nil {
		return fmt.Errorf("create reset secret: %w", err)
	}

	link := fmt.Sprintf("%s/reset_password?key=%s", h.baseURL, s.Key)

	return h.mailer.Send(ctx, mail.Message{
		To:      u.Email,
		Subject: "Password reset",
		Text: fmt.Sprintf(
			"Hello %s,\n\nUse this link to reset your password "+
				"(valid for one hour):\n\n%s\n", u.Name, link,
		),
	})
}
