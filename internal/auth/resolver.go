// resolver.go

package auth

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/communityshare/server/internal/core"
	"github.com/communityshare/server/internal/resource"
	"github.com/communityshare/server/internal/secret"
	"github.com/communityshare/server/internal/user"
)

const (
	actionAPIKey        = "api_key"
	actionPasswordReset = "password_reset"

	apiKeyDurationHours        = 24
	passwordResetDurationHours = 1
)

// SecretStore is the slice of the secret store the auth package needs.
type SecretStore interface {
	Create(ctx context.Context, info map[string]any, durationHours int) (*secret.Secret, error)
	Lookup(ctx context.Context, key string) (*secret.Secret, error)
	Consume(ctx context.Context, key string) (*secret.Secret, error)
}

// Resolver turns request credentials into a requester. It never errors:
// absent or invalid credentials resolve to anonymous.
type Resolver struct {
	users   user.Repository
	secrets SecretStore
	logger  *slog.Logger
}

func NewResolver(
	users user.Repository,
	secrets SecretStore,
	logger *slog.Logger,
) *Resolver {
	return &Resolver{users: users, secrets: secrets, logger: logger}
}

// Resolve supports three credential shapes:
//
//	Basic email:password
//	Basic api:<key>
//	Bearer <key>
func (rv *Resolver) Resolve(r *http.Request) *resource.Requester {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil
	}

	scheme, credentials, found := strings.Cut(header, " ")
	if !found {
		return nil
	}

	ctx := r.Context()

	switch strings.ToLower(scheme) {
	case "basic":
		decoded, err := base64.StdEncoding.DecodeString(credentials)
		if err != nil {
			return nil
		}
		identity, password, found := strings.Cut(string(decoded), ":")
		if !found {
			return nil
		}
		if identity == "api" {
			return rv.resolveKey(ctx, password)
		}
		return rv.resolvePassword(ctx, identity, password)

	case "bearer":
		return rv.resolveKey(ctx, strings.TrimSpace(credentials))

	default:
		return nil
	}
}

func (rv *Resolver) resolvePassword(
	ctx context.Context,
	email, password string,
) *resource.Requester {
	u, err := rv.users.GetByEmail(ctx, email)

	// Verification always runs against some hash so response timing
	// does not reveal whether the account exists.
	var storedHash *string
	if err == nil {
		storedHash = &u.PasswordHash
	}

	valid, verifyErr := core.VerifyPasswordTimingSafe(password, storedHash)
	if err != nil || verifyErr != nil || !valid {
		return nil
	}

	return u.Requester()
}

func (rv *Resolver) resolveKey(
	ctx context.Context,
	key string,
) *resource.Requester {
	s, err := rv.secrets.Lookup(ctx, key)
	if err != nil {
		return nil
	}

	info, err := s.Info()
	if err != nil {
		rv.logger.Warn("malformed secret payload", "error", err)
		return nil
	}

	if action, _ := info["action"].(string); action != actionAPIKey {
		return nil
	}

	userID, ok := info["userId"].(float64)
	if !ok {
		return nil
	}

	u, err := rv.users.GetByID(ctx, int64(userID))
	if err != nil || !u.Active {
		return nil
	}

	return u.Requester()
}

// Middleware resolves the requester once per request and stashes it in
// the context. Authenticated requests bump last_active, best effort.
func (rv *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := rv.Resolve(r)
		if req == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := resource.WithRequester(r.Context(), req)

		if err := rv.users.TouchLastActive(ctx, req.ID); err != nil {
			rv.logger.Debug("touch last_active failed",
				"user_id", req.ID,
				"error", err,
			)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
