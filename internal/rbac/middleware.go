package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gatehouse-api/gatehouse/internal/platform/httpx"
	"github.com/gatehouse-api/gatehouse/internal/shared"
)

// Authorizer is the evaluator contract the middleware depends on.
type Authorizer interface {
	IsSuperuser(ctx context.Context, userID int64) (bool, error)
	AssertPrivilege(ctx context.Context, userID int64, resource, action string) error
}

// Middleware wires authorization checks for HTTP handlers. It expects the
// auth middleware to have populated the request identity already.
type Middleware struct {
	Service Authorizer
	Logger  *slog.Logger
}

// RequirePrivilege rejects requests whose caller may not perform action on
// resource. Superusers always pass.
func (m Middleware) RequirePrivilege(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			if err := m.Service.AssertPrivilege(r.Context(), id.UserID, resource, action); err != nil {
				if !errors.Is(err, shared.ErrForbidden) && m.Logger != nil {
					m.Logger.Error("assert privilege",
						slog.Int64("user_id", id.UserID),
						slog.String("resource", resource),
						slog.String("action", action),
						slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSuperuser rejects requests whose caller holds no superuser role.
func (m Middleware) RequireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := shared.IdentityFromContext(r.Context())
		if !ok {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		super, err := m.Service.IsSuperuser(r.Context(), id.UserID)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("superuser check", slog.Int64("user_id", id.UserID), slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		if !super {
			httpx.RespondError(w, shared.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
