package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gatehouse-api/gatehouse/internal/auth/blocklist"
	"github.com/gatehouse-api/gatehouse/internal/platform/httpx"
	"github.com/gatehouse-api/gatehouse/internal/shared"
	"github.com/gatehouse-api/gatehouse/internal/users"
)

// Middleware authenticates bearer tokens and loads the caller into the
// request context. The token is decoded exactly once per request; anything
// downstream reads the stored identity instead of re-parsing the header.
type Middleware struct {
	issuer *TokenIssuer
	ledger *blocklist.Ledger
	users  *users.Service
}

// NewMiddleware constructs the authentication middleware.
func NewMiddleware(issuer *TokenIssuer, ledger *blocklist.Ledger, userService *users.Service) *Middleware {
	return &Middleware{issuer: issuer, ledger: ledger, users: userService}
}

// Authenticate rejects requests without a valid, unrevoked token bound to
// an active account. Decode failure and revocation produce the same 401.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		claims, err := m.issuer.Decode(token)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		if m.ledger.IsRevoked(r.Context(), token) {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		user, err := m.users.Get(r.Context(), userID)
		if err != nil || !user.IsActive {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		if user.IsBlocked {
			httpx.RespondError(w, fmt.Errorf("%w: user is blocked", shared.ErrForbidden))
			return
		}
		ctx := shared.ContextWithIdentity(r.Context(), shared.Identity{
			UserID: user.ID,
			Email:  user.Email,
			Token:  token,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", fmt.Errorf("%w: missing bearer token", shared.ErrUnauthenticated)
	}
	return strings.TrimSpace(header[len(prefix):]), nil
}
