package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse-api/gatehouse/internal/shared"
	"github.com/gatehouse-api/gatehouse/internal/users"
)

func newMiddlewareFixture(t *testing.T) (*Middleware, *Service, *stubUserStore) {
	t.Helper()
	svc, store, issuer, ledger := newAuthFixture(t)
	userService := users.NewService(store, nil)
	return NewMiddleware(issuer, ledger, userService), svc, store
}

func authedRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func runProtected(mw *Middleware, req *http.Request) (*httptest.ResponseRecorder, *shared.Identity) {
	var captured *shared.Identity
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := shared.IdentityFromContext(r.Context()); ok {
			captured = &id
		}
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr, captured
}

func TestAuthenticatePopulatesIdentity(t *testing.T) {
	mw, svc, _ := newMiddlewareFixture(t)

	token, err := svc.Authenticate(t.Context(), "alice@example.com", "correct-horse")
	require.NoError(t, err)

	rr, identity := runProtected(mw, authedRequest(token))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, identity)
	require.Equal(t, int64(1), identity.UserID)
	require.Equal(t, "alice@example.com", identity.Email)
	require.Equal(t, token, identity.Token)
}

func TestAuthenticateRejectsMissingAndMalformedHeaders(t *testing.T) {
	mw, _, _ := newMiddlewareFixture(t)

	rr, _ := runProtected(mw, authedRequest(""))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, _ = runProtected(mw, authedRequest("not-a-jwt"))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthenticateRejectsRevokedToken(t *testing.T) {
	mw, svc, _ := newMiddlewareFixture(t)
	ctx := t.Context()

	token, err := svc.Authenticate(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)

	rr, _ := runProtected(mw, authedRequest(token))
	require.Equal(t, http.StatusOK, rr.Code)

	require.NoError(t, svc.Logout(ctx, token))

	rr, _ = runProtected(mw, authedRequest(token))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthenticateRejectsSoftDeletedUser(t *testing.T) {
	mw, svc, store := newMiddlewareFixture(t)

	token, err := svc.Authenticate(t.Context(), "alice@example.com", "correct-horse")
	require.NoError(t, err)

	now := time.Now()
	store.user.DeletedAt = &now
	store.user.IsActive = false

	rr, _ := runProtected(mw, authedRequest(token))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	// Restoring the account makes the still-valid token usable again.
	store.user.DeletedAt = nil
	store.user.IsActive = true
	rr, _ = runProtected(mw, authedRequest(token))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthenticateRejectsBlockedUserWithForbidden(t *testing.T) {
	mw, svc, store := newMiddlewareFixture(t)

	token, err := svc.Authenticate(t.Context(), "alice@example.com", "correct-horse")
	require.NoError(t, err)

	store.user.IsBlocked = true
	rr, _ := runProtected(mw, authedRequest(token))
	require.Equal(t, http.StatusForbidden, rr.Code)

	store.user.IsBlocked = false
	rr, _ = runProtected(mw, authedRequest(token))
	require.Equal(t, http.StatusOK, rr.Code)
}
