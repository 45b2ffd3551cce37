package app

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse-api/gatehouse/internal/auth"
	"github.com/gatehouse-api/gatehouse/internal/auth/blocklist"
	"github.com/gatehouse-api/gatehouse/internal/privileges"
	"github.com/gatehouse-api/gatehouse/internal/rbac"
	"github.com/gatehouse-api/gatehouse/internal/roles"
	"github.com/gatehouse-api/gatehouse/internal/shared"
	"github.com/gatehouse-api/gatehouse/internal/users"
	"github.com/gatehouse-api/gatehouse/jobs"
)

// singleUserRepo serves exactly one active user for middleware lookups.
type singleUserRepo struct {
	user users.User
}

func (r singleUserRepo) WithTx(ctx context.Context, fn func(context.Context, users.Repository) error) error {
	return fn(ctx, r)
}

func (r singleUserRepo) GetByID(ctx context.Context, id int64, includeDeleted bool) (*users.User, error) {
	if id != r.user.ID {
		return nil, shared.ErrNotFound
	}
	out := r.user
	return &out, nil
}

func (r singleUserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	if email != r.user.Email {
		return nil, shared.ErrNotFound
	}
	out := r.user
	return &out, nil
}

func (r singleUserRepo) ListSummaries(ctx context.Context, req shared.PageRequest) ([]users.Summary, error) {
	return nil, nil
}

func (r singleUserRepo) Count(ctx context.Context) (int, error) { return 1, nil }

func (r singleUserRepo) Create(ctx context.Context, email, hashedPassword string, roleIDs []int64) (int64, error) {
	return 0, shared.ErrConflict
}

func (r singleUserRepo) UpdateEmail(ctx context.Context, id int64, email string) error  { return nil }
func (r singleUserRepo) ReplaceRoles(ctx context.Context, id int64, ids []int64) error  { return nil }
func (r singleUserRepo) AttachRoles(ctx context.Context, id int64, ids []int64) error   { return nil }
func (r singleUserRepo) DetachRoles(ctx context.Context, id int64, ids []int64) error   { return nil }
func (r singleUserRepo) SetBlocked(ctx context.Context, id int64, blocked bool) error   { return nil }
func (r singleUserRepo) SetPassword(ctx context.Context, id int64, hashed string) error { return nil }
func (r singleUserRepo) SoftDelete(ctx context.Context, id int64) error                 { return nil }
func (r singleUserRepo) HardDelete(ctx context.Context, id int64) error                 { return nil }
func (r singleUserRepo) Restore(ctx context.Context, id int64) error                    { return nil }

type fixedAuthorizer struct {
	superuser bool
}

func (a fixedAuthorizer) IsSuperuser(ctx context.Context, userID int64) (bool, error) {
	return a.superuser, nil
}

func (a fixedAuthorizer) AssertPrivilege(ctx context.Context, userID int64, resource, action string) error {
	if a.superuser {
		return nil
	}
	return shared.ErrForbidden
}

func newTestRouter(t *testing.T, superuser bool) (http.Handler, string) {
	t.Helper()
	logger := slog.Default()

	issuer := auth.NewTokenIssuer("router-test-secret", time.Minute)
	ledger := blocklist.New(nil, time.Minute, logger)

	userService := users.NewService(singleUserRepo{user: users.User{
		ID:       7,
		Email:    "ops@example.com",
		IsActive: true,
	}}, nil)

	authMiddleware := auth.NewMiddleware(issuer, ledger, userService)
	authHandler := auth.NewHandler(logger, nil, authMiddleware)
	rbacMW := rbac.Middleware{Service: fixedAuthorizer{superuser: superuser}, Logger: logger}

	router := NewRouter(RouterParams{
		Logger:            logger,
		AuthHandler:       authHandler,
		AuthMiddleware:    authMiddleware,
		RBACMiddleware:    rbacMW,
		UsersHandler:      users.NewHandler(logger, userService, rbacMW),
		RolesHandler:      roles.NewHandler(logger, nil, rbacMW),
		PrivilegesHandler: privileges.NewHandler(logger, nil, rbacMW),
		JobHandler:        jobs.NewHandler(nil, logger),
	})

	token, err := issuer.Issue(7, "ops@example.com")
	require.NoError(t, err)
	return router, token
}

func TestJobRoutesRejectAnonymousCallers(t *testing.T) {
	router, _ := newTestRouter(t, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/jobs/health", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJobRoutesRequireSuperuser(t *testing.T) {
	router, token := newTestRouter(t, false)

	req := httptest.NewRequest("GET", "/jobs/health", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealthzStaysAnonymous(t *testing.T) {
	router, _ := newTestRouter(t, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
