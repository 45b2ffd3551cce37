// Package rbac decides whether a user may perform an action on a resource.
package rbac

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse-api/gatehouse/internal/shared"
)

// Service evaluates privileges against the role/privilege graph.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs a Service backed by the provided pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// IsSuperuser reports whether the user holds any non-deleted superuser role.
func (s *Service) IsSuperuser(ctx context.Context, userID int64) (bool, error) {
	const query = `
		SELECT COUNT(*)
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		  AND r.is_superuser
		  AND r.deleted_at IS NULL`

	var count int
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return false, fmt.Errorf("rbac: superuser lookup: %w", err)
	}
	return count > 0, nil
}

// HasPrivilege reports whether the user holds a non-deleted role linked to a
// non-deleted privilege matching (resource, action) exactly. No wildcard or
// hierarchy semantics.
func (s *Service) HasPrivilege(ctx context.Context, userID int64, resource, action string) (bool, error) {
	const query = `
		SELECT COUNT(*)
		FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		JOIN roles r ON r.id = ur.role_id
		JOIN role_privileges rp ON rp.role_id = r.id
		JOIN privileges p ON p.id = rp.privilege_id
		WHERE u.id = $1
		  AND u.deleted_at IS NULL
		  AND r.deleted_at IS NULL
		  AND p.deleted_at IS NULL
		  AND p.resource = $2
		  AND p.action = $3`

	var count int
	if err := s.pool.QueryRow(ctx, query, userID, resource, action).Scan(&count); err != nil {
		return false, fmt.Errorf("rbac: privilege lookup: %w", err)
	}
	return count > 0, nil
}

// AssertPrivilege authorizes (userID, resource, action). Superusers bypass
// the privilege graph entirely.
func (s *Service) AssertPrivilege(ctx context.Context, userID int64, resource, action string) error {
	super, err := s.IsSuperuser(ctx, userID)
	if err != nil {
		return err
	}
	if super {
		return nil
	}
	ok, err := s.HasPrivilege(ctx, userID, resource, action)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: missing privilege %s on %s", shared.ErrForbidden, action, resource)
	}
	return nil
}
