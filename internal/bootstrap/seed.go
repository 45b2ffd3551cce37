// Package bootstrap seeds the baseline access control graph on startup:
// the standard privileges, a superuser role holding them, and an initial
// administrator account. Running it again is a no-op.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gatehouse-api/gatehouse/internal/roles"
	"github.com/gatehouse-api/gatehouse/internal/shared"
	"github.com/gatehouse-api/gatehouse/internal/users"
)

// AdminRoleName is the seeded superuser role.
const AdminRoleName = "admin"

// BaselinePrivileges returns the privilege set every deployment starts
// with: CRUD on the three managed resources plus the user moderation
// actions.
func BaselinePrivileges() []roles.PrivilegeSpec {
	specs := make([]roles.PrivilegeSpec, 0, 15)
	for _, resource := range []string{"users", "roles", "privileges"} {
		for _, action := range []string{"read", "insert", "update", "delete"} {
			specs = append(specs, roles.PrivilegeSpec{Resource: resource, Action: action})
		}
	}
	for _, action := range []string{"block", "unblock", "reset_password"} {
		specs = append(specs, roles.PrivilegeSpec{Resource: "users", Action: action})
	}
	return specs
}

// Seeder provisions the baseline graph.
type Seeder struct {
	roles  *roles.Service
	users  *users.Service
	logger *slog.Logger
}

// NewSeeder constructs a Seeder.
func NewSeeder(roleService *roles.Service, userService *users.Service, logger *slog.Logger) *Seeder {
	return &Seeder{roles: roleService, users: userService, logger: logger}
}

// Run ensures the baseline privileges, the admin superuser role, and the
// administrator account exist. Existing pieces are left untouched except
// that missing baseline privileges are granted to the admin role.
func (s *Seeder) Run(ctx context.Context, adminEmail, adminPassword string) error {
	role, err := s.ensureAdminRole(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap admin role: %w", err)
	}
	if err := s.ensureAdminUser(ctx, role.ID, adminEmail, adminPassword); err != nil {
		return fmt.Errorf("bootstrap admin user: %w", err)
	}
	return nil
}

func (s *Seeder) ensureAdminRole(ctx context.Context) (*roles.Role, error) {
	role, err := s.roles.GetByName(ctx, AdminRoleName)
	if err == nil {
		// Re-grant the baseline set; grants are idempotent.
		for _, spec := range BaselinePrivileges() {
			if _, err := s.roles.GrantPrivilege(ctx, role.ID, spec.Resource, spec.Action); err != nil {
				return nil, err
			}
		}
		return role, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	s.logger.Info("seeding superuser role", slog.String("role", AdminRoleName))
	return s.roles.Create(ctx, AdminRoleName, true, BaselinePrivileges())
}

func (s *Seeder) ensureAdminUser(ctx context.Context, roleID int64, email, password string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		_, err = s.users.AssignRoles(ctx, user.ID, []int64{roleID})
		return err
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	s.logger.Info("seeding administrator account", slog.String("email", email))
	_, err = s.users.Create(ctx, email, password, []int64{roleID})
	return err
}
