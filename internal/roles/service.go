package roles

import (
	"context"
	"fmt"
	"strings"

	"github.com/gatehouse-api/gatehouse/internal/shared"
)

// Service enforces graph invariants on role and link mutations. All
// multi-write sequences run inside one transaction so a role is never
// visible without its intended superuser flag or privilege set.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns a page of role summaries.
func (s *Service) List(ctx context.Context, req shared.PageRequest) ([]Summary, error) {
	return s.repo.ListSummaries(ctx, false, req)
}

// Count returns the number of roles.
func (s *Service) Count(ctx context.Context, includeDeleted bool) (int, error) {
	return s.repo.Count(ctx, includeDeleted)
}

// Get returns an active role with its privileges populated.
func (s *Service) Get(ctx context.Context, id int64) (*Role, error) {
	return s.repo.Get(ctx, id, false)
}

// GetByName returns an active role by its unique name.
func (s *Service) GetByName(ctx context.Context, name string) (*Role, error) {
	return s.repo.GetByName(ctx, name)
}

// Create inserts a role and attaches the requested privilege set atomically.
// A second active superuser role is rejected with Conflict; the partial
// unique index backstops concurrent creations.
func (s *Service) Create(ctx context.Context, name string, isSuperuser bool, specs []PrivilegeSpec) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", shared.ErrInvalidInput)
	}

	var roleID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if isSuperuser {
			if err := assertNoOtherSuperuser(ctx, repo, 0); err != nil {
				return err
			}
		}
		id, err := repo.Create(ctx, name, isSuperuser)
		if err != nil {
			return err
		}
		roleID = id
		return syncPrivileges(ctx, repo, id, specs)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, roleID, false)
}

// Update patches a role. A non-nil privilege set is a full replacement:
// existing links are cleared and the requested set reattached, so omitted
// privileges are revoked.
func (s *Service) Update(ctx context.Context, id int64, name *string, isSuperuser *bool, specs *[]PrivilegeSpec) (*Role, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		role, err := repo.Get(ctx, id, false)
		if err != nil {
			return err
		}
		if isSuperuser != nil && *isSuperuser && !role.IsSuperuser {
			if err := assertNoOtherSuperuser(ctx, repo, id); err != nil {
				return err
			}
		}
		if name != nil || isSuperuser != nil {
			if err := repo.Update(ctx, id, name, isSuperuser); err != nil {
				return err
			}
		}
		if specs != nil {
			if err := repo.ClearPrivileges(ctx, id); err != nil {
				return err
			}
			if err := syncPrivileges(ctx, repo, id, *specs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id, false)
}

// Delete soft-deletes a role, or removes the row when hard is set.
func (s *Service) Delete(ctx context.Context, id int64, hard bool) error {
	role, err := s.repo.Get(ctx, id, true)
	if err != nil {
		return err
	}
	if hard {
		return s.repo.HardDelete(ctx, id)
	}
	if role.DeletedAt != nil {
		return fmt.Errorf("%w: role already deleted", shared.ErrConflict)
	}
	return s.repo.SoftDelete(ctx, id)
}

// Restore clears a role's soft-delete marker. Restoring an active role is a
// no-op. Restoring a superuser role may conflict with one created since.
func (s *Service) Restore(ctx context.Context, id int64) (*Role, error) {
	role, err := s.repo.Get(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if role.DeletedAt == nil {
		return role, nil
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if role.IsSuperuser {
			if err := assertNoOtherSuperuser(ctx, repo, id); err != nil {
				return err
			}
		}
		return repo.Restore(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id, false)
}

// GrantPrivilege get-or-creates the privilege and attaches it to the role.
// Idempotent: granting an already-linked privilege changes nothing.
func (s *Service) GrantPrivilege(ctx context.Context, roleID int64, resource, action string) (*Role, error) {
	resource = strings.TrimSpace(resource)
	action = strings.TrimSpace(action)
	if resource == "" || action == "" {
		return nil, fmt.Errorf("%w: resource and action are required", shared.ErrInvalidInput)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.Get(ctx, roleID, false); err != nil {
			return err
		}
		privID, err := repo.GetOrCreatePrivilege(ctx, resource, action)
		if err != nil {
			return err
		}
		return repo.AttachPrivilege(ctx, roleID, privID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, roleID, false)
}

// RevokePrivilege detaches the link without deleting either endpoint.
func (s *Service) RevokePrivilege(ctx context.Context, roleID, privilegeID int64) (*Role, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.Get(ctx, roleID, false); err != nil {
			return err
		}
		exists, err := repo.PrivilegeExists(ctx, privilegeID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: privilege %d", shared.ErrNotFound, privilegeID)
		}
		return repo.DetachPrivilege(ctx, roleID, privilegeID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, roleID, false)
}

// ListLinks returns a page of role-privilege associations.
func (s *Service) ListLinks(ctx context.Context, req shared.PageRequest) ([]Link, error) {
	return s.repo.ListLinks(ctx, req)
}

// CountLinks returns the number of role-privilege associations.
func (s *Service) CountLinks(ctx context.Context) (int, error) {
	return s.repo.CountLinks(ctx)
}

// GetLink returns one association by its composite key.
func (s *Service) GetLink(ctx context.Context, roleID, privilegeID int64) (*Link, error) {
	return s.repo.GetLink(ctx, roleID, privilegeID)
}

// CreateLink attaches an existing privilege to an existing role by id.
func (s *Service) CreateLink(ctx context.Context, roleID, privilegeID int64) (*Link, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.Get(ctx, roleID, false); err != nil {
			return err
		}
		exists, err := repo.PrivilegeExists(ctx, privilegeID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: privilege %d", shared.ErrNotFound, privilegeID)
		}
		return repo.AttachPrivilege(ctx, roleID, privilegeID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetLink(ctx, roleID, privilegeID)
}

// DeleteLink removes an association by its composite key.
func (s *Service) DeleteLink(ctx context.Context, roleID, privilegeID int64) error {
	if _, err := s.repo.GetLink(ctx, roleID, privilegeID); err != nil {
		return err
	}
	return s.repo.DetachPrivilege(ctx, roleID, privilegeID)
}

func assertNoOtherSuperuser(ctx context.Context, repo Repository, excludeRoleID int64) error {
	count, err := repo.CountOtherActiveSuperusers(ctx, excludeRoleID)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: a superuser role already exists", shared.ErrConflict)
	}
	return nil
}

func syncPrivileges(ctx context.Context, repo Repository, roleID int64, specs []PrivilegeSpec) error {
	for _, spec := range specs {
		privID, err := repo.GetOrCreatePrivilege(ctx, strings.TrimSpace(spec.Resource), strings.TrimSpace(spec.Action))
		if err != nil {
			return err
		}
		if err := repo.AttachPrivilege(ctx, roleID, privID); err != nil {
			return err
		}
	}
	return nil
}
