package privileges

import (
	"context"
	"fmt"
	"strings"

	"github.com/gatehouse-api/gatehouse/internal/shared"
)

// Service wraps privilege business rules over the repository.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns a page of privileges, excluding soft-deleted rows unless asked.
func (s *Service) List(ctx context.Context, includeDeleted bool, req shared.PageRequest) ([]Privilege, error) {
	return s.repo.List(ctx, includeDeleted, req)
}

// Count returns the number of privileges.
func (s *Service) Count(ctx context.Context, includeDeleted bool) (int, error) {
	return s.repo.Count(ctx, includeDeleted)
}

// Get returns an active privilege by id.
func (s *Service) Get(ctx context.Context, id int64) (*Privilege, error) {
	return s.repo.Get(ctx, id, false)
}

// Create inserts a privilege with get-or-create semantics: identical
// (resource, action) pairs return the existing row, and a soft-deleted match
// is restored.
func (s *Service) Create(ctx context.Context, resource, action string, description *string) (*Privilege, error) {
	resource = strings.TrimSpace(resource)
	action = strings.TrimSpace(action)
	if resource == "" || action == "" {
		return nil, fmt.Errorf("%w: resource and action are required", shared.ErrInvalidInput)
	}
	return s.repo.GetOrCreate(ctx, resource, action, description)
}

// Update patches a privilege's fields.
func (s *Service) Update(ctx context.Context, id int64, resource, action, description *string) (*Privilege, error) {
	if resource == nil && action == nil && description == nil {
		return s.repo.Get(ctx, id, false)
	}
	if err := s.repo.Update(ctx, id, resource, action, description); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id, false)
}

// Delete soft-deletes a privilege, or removes the row when hard is set.
func (s *Service) Delete(ctx context.Context, id int64, hard bool) error {
	p, err := s.repo.Get(ctx, id, true)
	if err != nil {
		return err
	}
	if hard {
		return s.repo.HardDelete(ctx, id)
	}
	if p.DeletedAt != nil {
		return fmt.Errorf("%w: privilege already deleted", shared.ErrConflict)
	}
	return s.repo.SoftDelete(ctx, id)
}

// Restore clears a privilege's soft-delete marker. Restoring an active
// privilege is a no-op.
func (s *Service) Restore(ctx context.Context, id int64) (*Privilege, error) {
	p, err := s.repo.Get(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if p.DeletedAt == nil {
		return p, nil
	}
	if err := s.repo.Restore(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id, false)
}
