package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"

	"github.com/gatehouse-api/gatehouse/internal/shared"
)

// Service manages account lifecycle and role membership. Detail reads go
// through the cache; every mutation invalidates the affected keys before
// returning.
type Service struct {
	repo  Repository
	cache *Cache
	group singleflight.Group
}

// NewService constructs a Service.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
func VerifyPassword(hashed, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}

// Create registers a user and attaches the requested roles in one
// transaction.
func (s *Service) Create(ctx context.Context, email, password string, roleIDs []int64) (*User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", shared.ErrInvalidInput)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", shared.ErrInvalidInput)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		created, err := repo.Create(ctx, email, hash, roleIDs)
		if err != nil {
			return err
		}
		id = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id, false)
}

// List returns a page of user summaries.
func (s *Service) List(ctx context.Context, req shared.PageRequest) ([]Summary, error) {
	return s.repo.ListSummaries(ctx, req)
}

// Count returns the number of active users.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Get returns the user graph for id. Concurrent cache misses for the same
// id collapse into a single store read.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	if user, ok := s.cache.GetByID(ctx, id); ok {
		return user, nil
	}
	v, err, _ := s.group.Do(idKey(id), func() (interface{}, error) {
		user, err := s.repo.GetByID(ctx, id, false)
		if err != nil {
			return nil, err
		}
		s.cache.Set(ctx, user)
		return user, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*User), nil
}

// GetByEmail returns the active user graph for email, cached like Get.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = normalizeEmail(email)
	if user, ok := s.cache.GetByEmail(ctx, email); ok {
		return user, nil
	}
	v, err, _ := s.group.Do(emailKey(email), func() (interface{}, error) {
		user, err := s.repo.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		s.cache.Set(ctx, user)
		return user, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*User), nil
}

// Update patches the user's email and, when roleIDs is non-nil, replaces
// the role set wholesale.
func (s *Service) Update(ctx context.Context, id int64, email *string, roleIDs *[]int64) (*User, error) {
	before, err := s.repo.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if email != nil {
			normalized := normalizeEmail(*email)
			if normalized == "" {
				return fmt.Errorf("%w: email is required", shared.ErrInvalidInput)
			}
			if err := repo.UpdateEmail(ctx, id, normalized); err != nil {
				return err
			}
		}
		if roleIDs != nil {
			if err := repo.ReplaceRoles(ctx, id, *roleIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, id, before.Email)
	return s.repo.GetByID(ctx, id, false)
}

// Block marks the user blocked; their existing tokens stop authenticating
// once the cache entry expires or is invalidated here.
func (s *Service) Block(ctx context.Context, id int64) error {
	return s.setBlocked(ctx, id, true)
}

// Unblock clears the blocked flag.
func (s *Service) Unblock(ctx context.Context, id int64) error {
	return s.setBlocked(ctx, id, false)
}

func (s *Service) setBlocked(ctx context.Context, id int64, blocked bool) error {
	user, err := s.repo.GetByID(ctx, id, false)
	if err != nil {
		return err
	}
	if err := s.repo.SetBlocked(ctx, id, blocked); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id, user.Email)
	return nil
}

// ResetPassword sets a new password without checking the old one. Intended
// for administrative resets behind its own privilege.
func (s *Service) ResetPassword(ctx context.Context, id int64, password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", shared.ErrInvalidInput)
	}
	user, err := s.repo.GetByID(ctx, id, false)
	if err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.repo.SetPassword(ctx, id, hash); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id, user.Email)
	return nil
}

// SetPassword stores an already-verified password change for the user.
func (s *Service) SetPassword(ctx context.Context, id int64, hashedPassword string) error {
	user, err := s.repo.GetByID(ctx, id, false)
	if err != nil {
		return err
	}
	if err := s.repo.SetPassword(ctx, id, hashedPassword); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id, user.Email)
	return nil
}

// Delete soft deletes by default, deactivating the account. A hard delete
// removes the row and its role links permanently.
func (s *Service) Delete(ctx context.Context, id int64, hard bool) error {
	user, err := s.repo.GetByID(ctx, id, true)
	if err != nil {
		return err
	}
	if hard {
		err = s.repo.HardDelete(ctx, id)
	} else {
		if user.DeletedAt != nil {
			return fmt.Errorf("%w: user already deleted", shared.ErrConflict)
		}
		err = s.repo.SoftDelete(ctx, id)
	}
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id, user.Email)
	return nil
}

// Restore reactivates a soft-deleted user. Restoring an active user is a
// no-op.
func (s *Service) Restore(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if user.DeletedAt == nil {
		return user, nil
	}
	if err := s.repo.Restore(ctx, id); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, id, user.Email)
	return s.repo.GetByID(ctx, id, false)
}

// AssignRoles attaches roles to the user; unknown or deleted role ids are
// skipped and repeated assignment is harmless.
func (s *Service) AssignRoles(ctx context.Context, id int64, roleIDs []int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AttachRoles(ctx, id, roleIDs); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, id, user.Email)
	return s.repo.GetByID(ctx, id, false)
}

// RemoveRoles detaches roles from the user.
func (s *Service) RemoveRoles(ctx context.Context, id int64, roleIDs []int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DetachRoles(ctx, id, roleIDs); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, id, user.Email)
	return s.repo.GetByID(ctx, id, false)
}
