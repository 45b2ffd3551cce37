package auth

import (
	"context"
	"fmt"

	"github.com/gatehouse-api/gatehouse/internal/auth/blocklist"
	"github.com/gatehouse-api/gatehouse/internal/shared"
	"github.com/gatehouse-api/gatehouse/internal/users"
)

// Service issues credentials and manages the caller's own account session.
type Service struct {
	users  *users.Service
	issuer *TokenIssuer
	ledger *blocklist.Ledger
}

// NewService constructs a Service.
func NewService(userService *users.Service, issuer *TokenIssuer, ledger *blocklist.Ledger) *Service {
	return &Service{users: userService, issuer: issuer, ledger: ledger}
}

// Authenticate verifies the credential pair and returns a signed access
// token. Unknown email and wrong password are indistinguishable to the
// caller; a blocked account is reported as such.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("%w: incorrect email or password", shared.ErrUnauthenticated)
	}
	if !users.VerifyPassword(user.HashedPassword, password) {
		return "", fmt.Errorf("%w: incorrect email or password", shared.ErrUnauthenticated)
	}
	if !user.IsActive {
		return "", fmt.Errorf("%w: incorrect email or password", shared.ErrUnauthenticated)
	}
	if user.IsBlocked {
		return "", fmt.Errorf("%w: user is blocked", shared.ErrForbidden)
	}
	return s.issuer.Issue(user.ID, user.Email)
}

// Logout revokes the presented token for the remainder of its lifetime.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.ledger.Revoke(ctx, token)
}

// ResetOwnPassword changes the caller's password after verifying the
// current one.
func (s *Service) ResetOwnPassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !users.VerifyPassword(user.HashedPassword, oldPassword) {
		return fmt.Errorf("%w: incorrect password", shared.ErrInvalidInput)
	}
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", shared.ErrInvalidInput)
	}
	hash, err := users.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, userID, hash)
}
