package shared

import "errors"

var (
	// ErrUnauthenticated indicates a missing, invalid, expired or revoked
	// token, or a failed credential check during login.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates an authenticated caller lacking the required
	// privilege, or a blocked user presenting correct credentials.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates the referenced record does not exist or is
	// soft-deleted when an active-only lookup was requested.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates an invariant violation such as a duplicate
	// superuser role or a duplicate unique field.
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput indicates a malformed payload or a failed
	// self-service password confirmation.
	ErrInvalidInput = errors.New("invalid input")
)
