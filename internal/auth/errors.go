package auth

import "errors"

// Sentinel errors. The HTTP layer maps each to a status code and, for
// login failures, to its own user-facing message so the client can render
// the right guidance.
var (
	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: already exists")
	ErrInvalidInput = errors.New("auth: invalid input")
	ErrInvalidToken = errors.New("auth: invalid token")

	// Login status ladder, checked in this order.
	ErrUserNotFound    = errors.New("auth: user not found")
	ErrPendingApproval = errors.New("auth: account pending approval")
	ErrRejected        = errors.New("auth: account application rejected")
	ErrDeactivated     = errors.New("auth: account deactivated")
	ErrWrongPassword   = errors.New("auth: wrong password")

	// Public self-registration is permanently disabled; accounts are
	// created by administrators only.
	ErrRegistrationDisabled = errors.New("auth: public registration is disabled")
)
