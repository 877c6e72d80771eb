package usecase

import "errors"

// Expected, recoverable outcomes surfaced to the calling layer for
// user-facing messaging. Store failures are wrapped instead and carry no
// detail to the end user.
var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("action forbidden")
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidToken       = errors.New("password reset token is invalid or has expired")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrNoSuchAccount      = errors.New("no account with that email address exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidAddress     = errors.New("invalid address")
)
