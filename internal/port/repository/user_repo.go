package repository

import (
	"context"
	"time"

	"github.com/sd-owens/YelpCamp/internal/entity"
)

// UserRepository persists accounts. Passwords are stored as given; hashing
// is the caller's concern.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) (string, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error

	// SetResetToken records a pending password reset on the account.
	SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error

	// FindByValidResetToken returns the account whose reset token equals
	// token and whose expiry is strictly after now. Any other state yields
	// ErrNotFound.
	FindByValidResetToken(ctx context.Context, token string, now time.Time) (*entity.User, error)

	// ConsumeResetToken atomically re-validates the token (same rule as
	// FindByValidResetToken), replaces the password with passwordHash and
	// clears both reset fields, returning the updated account. The whole
	// step is a single conditional update, so of two concurrent callers at
	// most one succeeds; the other gets ErrNotFound.
	ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*entity.User, error)
}
