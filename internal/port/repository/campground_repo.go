package repository

import (
	"context"

	"github.com/sd-owens/YelpCamp/internal/entity"
)

type CampgroundRepository interface {
	Create(ctx context.Context, campground *entity.Campground) (string, error)
	GetByID(ctx context.Context, id string) (*entity.Campground, error)

	// Update rewrites the mutable fields only; the author snapshot and the
	// like set are never touched by it.
	Update(ctx context.Context, campground *entity.Campground) error
	Delete(ctx context.Context, id string) error

	// List returns one page of campgrounds in creation order together with
	// the total number of matches. namePattern is a pre-escaped,
	// case-insensitive regular expression applied to the name; empty means
	// no filter.
	List(ctx context.Context, namePattern string, page, pageSize int) ([]*entity.Campground, int64, error)

	FindByAuthorID(ctx context.Context, authorID string) ([]*entity.Campground, error)

	// ToggleLike atomically removes userID from the like set if present,
	// otherwise adds it, and returns the updated campground. Each branch is
	// a single conditional document update, so concurrent toggles cannot
	// produce duplicates or lost updates.
	ToggleLike(ctx context.Context, id, userID string) (*entity.Campground, error)
}
