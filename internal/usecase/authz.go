package usecase

import "github.com/sd-owens/YelpCamp/internal/entity"

// Authorize decides whether principal may mutate a resource recorded as
// authored by authorID. It is the single chokepoint for ownership
// enforcement: campground and comment mutations both go through it, and it
// runs before any store write. Pure decision, no side effects.
func Authorize(principal *entity.Principal, authorID string) error {
	if principal == nil {
		return ErrUnauthenticated
	}
	if principal.ID != authorID && !principal.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// RequireAuthenticated gates creation-type actions where no prior-owned
// resource exists yet (create campground, create comment, toggle like).
func RequireAuthenticated(principal *entity.Principal) error {
	if principal == nil {
		return ErrUnauthenticated
	}
	return nil
}
