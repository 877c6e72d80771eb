package entity

import "time"

// Author is the denormalized author snapshot captured when a campground
// or comment is created. It is never re-joined against the users
// collection, so a later username change does not rewrite history.
type Author struct {
	ID       string
	Username string
}

type Campground struct {
	ID          string
	Name        string
	Price       float64
	Description string
	Image       string
	Author      Author
	Location    string
	Lat         float64
	Lng         float64
	// Likes holds the IDs of users who liked this campground, each at
	// most once.
	Likes     []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LikedBy reports whether userID is in the like set.
func (c *Campground) LikedBy(userID string) bool {
	for _, id := range c.Likes {
		if id == userID {
			return true
		}
	}
	return false
}
