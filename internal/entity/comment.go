package entity

import "time"

type Comment struct {
	ID           string
	CampgroundID string
	Text         string
	Author       Author
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
