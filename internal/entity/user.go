package entity

import "time"

// User is an account holder. Password always contains the bcrypt hash,
// never the plaintext credential.
type User struct {
	ID        string
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Avatar    string
	IsAdmin   bool
	// ResetToken and ResetExpiresAt are set together by a password reset
	// request and cleared together on consumption or expiry. An empty
	// token means no reset is pending.
	ResetToken     string
	ResetExpiresAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
