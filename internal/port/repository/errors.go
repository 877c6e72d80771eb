package repository

import "errors"

var (
	ErrNotFound          = errors.New("entity not found")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
)
