package storage

import "errors"

// Common storage errors
var (
	// ErrAdminNotFound indicates that admin was not found in storage
	ErrAdminNotFound = errors.New("admin not found")

	// ErrAdminAlreadyExists indicates that admin with this email already exists
	ErrAdminAlreadyExists = errors.New("admin already exists")

	// ErrTokenNotFound indicates that refresh token was not found
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrFileNotFound indicates that no knowledge base document was uploaded yet
	ErrFileNotFound = errors.New("file not found")
)
