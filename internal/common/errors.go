// Package common defines shared constants and sentinel errors used across
// client and server layers of LearnQuest. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Credential errors.
	ErrDuplicateIdentity  = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Token errors.
	ErrUnauthenticated = errors.New("no token supplied")
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")

	// Profile errors.
	ErrValidation       = errors.New("validation error")
	ErrNoValidFields    = errors.New("no valid fields to update")
	ErrUnsupportedMedia = errors.New("unsupported media")
	ErrNoFile           = errors.New("no file uploaded")

	// ErrFileTooLarge is also an ErrUnsupportedMedia.
	ErrFileTooLarge = fmt.Errorf("%w: file too large", ErrUnsupportedMedia)
)
