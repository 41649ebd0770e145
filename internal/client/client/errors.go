package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrServer       = errors.New("server error")
)

// APIError is a non-2xx reply from the identity API.
type APIError struct {
	Status int
	Msg    string
	Code   string
	// Err is ErrUnauthorized for 401 and ErrServer for 5xx.
	Err error
}

func (e *APIError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}
