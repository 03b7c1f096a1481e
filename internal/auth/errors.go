package auth

import "fmt"

// AuthError is a login, verification or authorization failure. Message is
// meant to be shown to the user as is.
type AuthError struct {
	Status  int // HTTP status from the backend, 0 when raised locally
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// NewAuthError builds an AuthError raised before any backend call.
func NewAuthError(msg string) *AuthError { return &AuthError{Message: msg} }

// NetworkError wraps a transport-level fault (DNS, refused connection,
// timeout, cancelled request).
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: network error: %v", e.Op, e.Err) }

func (e *NetworkError) Unwrap() error { return e.Err }
