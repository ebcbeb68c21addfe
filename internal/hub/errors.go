package hub

import (
	"errors"
	"fmt"
)

// AuthorizationError reports a rejected or missing credential. It is
// recoverable: a load falls back to a usable local snapshot if one exists.
type AuthorizationError struct {
	Repo   string
	Status int
}

// Error implements the error interface.
func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization failed for %s (status %d)", e.Repo, e.Status)
}

// ConnectivityError reports that the hub could not be reached. Like
// authorization failures it degrades to the local snapshot when present.
type ConnectivityError struct {
	Repo string
	Err  error
}

// Error implements the error interface.
func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("cannot reach hub for %s: %v", e.Repo, e.Err)
}

// Unwrap returns the underlying network error.
func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a repository that does not exist. It is fatal.
type NotFoundError struct {
	Repo string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("repository not found: %s", e.Repo)
}

// Recoverable reports whether err may degrade to a cached local snapshot.
func Recoverable(err error) bool {
	var authErr *AuthorizationError
	var connErr *ConnectivityError
	return errors.As(err, &authErr) || errors.As(err, &connErr)
}
