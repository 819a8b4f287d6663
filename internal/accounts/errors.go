// Package accounts loads and validates the list of harvesting targets.
package accounts

import (
	"errors"
	"fmt"
)

// ErrNoAccounts is returned when the source holds an empty list.
var ErrNoAccounts = errors.New("no accounts found")

// LoadError represents a failure to read or decode the account source
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load accounts from %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load accounts from %s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ValidationError represents an account entry that is missing required fields
type ValidationError struct {
	Index    int
	Identity string
	Message  string
	Cause    error
}

func (e *ValidationError) Error() string {
	who := fmt.Sprintf("account #%d", e.Index+1)
	if e.Identity != "" {
		who = fmt.Sprintf("%s (%s)", who, e.Identity)
	}
	if e.Cause != nil {
		return fmt.Sprintf("invalid %s: %s: %v", who, e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid %s: %s", who, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}
