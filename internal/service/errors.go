package service

import (
	"errors"
	"strings"
)

var (
	// ErrDuplicateTestCaseID is returned when a business id is already taken.
	ErrDuplicateTestCaseID = errors.New("test case id already exists")
	// ErrDuplicateModule is returned when a module name is already taken.
	ErrDuplicateModule = errors.New("module already exists")
	// ErrUnknownModule is returned when a test case references a module that does not exist.
	ErrUnknownModule = errors.New("module does not exist")
	// ErrEmailTaken is returned when an account with the email already exists.
	ErrEmailTaken = errors.New("email already exists")
	// ErrInvalidCredentials is returned by verifiers when email and password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled is returned by verifiers for deactivated accounts.
	ErrAccountDisabled = errors.New("account disabled")
)

// ValidationError lists every problem found in an input before any mutation happened.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// validation collects problems and yields a *ValidationError only when there are any.
type validation []string

func (v *validation) require(value, msg string) {
	if strings.TrimSpace(value) == "" {
		*v = append(*v, msg)
	}
}

func (v *validation) add(msg string) {
	*v = append(*v, msg)
}

func (v validation) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Problems: v}
}
