package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/karnan008/QA-Test-Manager/internal/models"
)

// Verifier checks an email and password pair and returns the matching user.
// A mismatch is reported as ErrInvalidCredentials.
type Verifier interface {
	Verify(ctx context.Context, email, password string) (models.User, error)
}

type demoAccount struct {
	user     models.User
	password string
}

// DemoVerifier accepts a fixed set of demo accounts.
type DemoVerifier struct {
	accounts []demoAccount
}

// NewDemoVerifier returns the verifier for the built-in admin and tester accounts.
func NewDemoVerifier() *DemoVerifier {
	return &DemoVerifier{accounts: []demoAccount{
		{user: models.User{ID: "1", Username: "admin", Email: "admin@qa.com", Role: models.RoleAdmin}, password: "admin123"},
		{user: models.User{ID: "2", Username: "tester", Email: "tester@qa.com", Role: models.RoleMember}, password: "test123"},
	}}
}

func (d *DemoVerifier) Verify(_ context.Context, email, password string) (models.User, error) {
	for _, a := range d.accounts {
		if a.user.Email == strings.TrimSpace(email) &&
			subtle.ConstantTimeCompare([]byte(a.password), []byte(password)) == 1 {
			return a.user, nil
		}
	}
	return models.User{}, ErrInvalidCredentials
}

// ChainVerifier tries each verifier in order and returns the first match.
// A verifier answering ErrAccountDisabled ends the search.
type ChainVerifier []Verifier

func (c ChainVerifier) Verify(ctx context.Context, email, password string) (models.User, error) {
	for _, v := range c {
		u, err := v.Verify(ctx, email, password)
		switch {
		case err == nil:
			return u, nil
		case errors.Is(err, ErrInvalidCredentials):
			continue
		default:
			return models.User{}, err
		}
	}
	return models.User{}, ErrInvalidCredentials
}
