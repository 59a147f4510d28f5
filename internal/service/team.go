package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/karnan008/QA-Test-Manager/internal/models"
	"github.com/karnan008/QA-Test-Manager/internal/storage"
)

// TeamDirectory manages the team accounts. It verifies credentials of
// accounts that have a password and accepts self-registrations.
type TeamDirectory struct {
	mu  sync.RWMutex
	kv  storage.KV
	log *zap.Logger
	stamper

	hashCost int
	users    []models.TeamUser
}

// NewTeamDirectory loads the team from kv, seeding the demo accounts on first use.
func NewTeamDirectory(ctx context.Context, kv storage.KV, log *zap.Logger, opts ...Option) (*TeamDirectory, error) {
	d := &TeamDirectory{kv: kv, log: log, stamper: newStamper(opts), hashCost: bcrypt.DefaultCost}

	users, present, err := loadCollection[models.TeamUser](ctx, kv, storage.KeyTeamUsers, log)
	if err != nil {
		return nil, err
	}
	if !present {
		now := d.now()
		users = []models.TeamUser{
			{ID: "1", Username: "admin", Email: "admin@qa.com", Role: models.RoleAdmin, IsActive: true,
				CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), LastLogin: &now},
			{ID: "2", Username: "tester", Email: "tester@qa.com", Role: models.RoleMember, IsActive: true,
				CreatedAt: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), LastLogin: &now},
		}
		if err := saveJSON(ctx, kv, storage.KeyTeamUsers, users); err != nil {
			return nil, err
		}
	}
	d.users = nonNil(users)
	return d, nil
}

// List returns every account without password hashes.
func (d *TeamDirectory) List() []models.TeamUser {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.TeamUser, len(d.users))
	for i, u := range d.users {
		out[i] = public(u)
	}
	return out
}

// Get returns the account with the given id.
func (d *TeamDirectory) Get(id string) (models.TeamUser, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i := d.index(id); i >= 0 {
		return public(d.users[i]), true
	}
	return models.TeamUser{}, false
}

// Add creates an active account. Username, email and password are required
// and the email must not be in use.
func (d *TeamDirectory) Add(ctx context.Context, in models.NewUser) (models.TeamUser, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Role == "" {
		in.Role = models.RoleMember
	}

	var v validation
	v.require(in.Username, "Username is required")
	v.require(in.Email, "Email is required")
	v.require(in.Password, "Password is required")
	if !in.Role.Valid() {
		v.add(fmt.Sprintf("Invalid role %q", in.Role))
	}
	if err := v.err(); err != nil {
		return models.TeamUser{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), d.hashCost)
	if err != nil {
		return models.TeamUser{}, fmt.Errorf("hash password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.indexEmail(in.Email, "") >= 0 {
		return models.TeamUser{}, fmt.Errorf("%w: %s", ErrEmailTaken, in.Email)
	}
	u := models.TeamUser{
		ID:           d.newID(),
		Username:     in.Username,
		Email:        in.Email,
		Role:         in.Role,
		IsActive:     true,
		CreatedAt:    d.now(),
		PasswordHash: hash,
	}
	if err := d.commit(ctx, append(slices.Clip(d.users), u)); err != nil {
		return models.TeamUser{}, err
	}
	d.log.Info("team user added", zap.String("user", u.Username), zap.String("role", string(u.Role)))
	return public(u), nil
}

// Create adds an account on behalf of self-registration.
func (d *TeamDirectory) Create(ctx context.Context, in models.NewUser) (models.User, error) {
	u, err := d.Add(ctx, in)
	if err != nil {
		return models.User{}, err
	}
	return u.User(), nil
}

// Update merges patch onto the account. The email stays unique.
func (d *TeamDirectory) Update(ctx context.Context, id string, patch models.TeamUserPatch) (u models.TeamUser, found bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.index(id)
	if i < 0 {
		return models.TeamUser{}, false, nil
	}
	u = d.users[i]
	if patch.Username != nil {
		u.Username = strings.TrimSpace(*patch.Username)
	}
	if patch.Email != nil {
		u.Email = strings.TrimSpace(*patch.Email)
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}

	var v validation
	v.require(u.Username, "Username is required")
	v.require(u.Email, "Email is required")
	if !u.Role.Valid() {
		v.add(fmt.Sprintf("Invalid role %q", u.Role))
	}
	if err := v.err(); err != nil {
		return models.TeamUser{}, true, err
	}
	if d.indexEmail(u.Email, id) >= 0 {
		return models.TeamUser{}, true, fmt.Errorf("%w: %s", ErrEmailTaken, u.Email)
	}

	next := slices.Clone(d.users)
	next[i] = u
	if err := d.commit(ctx, next); err != nil {
		return models.TeamUser{}, true, err
	}
	return public(u), true, nil
}

// ToggleActive flips the active flag of the account.
func (d *TeamDirectory) ToggleActive(ctx context.Context, id string) (models.TeamUser, bool, error) {
	return d.setActive(ctx, id, func(active bool) bool { return !active })
}

// SetActive activates or deactivates the account.
func (d *TeamDirectory) SetActive(ctx context.Context, id string, active bool) (models.TeamUser, bool, error) {
	return d.setActive(ctx, id, func(bool) bool { return active })
}

func (d *TeamDirectory) setActive(ctx context.Context, id string, next func(bool) bool) (models.TeamUser, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.index(id)
	if i < 0 {
		return models.TeamUser{}, false, nil
	}
	users := slices.Clone(d.users)
	users[i].IsActive = next(users[i].IsActive)
	if err := d.commit(ctx, users); err != nil {
		return models.TeamUser{}, true, err
	}
	d.log.Info("team user activation changed", zap.String("user", users[i].Username), zap.Bool("active", users[i].IsActive))
	return public(users[i]), true, nil
}

// Delete removes the account. Test cases created by it are kept.
func (d *TeamDirectory) Delete(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.index(id)
	if i < 0 {
		return false, nil
	}
	if err := d.commit(ctx, slices.Delete(slices.Clone(d.users), i, i+1)); err != nil {
		return true, err
	}
	return true, nil
}

// Verify checks the password of an active account and records the login.
// Deactivated accounts fail with ErrAccountDisabled.
func (d *TeamDirectory) Verify(ctx context.Context, email, password string) (models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexEmail(strings.TrimSpace(email), "")
	if i < 0 {
		return models.User{}, ErrInvalidCredentials
	}
	u := d.users[i]
	if !u.IsActive {
		return models.User{}, ErrAccountDisabled
	}
	if len(u.PasswordHash) == 0 {
		return models.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("compare password: %w", err)
	}

	now := d.now()
	next := slices.Clone(d.users)
	next[i].LastLogin = &now
	if err := d.commit(ctx, next); err != nil {
		return models.User{}, err
	}
	return u.User(), nil
}

func (d *TeamDirectory) commit(ctx context.Context, next []models.TeamUser) error {
	if err := saveJSON(ctx, d.kv, storage.KeyTeamUsers, next); err != nil {
		return err
	}
	d.users = next
	return nil
}

func (d *TeamDirectory) index(id string) int {
	return slices.IndexFunc(d.users, func(u models.TeamUser) bool { return u.ID == id })
}

func (d *TeamDirectory) indexEmail(email, except string) int {
	return slices.IndexFunc(d.users, func(u models.TeamUser) bool {
		return strings.EqualFold(u.Email, email) && u.ID != except
	})
}

func public(u models.TeamUser) models.TeamUser {
	u.PasswordHash = nil
	return u
}
