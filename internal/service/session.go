package service

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/karnan008/QA-Test-Manager/internal/models"
	"github.com/karnan008/QA-Test-Manager/internal/storage"
)

// MaxSessionsPerUser bounds the live sessions of one user. Establishing
// one more ends the oldest.
const MaxSessionsPerUser = 10

// Accounts persists self-registered users so they can log in again later.
type Accounts interface {
	Create(ctx context.Context, in models.NewUser) (models.User, error)
}

// Tokens issues and checks the auth tokens of sessions.
type Tokens interface {
	Issue(user models.User) (string, error)
	// Validate returns the user id the token was issued for.
	Validate(token string) (string, error)
}

// SessionConfig wires the collaborators of a SessionStore.
// Accounts and Tokens are optional.
type SessionConfig struct {
	Verifier Verifier
	Accounts Accounts
	Tokens   Tokens
}

// Session is an authenticated user and the bearer token identifying it.
type Session struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

type sessionEntry struct {
	User      models.User `json:"user"`
	CreatedAt time.Time   `json:"createdAt"`
}

// SessionStore holds the live sessions keyed by token. Each session has
// exactly one user; sessions never affect one another.
type SessionStore struct {
	mu  sync.RWMutex
	kv  storage.KV
	log *zap.Logger
	cfg SessionConfig
	stamper

	sessions map[string]sessionEntry
}

// NewSessionStore restores the persisted sessions from kv. A corrupt
// collection is discarded, and sessions whose token no longer validates
// are dropped.
func NewSessionStore(ctx context.Context, kv storage.KV, log *zap.Logger, cfg SessionConfig, opts ...Option) (*SessionStore, error) {
	if cfg.Verifier == nil {
		cfg.Verifier = NewDemoVerifier()
	}
	s := &SessionStore{kv: kv, log: log, cfg: cfg, stamper: newStamper(opts), sessions: map[string]sessionEntry{}}
	if err := s.restore(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SessionStore) restore(ctx context.Context) error {
	if _, legacy, err := s.kv.Get(ctx, storage.KeyAuthToken); err != nil {
		return fmt.Errorf("load %s: %w", storage.KeyAuthToken, err)
	} else if legacy {
		s.log.Info("discarding single-session state")
		if err := s.kv.Delete(ctx, storage.KeyAuthToken, storage.KeyUserData); err != nil {
			return fmt.Errorf("clear %s: %w", storage.KeyAuthToken, err)
		}
	}

	raw, ok, err := s.kv.Get(ctx, storage.KeySessions)
	if err != nil {
		return fmt.Errorf("load %s: %w", storage.KeySessions, err)
	}
	if !ok {
		return nil
	}
	var stored map[string]sessionEntry
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.log.Error("discarding corrupt persisted sessions", zap.Error(err))
		if err := s.kv.Delete(ctx, storage.KeySessions); err != nil {
			return fmt.Errorf("discard %s: %w", storage.KeySessions, err)
		}
		return nil
	}

	live := make(map[string]sessionEntry, len(stored))
	for token, e := range stored {
		if token == "" || e.User.ID == "" || !s.tokenValid(token, e.User.ID) {
			continue
		}
		live[token] = e
	}
	if dropped := len(stored) - len(live); dropped > 0 {
		s.log.Info("dropped invalid persisted sessions", zap.Int("dropped", dropped))
		return s.commit(ctx, live)
	}
	s.sessions = live
	return nil
}

// Authenticate returns the user of the session identified by token. With
// Tokens configured the token must also still validate for that user.
func (s *SessionStore) Authenticate(token string) (models.User, bool) {
	if token == "" {
		return models.User{}, false
	}
	s.mu.RLock()
	e, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok || !s.tokenValid(token, e.User.ID) {
		return models.User{}, false
	}
	return e.User, true
}

// Login authenticates email and password and opens a new session. Wrong
// credentials yield ok=false and no error; errors are reserved for verifier
// or persistence failures.
func (s *SessionStore) Login(ctx context.Context, email, password string) (Session, bool, error) {
	u, err := s.cfg.Verifier.Verify(ctx, email, password)
	if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrAccountDisabled) {
		s.log.Info("login rejected", zap.String("email", email), zap.Error(err))
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("verify credentials: %w", err)
	}

	sess, err := s.establish(ctx, u)
	if err != nil {
		return Session{}, false, err
	}
	s.log.Info("user logged in", zap.String("user", u.Username), zap.String("role", string(u.Role)))
	return sess, true, nil
}

// Logout ends the session identified by token. Unknown tokens are ignored.
func (s *SessionStore) Logout(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[token]; !ok {
		return nil
	}
	next := maps.Clone(s.sessions)
	delete(next, token)
	return s.commit(ctx, next)
}

// RevokeUser ends every session of the user and reports how many there were.
func (s *SessionStore) RevokeUser(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.sessions)
	maps.DeleteFunc(next, func(_ string, e sessionEntry) bool { return e.User.ID == userID })
	revoked := len(s.sessions) - len(next)
	if revoked == 0 {
		return 0, nil
	}
	if err := s.commit(ctx, next); err != nil {
		return 0, err
	}
	s.log.Info("sessions revoked", zap.String("user_id", userID), zap.Int("sessions", revoked))
	return revoked, nil
}

// Register creates a user, defaulting the role to member, and opens a
// session for it. With Accounts configured the account is stored there and
// a duplicate email fails with ErrEmailTaken.
func (s *SessionStore) Register(ctx context.Context, in models.NewUser) (Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Role == "" {
		in.Role = models.RoleMember
	}

	var v validation
	v.require(in.Username, "Username is required")
	v.require(in.Email, "Email is required")
	if s.cfg.Accounts != nil {
		v.require(in.Password, "Password is required")
	}
	if !in.Role.Valid() {
		v.add(fmt.Sprintf("Invalid role %q", in.Role))
	}
	if err := v.err(); err != nil {
		return Session{}, err
	}

	var u models.User
	if s.cfg.Accounts != nil {
		created, err := s.cfg.Accounts.Create(ctx, in)
		if err != nil {
			return Session{}, err
		}
		u = created
	} else {
		u = models.User{ID: s.newID(), Username: in.Username, Email: in.Email, Role: in.Role}
	}

	sess, err := s.establish(ctx, u)
	if err != nil {
		return Session{}, err
	}
	s.log.Info("user registered", zap.String("user", u.Username), zap.String("role", string(u.Role)))
	return sess, nil
}

// establish opens and persists a session for u with a fresh token.
func (s *SessionStore) establish(ctx context.Context, u models.User) (Session, error) {
	token := "demo-token-" + u.ID + "-" + s.newToken()
	if s.cfg.Tokens != nil {
		issued, err := s.cfg.Tokens.Issue(u)
		if err != nil {
			return Session{}, fmt.Errorf("issue token: %w", err)
		}
		token = issued
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.sessions)
	next[token] = sessionEntry{User: u, CreatedAt: s.now()}
	trimUserSessions(next, u.ID)
	if err := s.commit(ctx, next); err != nil {
		return Session{}, err
	}
	return Session{User: u, Token: token}, nil
}

// trimUserSessions drops the oldest sessions of userID beyond MaxSessionsPerUser.
func trimUserSessions(sessions map[string]sessionEntry, userID string) {
	var tokens []string
	for token, e := range sessions {
		if e.User.ID == userID {
			tokens = append(tokens, token)
		}
	}
	if len(tokens) <= MaxSessionsPerUser {
		return
	}
	slices.SortFunc(tokens, func(a, b string) int {
		return cmp.Or(sessions[a].CreatedAt.Compare(sessions[b].CreatedAt), strings.Compare(a, b))
	})
	for _, token := range tokens[:len(tokens)-MaxSessionsPerUser] {
		delete(sessions, token)
	}
}

func (s *SessionStore) tokenValid(token, userID string) bool {
	if s.cfg.Tokens == nil {
		return true
	}
	subject, err := s.cfg.Tokens.Validate(token)
	return err == nil && subject == userID
}

// commit persists next and makes it live. Callers hold s.mu, except restore.
func (s *SessionStore) commit(ctx context.Context, next map[string]sessionEntry) error {
	if err := saveJSON(ctx, s.kv, storage.KeySessions, next); err != nil {
		return err
	}
	s.sessions = next
	return nil
}
