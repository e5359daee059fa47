// Package session owns the registered-user directory, the credential map
// and the current-user pointer.
//
// The store has two states, LoggedOut and LoggedIn(user). The initial state
// comes from the pointer persisted in the key-value store. Register never
// changes the state, Login and Logout move between the two, and
// UpdateProfile refreshes the LoggedIn payload when it targets the active
// user.
package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"financas/internal/core"
	"financas/internal/kv"
	"financas/internal/log"
)

// Provider resolves the active session. The ledger depends on this rather
// than on the Store itself.
type Provider interface {
	Current() core.Session
}

type Store struct {
	mu      sync.Mutex
	kv      kv.Store
	logger  *log.Logger
	newID   func() string
	now     func() time.Time
	current *core.User
}

var _ Provider = (*Store)(nil)

type Option func(*Store)

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent(log.ComponentSession) }
}

// WithIDFunc replaces the identifier generator (UUIDv4 by default).
func WithIDFunc(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New builds a store and restores the persisted session, if any.
func New(ctx context.Context, store kv.Store, opts ...Option) (*Store, error) {
	s := &Store{
		kv:     store,
		logger: log.Nop(),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	u, ok, err := kv.Get[core.User](ctx, store, kv.CurrentUserKey)
	if err != nil {
		return nil, fmt.Errorf("load current user: %w", err)
	}
	if ok {
		s.current = &u
		s.logger.DebugContext(ctx, "Session restored", log.FieldUserID, u.ID)
	}
	return s, nil
}

// Current returns the active session; LoggedOut when nobody is logged in.
func (s *Store) Current() core.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return core.Session{}
	}
	return core.LoggedIn(*s.current)
}

// CurrentUser returns the logged-in user and true, or false when logged out.
func (s *Store) CurrentUser() (core.User, bool) {
	sess := s.Current()
	if !sess.Active() {
		return core.User{}, false
	}
	return *sess.User, true
}

// Users returns the registered-user directory.
func (s *Store) Users(ctx context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadUsers(ctx)
}

// Register adds a new user. It fails with core.ErrDuplicateEmail when the
// email (compared exactly) is taken. The session state is not changed.
func (s *Store) Register(ctx context.Context, name, email, password string) (core.User, error) {
	if err := validateRegistration(name, email, password); err != nil {
		return core.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return core.User{}, err
	}
	creds, err := s.loadCredentials(ctx)
	if err != nil {
		return core.User{}, err
	}

	if indexByEmail(users, email) >= 0 {
		s.logger.InfoContext(ctx, "Registration rejected",
			log.FieldOperation, log.OpRegister,
			log.FieldErrorType, log.ErrorTypeConflict)
		return core.User{}, core.ErrDuplicateEmail
	}

	u := core.User{
		ID:        s.newID(),
		Name:      name,
		Email:     email,
		CreatedAt: s.now().UTC(),
	}
	prev := users
	if err := kv.Set(ctx, s.kv, kv.UsersKey, append(slices.Clone(users), u)); err != nil {
		return core.User{}, fmt.Errorf("save users: %w", err)
	}

	creds[email] = password
	if err := kv.Set(ctx, s.kv, kv.CredentialsKey, creds); err != nil {
		// A user without a credential could neither log in nor register again.
		return core.User{}, errors.Join(fmt.Errorf("save credentials: %w", err), s.restoreUsers(ctx, prev))
	}

	s.logger.InfoContext(ctx, "User registered",
		log.FieldOperation, log.OpRegister,
		log.FieldUserID, u.ID)
	return u, nil
}

// Login checks the credentials and makes the user the active session. Any
// mismatch yields core.ErrInvalidCredentials without saying whether the
// email exists.
func (s *Store) Login(ctx context.Context, email, password string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return core.User{}, err
	}
	creds, err := s.loadCredentials(ctx)
	if err != nil {
		return core.User{}, err
	}

	i := indexByEmail(users, email)
	saved, hasCred := creds[email]
	if i < 0 || !hasCred || saved != password {
		s.logger.InfoContext(ctx, "Login failed",
			log.FieldOperation, log.OpLogin,
			log.FieldErrorType, log.ErrorTypeAuth)
		return core.User{}, core.ErrInvalidCredentials
	}

	u := users[i]
	if err := kv.Set(ctx, s.kv, kv.CurrentUserKey, u); err != nil {
		return core.User{}, fmt.Errorf("save current user: %w", err)
	}
	s.current = &u

	s.logger.InfoContext(ctx, "User logged in",
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, u.ID)
	return u, nil
}

// Logout clears the session. Logging out while logged out is a no-op.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(ctx, kv.CurrentUserKey); err != nil {
		return fmt.Errorf("remove current user: %w", err)
	}
	if s.current != nil {
		s.logger.InfoContext(ctx, "User logged out",
			log.FieldOperation, log.OpLogout,
			log.FieldUserID, s.current.ID)
	}
	s.current = nil
	return nil
}

// UpdateProfile replaces the directory entry with the same ID. It fails with
// core.ErrNotFound when the ID is empty or unknown. When the email changes
// the credential moves with it, so a taken email fails with
// core.ErrDuplicateEmail. The session payload is refreshed only when the
// updated user is the one logged in.
func (s *Store) UpdateProfile(ctx context.Context, updated core.User) (core.User, error) {
	if updated.ID == "" {
		return core.User{}, core.ErrNotFound
	}
	if err := core.ValidateName(updated.Name); err != nil {
		return core.User{}, err
	}
	if err := core.ValidateEmail(updated.Email); err != nil {
		return core.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return core.User{}, err
	}

	i := slices.IndexFunc(users, func(u core.User) bool { return u.ID == updated.ID })
	if i < 0 {
		s.logger.InfoContext(ctx, "Profile update target missing",
			log.FieldOperation, log.OpUpdateProfile,
			log.FieldErrorType, log.ErrorTypeNotFound)
		return core.User{}, core.ErrNotFound
	}

	prev := users[i]
	var oldCreds map[string]string
	if updated.CreatedAt.IsZero() {
		updated.CreatedAt = prev.CreatedAt
	}

	if updated.Email != prev.Email {
		if j := indexByEmail(users, updated.Email); j >= 0 && j != i {
			return core.User{}, core.ErrDuplicateEmail
		}
		creds, err := s.loadCredentials(ctx)
		if err != nil {
			return core.User{}, err
		}
		oldCreds = maps.Clone(creds)
		if pw, ok := creds[prev.Email]; ok {
			delete(creds, prev.Email)
			creds[updated.Email] = pw
		}
		if err := kv.Set(ctx, s.kv, kv.CredentialsKey, creds); err != nil {
			return core.User{}, fmt.Errorf("save credentials: %w", err)
		}
	}

	users[i] = updated
	if err := kv.Set(ctx, s.kv, kv.UsersKey, users); err != nil {
		err = fmt.Errorf("save users: %w", err)
		if oldCreds != nil {
			// The credential was re-keyed to an email the directory does not hold.
			if rerr := kv.Set(ctx, s.kv, kv.CredentialsKey, oldCreds); rerr != nil {
				err = errors.Join(err, fmt.Errorf("restore credentials: %w", rerr))
			}
		}
		return core.User{}, err
	}

	if s.current != nil && s.current.ID == updated.ID {
		if err := kv.Set(ctx, s.kv, kv.CurrentUserKey, updated); err != nil {
			return core.User{}, fmt.Errorf("save current user: %w", err)
		}
		u := updated
		s.current = &u
	}

	s.logger.InfoContext(ctx, "Profile updated",
		log.FieldOperation, log.OpUpdateProfile,
		log.FieldUserID, updated.ID)
	return updated, nil
}

func (s *Store) loadUsers(ctx context.Context) ([]core.User, error) {
	users, _, err := kv.Get[[]core.User](ctx, s.kv, kv.UsersKey)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return users, nil
}

// restoreUsers puts the directory back to prev after a failed registration.
func (s *Store) restoreUsers(ctx context.Context, prev []core.User) error {
	var err error
	if len(prev) == 0 {
		err = s.kv.Remove(ctx, kv.UsersKey)
	} else {
		err = kv.Set(ctx, s.kv, kv.UsersKey, prev)
	}
	if err != nil {
		return fmt.Errorf("restore users: %w", err)
	}
	return nil
}

func (s *Store) loadCredentials(ctx context.Context) (map[string]string, error) {
	creds, _, err := kv.Get[map[string]string](ctx, s.kv, kv.CredentialsKey)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if creds == nil {
		creds = make(map[string]string)
	}
	return creds, nil
}

func indexByEmail(users []core.User, email string) int {
	return slices.IndexFunc(users, func(u core.User) bool { return u.Email == email })
}

func validateRegistration(name, email, password string) error {
	if err := core.ValidateName(name); err != nil {
		return err
	}
	if err := core.ValidateEmail(email); err != nil {
		return err
	}
	return core.ValidatePassword(password)
}
