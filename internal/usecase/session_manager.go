package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"firechat/internal/domain/entity"
	"firechat/internal/domain/repository"
	"firechat/pkg/errors"
	"firechat/pkg/logger"
)

// SessionManager is the single owner of the signed-in session. Components get
// the session from it explicitly; sign-out runs every teardown registered for
// the session, newest first.
type SessionManager struct {
	identity  IdentityProvider
	directory *DirectoryUseCase
	now       func() time.Time

	mu        sync.Mutex
	current   *entity.Session
	teardowns []func()

	watchersMu sync.Mutex
	watchers   map[int]chan struct{}
	nextID     int
}

func NewSessionManager(identity IdentityProvider, directory *DirectoryUseCase) *SessionManager {
	return &SessionManager{
		identity:  identity,
		directory: directory,
		now:       time.Now,
		watchers:  make(map[int]chan struct{}),
	}
}

type SignUpInput struct {
	Identifier  string
	Secret      string
	DisplayName string
}

func (m *SessionManager) SignIn(ctx context.Context, identifier, secret string) (*entity.Session, error) {
	email := IdentifierFor(identifier)
	if email == "" || secret == "" {
		return nil, errors.Validation("Identifier and password are required", nil)
	}

	session, err := m.identity.SignIn(ctx, email, secret)
	if err != nil {
		logger.Warn("Sign in failed for %s: %v", email, err)
		return nil, err
	}
	if session.DisplayName == "" {
		if user, err := m.directory.GetUser(ctx, session.Email); err == nil {
			session.DisplayName = user.Name
		}
	}

	m.replace(session)
	logger.Info("Signed in: %s", session.Email)
	return session, nil
}

// SignUp creates the account and its directory entry. If the directory write
// fails the account exists and the session stays open; the error is returned
// so the caller can retry the profile step.
func (m *SessionManager) SignUp(ctx context.Context, input SignUpInput) (*entity.Session, error) {
	email := IdentifierFor(input.Identifier)
	name := strings.TrimSpace(input.DisplayName)
	if email == "" || input.Secret == "" || name == "" {
		return nil, errors.Validation("Identifier, password and name are required", nil)
	}

	session, err := m.identity.SignUp(ctx, email, input.Secret, name)
	if err != nil {
		logger.Warn("Sign up failed for %s: %v", email, err)
		return nil, err
	}
	m.replace(session)

	if _, err := m.directory.Register(ctx, session, name); err != nil {
		logger.Error("Directory entry for %s not written: %v", session.Email, err)
		return session, err
	}
	logger.Info("Signed up: %s", session.Email)
	return session, nil
}

// SignOut tears the current session down. It is a no-op when signed out.
func (m *SessionManager) SignOut() {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return
	}
	email := m.current.Email
	teardowns := m.teardowns
	m.current = nil
	m.teardowns = nil
	m.mu.Unlock()

	for i := len(teardowns) - 1; i >= 0; i-- {
		teardowns[i]()
	}
	m.broadcast()
	logger.Info("Signed out: %s", email)
}

func (m *SessionManager) Current() *entity.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Require returns the current session, or UNAUTHORIZED when signed out or
// when the session's ID token has expired.
func (m *SessionManager) Require() (*entity.Session, error) {
	s := m.Current()
	if s == nil {
		return nil, errors.Unauthorized("Not signed in", nil)
	}
	if s.Expired(m.now()) {
		logger.Warn("Session for %s expired at %s", s.Email, s.ExpiresAt.Format(time.RFC3339))
		return nil, errors.Unauthorized("Session expired, sign in again", nil)
	}
	return s, nil
}

// OnTeardown registers fn to run when the current session ends. Without a
// session fn runs immediately.
func (m *SessionManager) OnTeardown(fn func()) {
	m.mu.Lock()
	if m.current != nil {
		m.teardowns = append(m.teardowns, fn)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	fn()
}

// UpdateProfile renames the signed-in user in the identity backend and the
// directory. No reconciliation happens if the second write fails.
func (m *SessionManager) UpdateProfile(ctx context.Context, name, about string) (*entity.Session, error) {
	session, err := m.Require()
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Validation("Name is required", nil)
	}

	if err := m.identity.UpdateDisplayName(ctx, session, name); err != nil {
		return nil, err
	}
	if err := m.directory.UpdateProfile(ctx, session.Email, name, about); err != nil {
		logger.Error("Directory profile for %s not updated: %v", session.Email, err)
		return nil, err
	}

	m.mu.Lock()
	if m.current == session {
		updated := *session
		updated.DisplayName = name
		m.current = &updated
		session = &updated
	}
	m.mu.Unlock()
	m.broadcast()
	return session, nil
}

// OnSessionChanged streams the current session (nil when signed out), first
// immediately and then after every change. Rapid changes may be coalesced into
// the latest state.
func (m *SessionManager) OnSessionChanged(ctx context.Context) *repository.Subscription[*entity.Session] {
	signal := make(chan struct{}, 1)
	m.watchersMu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = signal
	m.watchersMu.Unlock()

	return repository.NewSubscription(ctx, 1, func(ctx context.Context, emit func(*entity.Session) bool) error {
		defer func() {
			m.watchersMu.Lock()
			delete(m.watchers, id)
			m.watchersMu.Unlock()
		}()

		if !emit(m.Current()) {
			return nil
		}
		for {
			select {
			case <-signal:
				if !emit(m.Current()) {
					return nil
				}
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// replace swaps in a new session, tearing down whatever the old one owned.
func (m *SessionManager) replace(session *entity.Session) {
	m.mu.Lock()
	teardowns := m.teardowns
	m.current = session
	m.teardowns = nil
	m.mu.Unlock()

	for i := len(teardowns) - 1; i >= 0; i-- {
		teardowns[i]()
	}
	m.broadcast()
}

func (m *SessionManager) broadcast() {
	m.watchersMu.Lock()
	defer m.watchersMu.Unlock()
	for _, signal := range m.watchers {
		select {
		case signal <- struct{}{}:
		default:
		}
	}
}
