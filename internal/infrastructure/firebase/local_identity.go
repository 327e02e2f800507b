package firebase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"firechat/internal/domain/entity"
	"firechat/pkg/errors"
)

const localTokenTTL = time.Hour

type localAccount struct {
	uid         string
	email       string
	displayName string
	hash        []byte
}

// LocalIdentity is an in-process stand-in for Firebase Authentication used by
// the memory backend. It issues opaque tokens and verifies them.
type LocalIdentity struct {
	mu       sync.Mutex
	accounts map[string]*localAccount
	tokens   map[string]string
	expiry   map[string]time.Time
	now      func() time.Time
}

func NewLocalIdentity() *LocalIdentity {
	return &LocalIdentity{
		accounts: make(map[string]*localAccount),
		tokens:   make(map[string]string),
		expiry:   make(map[string]time.Time),
		now:      time.Now,
	}
}

func (l *LocalIdentity) SignUp(ctx context.Context, email, password, displayName string) (*entity.Session, error) {
	if len(password) < 6 {
		return nil, errors.Validation("WEAK_PASSWORD : Password should be at least 6 characters", nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Internal("Failed to hash password", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.accounts[email]; exists {
		return nil, errors.Validation("Identifier already in use", nil)
	}
	acct := &localAccount{uid: uuid.New().String(), email: email, displayName: displayName, hash: hash}
	l.accounts[email] = acct
	return l.issueLocked(acct), nil
}

func (l *LocalIdentity) SignIn(ctx context.Context, email, password string) (*entity.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, ok := l.accounts[email]
	if !ok || bcrypt.CompareHashAndPassword(acct.hash, []byte(password)) != nil {
		return nil, errors.Unauthorized("Invalid credentials", nil)
	}
	return l.issueLocked(acct), nil
}

func (l *LocalIdentity) UpdateDisplayName(ctx context.Context, session *entity.Session, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	uid, ok := l.tokens[session.IDToken]
	if !ok {
		return errors.Unauthorized("Session expired", nil)
	}
	for _, acct := range l.accounts {
		if acct.uid == uid {
			acct.displayName = name
			return nil
		}
	}
	return errors.NotFound("Account", nil)
}

func (l *LocalIdentity) VerifyToken(ctx context.Context, token string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	uid, ok := l.tokens[token]
	if !ok || l.now().After(l.expiry[token]) {
		return "", errors.Unauthorized("Invalid or expired token", nil)
	}
	return uid, nil
}

func (l *LocalIdentity) issueLocked(acct *localAccount) *entity.Session {
	buf := make([]byte, 24)
	rand.Read(buf)
	token := hex.EncodeToString(buf)
	expires := l.now().Add(localTokenTTL)

	l.tokens[token] = acct.uid
	l.expiry[token] = expires
	return &entity.Session{
		UID:         acct.uid,
		Email:       acct.email,
		DisplayName: acct.displayName,
		IDToken:     token,
		ExpiresAt:   expires,
	}
}
