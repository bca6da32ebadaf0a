// Package auth guards the bot behind one shared operator password.
//
// A Gate remembers which users have logged in during the process lifetime.
// Tokens identify users to the HTTP transport; whether a user may act is
// always decided by the Gate.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrNoCredential is returned when neither a password nor a hash is configured.
var ErrNoCredential = errors.New("auth: no password or password hash configured")

// Gate checks the operator password and tracks authenticated users.
type Gate struct {
	password []byte
	hash     []byte
	log      *slog.Logger

	mu    sync.RWMutex
	users map[int64]struct{}
}

// NewGate creates a gate accepting password, or any password matching the
// bcrypt hash when hash is set. The hash takes precedence.
func NewGate(password, hash string, log *slog.Logger) (*Gate, error) {
	if password == "" && hash == "" {
		return nil, ErrNoCredential
	}
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("auth: invalid password hash: %w", err)
		}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Gate{
		password: []byte(password),
		hash:     []byte(hash),
		log:      log,
		users:    make(map[int64]struct{}),
	}, nil
}

func (g *Gate) check(password string) bool {
	if len(g.hash) > 0 {
		return bcrypt.CompareHashAndPassword(g.hash, []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare(g.password, []byte(password)) == 1
}

// Login authenticates user when password is correct.
func (g *Gate) Login(user int64, password string) bool {
	if !g.check(password) {
		g.log.Warn("login failed", "user", user)
		return false
	}
	g.mu.Lock()
	g.users[user] = struct{}{}
	g.mu.Unlock()
	g.log.Info("login", "user", user)
	return true
}

// Logout forgets user. Logging out an unknown user is a no-op.
func (g *Gate) Logout(user int64) {
	g.mu.Lock()
	delete(g.users, user)
	g.mu.Unlock()
	g.log.Info("logout", "user", user)
}

// IsAuthenticated reports whether user has logged in.
func (g *Gate) IsAuthenticated(user int64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.users[user]
	return ok
}

// HashPassword returns a bcrypt hash of password for the config file.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("auth: empty password")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(h), nil
}
