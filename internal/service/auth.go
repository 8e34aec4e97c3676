package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"mines-game-server/internal/model"
	"mines-game-server/internal/repository"
)

// Signup validation bounds.
const (
	minUsernameLen = 3
	minPasswordLen = 4
)

// CredentialStore is the account storage consumed by AuthService.
// *repository.UserRepository satisfies it.
type CredentialStore interface {
	Create(ctx context.Context, username, passwordHash string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// AuthService handles signup, login, and session token resolution.
// Tokens are opaque, issued at login, and map 1:1 to a username for
// the lifetime of the process. There is no expiry and no server-side
// invalidation; re-login issues a fresh token without revoking old ones.
type AuthService struct {
	users CredentialStore

	mu     sync.RWMutex
	tokens map[string]string // token -> username
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(users CredentialStore) *AuthService {
	return &AuthService{
		users:  users,
		tokens: make(map[string]string),
	}
}

// Register creates a new account with a zero balance.
// Returns repository.ErrUsernameTaken if the username exists.
func (s *AuthService) Register(ctx context.Context, username, password string) (*model.User, error) {
	if len(username) < minUsernameLen {
		return nil, ErrInvalidUsername
	}
	if len(password) < minPasswordLen {
		return nil, ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, username, string(hash))
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Login verifies credentials and issues an opaque session token.
// Returns ErrInvalidCredentials for both unknown users and wrong
// passwords so login failures do not leak account existence.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return "", nil, err
	}

	s.mu.Lock()
	s.tokens[token] = user.Username
	s.mu.Unlock()

	return token, user, nil
}

// Authenticate resolves a session token to a username.
// Returns ErrInvalidSession for unknown tokens.
func (s *AuthService) Authenticate(token string) (string, error) {
	s.mu.RLock()
	username, ok := s.tokens[token]
	s.mu.RUnlock()

	if !ok {
		return "", ErrInvalidSession
	}
	return username, nil
}

// newToken produces a 32-hex-char opaque token from crypto/rand.
func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
