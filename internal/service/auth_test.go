package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mines-game-server/internal/model"
	"mines-game-server/internal/repository"
)

// memCredentialStore is an in-memory CredentialStore honoring the
// repository error contract.
type memCredentialStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemCredentialStore() *memCredentialStore {
	return &memCredentialStore{users: make(map[string]*model.User)}
}

func (s *memCredentialStore) Create(_ context.Context, username, passwordHash string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return nil, repository.ErrUsernameTaken
	}
	user := &model.User{
		ID:           int64(len(s.users) + 1),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	s.users[username] = user
	return user, nil
}

func (s *memCredentialStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func TestRegisterValidation(t *testing.T) {
	auth := NewAuthService(newMemCredentialStore())
	ctx := context.Background()

	_, err := auth.Register(ctx, "ab", "password")
	assert.ErrorIs(t, err, ErrInvalidUsername)

	_, err = auth.Register(ctx, "alice", "pwd")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	user, err := auth.Register(ctx, "alice", "password")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, int64(0), user.Balance, "new accounts start empty")
	assert.NotEqual(t, "password", user.PasswordHash, "password must be stored hashed")

	_, err = auth.Register(ctx, "alice", "password")
	assert.ErrorIs(t, err, repository.ErrUsernameTaken)
}

func TestLoginIssuesToken(t *testing.T) {
	auth := NewAuthService(newMemCredentialStore())
	ctx := context.Background()

	_, err := auth.Register(ctx, "alice", "password")
	require.NoError(t, err)

	token, user, err := auth.Login(ctx, "alice", "password")
	require.NoError(t, err)
	assert.Len(t, token, 32)
	assert.Equal(t, "alice", user.Username)

	username, err := auth.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

// TestLoginFailuresAreIndistinguishable: unknown user and wrong
// password produce the same error so probing can't enumerate accounts.
func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	auth := NewAuthService(newMemCredentialStore())
	ctx := context.Background()

	_, err := auth.Register(ctx, "alice", "password")
	require.NoError(t, err)

	_, _, err = auth.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = auth.Login(ctx, "nobody", "password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateUnknownToken(t *testing.T) {
	auth := NewAuthService(newMemCredentialStore())

	_, err := auth.Authenticate("deadbeefdeadbeefdeadbeefdeadbeef")
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = auth.Authenticate("")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

// TestReloginKeepsOldTokenValid pins down the token lifecycle: a
// second login issues a fresh token without revoking the first.
func TestReloginKeepsOldTokenValid(t *testing.T) {
	auth := NewAuthService(newMemCredentialStore())
	ctx := context.Background()

	_, err := auth.Register(ctx, "alice", "password")
	require.NoError(t, err)

	first, _, err := auth.Login(ctx, "alice", "password")
	require.NoError(t, err)
	second, _, err := auth.Login(ctx, "alice", "password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	for _, token := range []string{first, second} {
		username, err := auth.Authenticate(token)
		require.NoError(t, err)
		assert.Equal(t, "alice", username)
	}
}
