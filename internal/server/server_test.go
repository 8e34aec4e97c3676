package server

import (
	"context"
	"math/rand"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mines-game-server/internal/config"
	"mines-game-server/internal/game/mines"
	"mines-game-server/internal/model"
	"mines-game-server/internal/pkg/lock"
	"mines-game-server/internal/repository"
	"mines-game-server/internal/service"
)

// memStore is an in-memory account store for transport tests. It
// satisfies service.CredentialStore, service.Ledger, and
// AccountDirectory with the repository error contract.
type memStore struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int64
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]*model.User)}
}

func (s *memStore) Create(_ context.Context, username, passwordHash string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return nil, repository.ErrUsernameTaken
	}
	s.nextID++
	user := &model.User{
		ID:           s.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	s.users[username] = user
	return user, nil
}

func (s *memStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (s *memStore) GetBalance(_ context.Context, username string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	return user.Balance, nil
}

func (s *memStore) Debit(_ context.Context, username string, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	if user.Balance < amount {
		return 0, repository.ErrInsufficientBalance
	}
	user.Balance -= amount
	return user.Balance, nil
}

func (s *memStore) Credit(_ context.Context, username string, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	user.Balance += amount
	return user.Balance, nil
}

func (s *memStore) List(_ context.Context) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) Delete(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		return repository.ErrUserNotFound
	}
	delete(s.users, username)
	return nil
}

func (s *memStore) setBalance(username string, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username].Balance = balance
}

// memTxLog records audit entries in memory.
type memTxLog struct {
	mu      sync.Mutex
	records []*model.Transaction
}

func (l *memTxLog) Create(_ context.Context, username string, amount int64, txType string, description *string) (*model.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx := &model.Transaction{
		ID:          int64(len(l.records) + 1),
		Username:    username,
		Amount:      amount,
		Type:        txType,
		Description: description,
		CreatedAt:   time.Now(),
	}
	l.records = append(l.records, tx)
	return tx, nil
}

func (l *memTxLog) GetByUsername(_ context.Context, username string, limit int) ([]*model.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*model.Transaction
	for i := len(l.records) - 1; i >= 0 && len(out) < limit; i-- {
		if l.records[i].Username == username {
			out = append(out, l.records[i])
		}
	}
	return out, nil
}

// fixture bundles a running test server with handles on its internals.
type fixture struct {
	httpSrv  *httptest.Server
	store    *memStore
	auth     *service.AuthService
	engine   *service.GameEngine
	sessions *mines.SessionStore
	txs      *memTxLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Addr = ":0"
	cfg.Admin.Username = "admin"
	cfg.Admin.Password = "adminpass"
	cfg.Game.MinBet = 1

	store := newMemStore()
	auth := service.NewAuthService(store)
	sessions := mines.NewSessionStore()
	txs := &memTxLog{}
	engine := service.NewGameEngine(sessions, store, txs, lock.NewUserLock(),
		rand.New(rand.NewSource(1)), cfg.Game.MinBet, cfg.Game.MaxBet)

	s := New(cfg, auth, engine, store, txs)
	httpSrv := httptest.NewServer(s.Handler())
	t.Cleanup(httpSrv.Close)

	return &fixture{
		httpSrv:  httpSrv,
		store:    store,
		auth:     auth,
		engine:   engine,
		sessions: sessions,
		txs:      txs,
	}
}

// newPlayer registers an account, funds it, and returns a game token.
func (f *fixture) newPlayer(t *testing.T, username string, balance int64) string {
	t.Helper()
	ctx := context.Background()

	_, err := f.auth.Register(ctx, username, "password")
	require.NoError(t, err)
	f.store.setBalance(username, balance)

	token, _, err := f.auth.Login(ctx, username, "password")
	require.NoError(t, err)
	return token
}

// boardIndex returns an index of the user's live board holding the
// wanted tile.
func (f *fixture) boardIndex(t *testing.T, username string, want mines.Tile) int {
	t.Helper()
	session, ok := f.sessions.Get(username)
	require.True(t, ok, "no active session for %s", username)
	for i, tile := range session.Board {
		if tile == want {
			return i
		}
	}
	t.Fatalf("board for %s has no %q tile", username, want)
	return -1
}
