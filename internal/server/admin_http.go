package server

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"mines-game-server/internal/model"
	"mines-game-server/internal/repository"
)

// adminTokenStore holds opaque tokens issued by the admin login.
type adminTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]struct{}
}

func newAdminTokenStore() *adminTokenStore {
	return &adminTokenStore{tokens: make(map[string]struct{})}
}

func (st *adminTokenStore) issue() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	st.mu.Lock()
	st.tokens[token] = struct{}{}
	st.mu.Unlock()
	return token, nil
}

func (st *adminTokenStore) valid(token string) bool {
	if token == "" {
		return false
	}
	st.mu.RLock()
	_, ok := st.tokens[token]
	st.mu.RUnlock()
	return ok
}

// adminOnly rejects requests that do not carry a valid admin token.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.adminTokens.valid(bearerToken(r)) {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleAdminLogin checks the configured admin credentials and issues
// an admin token. Admin access is disabled when no password is set.
func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if s.cfg.Admin.Password == "" || !constantTimeEquals(req.Username, s.cfg.Admin.Username) ||
		!constantTimeEquals(req.Password, s.cfg.Admin.Password) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"error":   "Invalid username or password",
		})
		return
	}

	token, err := s.adminTokens.issue()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
	})
}

// handleAdminUsers lists all accounts.
func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, map[string]any{
			"id":         u.ID,
			"username":   u.Username,
			"balance":    toAmount(u.Balance),
			"created_at": u.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleAdminTransactions returns a user's ledger records, newest first.
func (s *Server) handleAdminTransactions(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		writeError(w, http.StatusBadRequest, "Username required")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	txs, err := s.txs.GetByUsername(r.Context(), username, limit)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("Failed to list transactions")
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	out := make([]map[string]any, 0, len(txs))
	for _, tx := range txs {
		entry := map[string]any{
			"id":         tx.ID,
			"amount":     toAmount(tx.Amount),
			"type":       tx.Type,
			"created_at": tx.CreatedAt,
		}
		if tx.Description != nil {
			entry["description"] = *tx.Description
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, out)
}

type addFundsRequest struct {
	Username string  `json:"username"`
	Amount   float64 `json:"amount"`
}

// handleAdminAddFunds credits a user's balance. The credit runs under
// the same per-username lock as game actions, so it cannot interleave
// with an in-flight bet or cash-out for that user.
func (s *Server) handleAdminAddFunds(w http.ResponseWriter, r *http.Request) {
	var req addFundsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	amount := toCents(req.Amount)
	if req.Username == "" || amount <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	var newBalance int64
	err := s.engine.Locks().WithLock(req.Username, func() error {
		balance, err := s.users.Credit(r.Context(), req.Username, amount)
		if err != nil {
			return err
		}
		newBalance = balance

		desc := "admin deposit"
		if _, err := s.txs.Create(r.Context(), req.Username, amount, model.TxTypeAdminAdd, &desc); err != nil {
			log.Error().Err(err).Str("username", req.Username).Msg("Failed to record admin transaction")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Str("username", req.Username).Msg("Failed to add funds")
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"newBalance": toAmount(newBalance),
	})
}

type deleteUserRequest struct {
	Username string `json:"username"`
}

// handleAdminDeleteUser removes an account and any active game.
func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	var req deleteUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "Username required")
		return
	}

	err := s.engine.Locks().WithLock(req.Username, func() error {
		return s.users.Delete(r.Context(), req.Username)
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Str("username", req.Username).Msg("Failed to delete user")
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	s.engine.Forfeit(req.Username)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "User " + req.Username + " deleted",
	})
}

func constantTimeEquals(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
