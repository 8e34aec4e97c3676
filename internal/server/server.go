package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"mines-game-server/internal/config"
	"mines-game-server/internal/model"
	"mines-game-server/internal/service"
)

// AccountDirectory is the account access the HTTP API needs beyond
// what the auth service provides. *repository.UserRepository
// satisfies it.
type AccountDirectory interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Credit(ctx context.Context, username string, amount int64) (int64, error)
	List(ctx context.Context) ([]*model.User, error)
	Delete(ctx context.Context, username string) error
}

// TransactionLog is the audit trail access the admin API needs.
// *repository.TransactionRepository satisfies it.
type TransactionLog interface {
	service.TxRecorder
	GetByUsername(ctx context.Context, username string, limit int) ([]*model.Transaction, error)
}

// Server wires the HTTP router, the WebSocket game endpoint, and
// their dependencies.
type Server struct {
	cfg    *config.Config
	auth   *service.AuthService
	engine *service.GameEngine
	users  AccountDirectory
	txs    TransactionLog

	adminTokens *adminTokenStore
	httpServer  *http.Server
}

// New creates a Server and builds its route table.
func New(
	cfg *config.Config,
	auth *service.AuthService,
	engine *service.GameEngine,
	users AccountDirectory,
	txs TransactionLog,
) *Server {
	s := &Server{
		cfg:         cfg,
		auth:        auth,
		engine:      engine,
		users:       users,
		txs:         txs,
		adminTokens: newAdminTokenStore(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Post("/api/signup", s.handleSignup)
	r.Post("/api/login", s.handleLogin)
	r.Get("/api/me", s.handleMe)

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", s.handleAdminLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Get("/users", s.handleAdminUsers)
			r.Get("/transactions", s.handleAdminTransactions)
			r.Post("/add-funds", s.handleAdminAddFunds)
			r.Post("/delete-user", s.handleAdminDeleteUser)
		})
	})

	r.Get("/ws/game", s.handleGameWS)

	if cfg.Server.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.Server.StaticDir)))
	}

	s.httpServer = &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	return s
}

// Handler returns the route table, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server until it fails or is shut down.
func (s *Server) Start() error {
	log.Info().Str("addr", s.cfg.Server.Addr).Msg("HTTP server listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// requestLogger logs each HTTP request with zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// writeJSON writes a JSON response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError writes a JSON error body with the given status code.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON decodes a request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
