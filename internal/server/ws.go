package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"mines-game-server/internal/repository"
	"mines-game-server/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// gameConn is one realtime game connection. The read loop serializes
// the connection's own actions; cross-connection races for the same
// user are handled by the engine's per-username lock, not here.
type gameConn struct {
	conn   *websocket.Conn
	auth   *service.AuthService
	engine *service.GameEngine

	writeMu  sync.Mutex
	username string // empty until AUTH succeeds
}

// handleGameWS upgrades the connection and runs its read loop.
func (s *Server) handleGameWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &gameConn{
		conn:   conn,
		auth:   s.auth,
		engine: s.engine,
	}
	c.readLoop()
}

// readLoop consumes client actions until the connection drops. An
// in-flight action always completes before teardown runs, so a
// disconnect mid-action cannot leave a half-mutated session.
func (c *gameConn) readLoop() {
	defer c.teardown()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleMessage(data)
	}
}

// teardown closes the socket and forfeits any active game: the session
// is deleted without refund and without a terminal event.
func (c *gameConn) teardown() {
	_ = c.conn.Close()
	if c.username != "" {
		c.engine.Forfeit(c.username)
	}
}

// handleMessage dispatches one client action. Malformed messages are
// logged and ignored; every rejected action yields an error event and
// leaves connection and session state untouched.
func (c *gameConn) handleMessage(data []byte) {
	var action ClientAction
	if err := json.Unmarshal(data, &action); err != nil {
		log.Warn().Err(err).Msg("Ignoring malformed game message")
		return
	}

	if action.Action == ActionAuth {
		c.handleAuth(action)
		return
	}

	if c.username == "" {
		c.sendError("Not authenticated")
		return
	}

	switch action.Action {
	case ActionBet:
		c.handleBet(action)
	case ActionReveal:
		c.handleReveal(action)
	case ActionCashout:
		c.handleCashout()
	default:
		c.sendError("Unknown action")
	}
}

// handleAuth resolves the token to a username. The username is fixed
// for the lifetime of the connection; a repeated AUTH is acknowledged
// without changing it.
func (c *gameConn) handleAuth(action ClientAction) {
	if c.username != "" {
		c.send(AuthOKEvent{Type: EventAuthOK, Username: c.username})
		return
	}

	username, err := c.auth.Authenticate(action.Token)
	if err != nil {
		c.sendError("Invalid session")
		return
	}

	c.username = username
	c.send(AuthOKEvent{Type: EventAuthOK, Username: username})
}

func (c *gameConn) handleBet(action ClientAction) {
	res, err := c.engine.Bet(context.Background(), c.username, toCents(action.BetAmount), action.Mines)
	if err != nil {
		c.sendError(errorMessage(err))
		return
	}

	c.send(GameStartedEvent{
		Type:      EventGameStarted,
		Balance:   toAmount(res.Balance),
		BetAmount: toAmount(res.Stake),
		Mines:     res.MineCount,
	})
}

func (c *gameConn) handleReveal(action ClientAction) {
	if action.Index == nil {
		c.sendError(errorMessage(service.ErrInvalidTileIndex))
		return
	}

	res, err := c.engine.Reveal(context.Background(), c.username, *action.Index)
	if err != nil {
		c.sendError(errorMessage(err))
		return
	}

	switch res.Outcome {
	case service.RevealSafe:
		c.send(TileRevealedEvent{
			Type:              EventTileRevealed,
			Index:             res.Index,
			Tile:              "gem",
			CurrentMultiplier: res.Multiplier,
			CurrentPayout:     toAmount(res.Payout),
		})
	case service.RevealLost:
		c.send(GameOverEvent{
			Type:   EventGameOver,
			Result: ResultLoss,
			Board:  res.Board,
		})
	case service.RevealWon:
		c.send(GameOverEvent{
			Type:       EventGameOver,
			Result:     ResultWin,
			Board:      res.Board,
			Payout:     amountPtr(res.Payout),
			Multiplier: floatPtr(res.Multiplier),
			NewBalance: amountPtr(res.Balance),
		})
	}
}

func (c *gameConn) handleCashout() {
	res, err := c.engine.CashOut(context.Background(), c.username)
	if err != nil {
		c.sendError(errorMessage(err))
		return
	}

	c.send(GameOverEvent{
		Type:       EventGameOver,
		Result:     ResultCashout,
		Board:      res.Board,
		Payout:     amountPtr(res.Payout),
		Multiplier: floatPtr(res.Multiplier),
		NewBalance: amountPtr(res.Balance),
	})
}

// send writes one JSON event. gorilla/websocket permits a single
// concurrent writer, hence the mutex.
func (c *gameConn) send(event any) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(event); err != nil {
		log.Debug().Err(err).Str("username", c.username).Msg("Failed to write game event")
	}
}

func (c *gameConn) sendError(msg string) {
	c.send(ErrorEvent{Error: msg})
}

// errorMessage maps engine errors to the protocol's error strings.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidBetAmount):
		return "Invalid bet amount"
	case errors.Is(err, service.ErrInvalidMineCount):
		return "Invalid mine count"
	case errors.Is(err, service.ErrGameAlreadyActive):
		return "Game already active"
	case errors.Is(err, repository.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, repository.ErrInsufficientBalance):
		return "Insufficient balance"
	case errors.Is(err, service.ErrInvalidTileIndex):
		return "Invalid tile"
	case errors.Is(err, service.ErrNoActiveGame):
		return "No active game"
	case errors.Is(err, service.ErrMustRevealFirst):
		return "Must reveal at least one tile"
	case errors.Is(err, service.ErrLedgerUnavailable):
		return "Service temporarily unavailable, please retry"
	default:
		log.Error().Err(err).Msg("Unexpected game error")
		return "Internal error"
	}
}
