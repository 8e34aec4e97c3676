// Package server provides the HTTP and WebSocket transport for the
// mines game: the realtime game protocol, the auth API, the admin API,
// and static asset delivery.
package server

import (
	"math"

	"mines-game-server/internal/game/mines"
)

// Client action names. The dispatch over these is exhaustive; anything
// else is rejected with a protocol error.
const (
	ActionAuth    = "AUTH"
	ActionBet     = "BET"
	ActionReveal  = "REVEAL"
	ActionCashout = "CASHOUT"
)

// Server event type names.
const (
	EventAuthOK       = "AUTH_OK"
	EventGameStarted  = "GAME_STARTED"
	EventTileRevealed = "TILE_REVEALED"
	EventGameOver     = "GAME_OVER"
)

// Game results carried by GameOverEvent.
const (
	ResultLoss    = "loss"
	ResultWin     = "win"
	ResultCashout = "cashout"
)

// ClientAction is the closed union of client-to-server messages,
// discriminated by Action. Index is a pointer so that a missing index
// can be told apart from tile 0.
type ClientAction struct {
	Action    string  `json:"action"`
	Token     string  `json:"token,omitempty"`
	BetAmount float64 `json:"betAmount,omitempty"`
	Mines     int     `json:"mines,omitempty"`
	Index     *int    `json:"index,omitempty"`
}

// AuthOKEvent acknowledges a successful AUTH action.
type AuthOKEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

// GameStartedEvent acknowledges a successful BET action.
type GameStartedEvent struct {
	Type      string  `json:"type"`
	Balance   float64 `json:"balance"`
	BetAmount float64 `json:"betAmount"`
	Mines     int     `json:"mines"`
}

// TileRevealedEvent reports a safe reveal on a game that continues.
type TileRevealedEvent struct {
	Type              string  `json:"type"`
	Index             int     `json:"index"`
	Tile              string  `json:"tile"`
	CurrentMultiplier float64 `json:"currentMultiplier"`
	CurrentPayout     float64 `json:"currentPayout"`
}

// GameOverEvent reports a terminal outcome with the full board.
// Payout, Multiplier, and NewBalance are omitted on a loss.
type GameOverEvent struct {
	Type       string       `json:"type"`
	Result     string       `json:"result"`
	Board      []mines.Tile `json:"board"`
	Payout     *float64     `json:"payout,omitempty"`
	Multiplier *float64     `json:"multiplier,omitempty"`
	NewBalance *float64     `json:"newBalance,omitempty"`
}

// ErrorEvent is sent for any rejected action; the connection stays open.
type ErrorEvent struct {
	Error string `json:"error"`
}

// toAmount converts cents to the decimal currency amount used on the wire.
func toAmount(cents int64) float64 {
	return float64(cents) / 100
}

// toCents converts a wire currency amount to cents.
func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func amountPtr(cents int64) *float64 {
	v := toAmount(cents)
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}
