// Package service provides business logic implementations.
package service

import "errors"

// Errors reported to clients as non-fatal protocol errors. None of
// them terminate a connection or leave state partially mutated.
var (
	// ErrInvalidCredentials is returned on failed login attempts.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidSession is returned when a session token is unknown.
	ErrInvalidSession = errors.New("invalid session")

	// ErrInvalidUsername is returned when a signup username is malformed.
	ErrInvalidUsername = errors.New("username must be at least 3 characters")

	// ErrInvalidPassword is returned when a signup password is malformed.
	ErrInvalidPassword = errors.New("password must be at least 4 characters")

	// ErrInvalidBetAmount is returned when a bet amount is not positive
	// or falls outside the configured bounds.
	ErrInvalidBetAmount = errors.New("invalid bet amount")

	// ErrInvalidMineCount is returned when the mine count is outside [1, 24].
	ErrInvalidMineCount = errors.New("invalid mine count")

	// ErrGameAlreadyActive is returned when betting while a game is in flight.
	ErrGameAlreadyActive = errors.New("game already active")

	// ErrNoActiveGame is returned for reveal/cashout without a game.
	ErrNoActiveGame = errors.New("no active game")

	// ErrInvalidTileIndex is returned for an out-of-range or already
	// revealed tile index.
	ErrInvalidTileIndex = errors.New("invalid tile")

	// ErrMustRevealFirst rejects cashing out with zero safe reveals.
	ErrMustRevealFirst = errors.New("must reveal at least one tile")

	// ErrLedgerUnavailable wraps transient balance ledger failures.
	// The triggering operation is treated as if it never started.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
)
