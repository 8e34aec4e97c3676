package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/rs/zerolog/log"

	"mines-game-server/internal/game/mines"
	"mines-game-server/internal/model"
	"mines-game-server/internal/pkg/lock"
	"mines-game-server/internal/repository"
)

// Ledger is the balance ledger gateway consumed by the game engine.
// Each call is a single atomic step against durable storage.
// Implementations report missing accounts with repository.ErrUserNotFound
// and failed debits with repository.ErrInsufficientBalance;
// *repository.UserRepository satisfies this interface.
type Ledger interface {
	GetBalance(ctx context.Context, username string) (int64, error)
	Debit(ctx context.Context, username string, amount int64) (int64, error)
	Credit(ctx context.Context, username string, amount int64) (int64, error)
}

// TxRecorder records ledger transactions for audit purposes.
// *repository.TransactionRepository satisfies this interface.
type TxRecorder interface {
	Create(ctx context.Context, username string, amount int64, txType string, description *string) (*model.Transaction, error)
}

// RevealOutcome classifies the result of revealing one tile.
type RevealOutcome int

// Reveal outcomes.
const (
	RevealSafe RevealOutcome = iota // gem revealed, game continues
	RevealLost                      // mine revealed, game over
	RevealWon                       // last gem revealed, automatic win
)

// BetResult is the outcome of a successful bet.
type BetResult struct {
	Stake     int64 // cents
	MineCount int
	Balance   int64 // cents, post-debit
}

// RevealResult is the outcome of a reveal.
// Board and Balance are only set on terminal outcomes; Balance only on
// RevealWon (a loss does not touch the ledger).
type RevealResult struct {
	Outcome    RevealOutcome
	Index      int
	Multiplier float64
	Payout     int64 // cents; cashout value so far, or the credited win
	Board      []mines.Tile
	Balance    int64
}

// CashOutResult is the outcome of a successful voluntary cash-out.
type CashOutResult struct {
	Multiplier float64
	Payout     int64 // cents
	Balance    int64 // cents, post-credit
	Board      []mines.Tile
}

// GameEngine drives the mines game state machine. Every transition
// for a username (bet, reveal, cash-out, forfeit) and every admin
// balance adjustment sharing the same lock executes as one atomic
// unit, so concurrent connections for the same user cannot race on
// session or balance state.
type GameEngine struct {
	store  *mines.SessionStore
	ledger Ledger
	txs    TxRecorder
	locks  *lock.UserLock

	minBet int64
	maxBet int64 // 0 = unlimited

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewGameEngine creates a game engine. minBet and maxBet are in cents;
// maxBet of 0 disables the upper bound. rng is the random source for
// board generation.
func NewGameEngine(store *mines.SessionStore, ledger Ledger, txs TxRecorder, locks *lock.UserLock, rng *rand.Rand, minBet, maxBet int64) *GameEngine {
	return &GameEngine{
		store:  store,
		ledger: ledger,
		txs:    txs,
		locks:  locks,
		minBet: minBet,
		maxBet: maxBet,
		rng:    rng,
	}
}

// Locks exposes the per-username lock so collaborators (the admin API)
// can serialize their balance adjustments with in-flight game actions.
func (e *GameEngine) Locks() *lock.UserLock {
	return e.locks
}

// Bet debits the stake and creates a new game session atomically.
// On any validation or ledger failure no session is created and the
// balance is untouched.
func (e *GameEngine) Bet(ctx context.Context, username string, stake int64, mineCount int) (*BetResult, error) {
	if stake <= 0 || stake < e.minBet || (e.maxBet > 0 && stake > e.maxBet) {
		return nil, ErrInvalidBetAmount
	}
	if mineCount < mines.MinMines || mineCount > mines.MaxMines {
		return nil, ErrInvalidMineCount
	}

	var res *BetResult
	err := e.locks.WithLock(username, func() error {
		if _, exists := e.store.Get(username); exists {
			return ErrGameAlreadyActive
		}

		balance, err := e.ledger.Debit(ctx, username, stake)
		if err != nil {
			return ledgerError(err)
		}

		session := &mines.Session{
			Username:  username,
			Stake:     stake,
			MineCount: mineCount,
			Board:     e.generate(mineCount),
		}
		e.store.Put(session)

		e.recordTx(ctx, username, -stake, model.TxTypeBet,
			fmt.Sprintf("bet %d mines", mineCount))

		res = &BetResult{
			Stake:     stake,
			MineCount: mineCount,
			Balance:   balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("username", username).
		Int64("stake", res.Stake).
		Int("mines", res.MineCount).
		Msg("Game started")

	return res, nil
}

// Reveal opens one tile. A mine ends the game with no payout; the
// final gem credits the payout and ends the game; any other gem keeps
// the game active. If crediting an automatic win fails the reveal is
// rolled back and the session stays exactly as it was.
func (e *GameEngine) Reveal(ctx context.Context, username string, index int) (*RevealResult, error) {
	var res *RevealResult
	err := e.locks.WithLock(username, func() error {
		session, ok := e.store.Get(username)
		if !ok {
			return ErrNoActiveGame
		}
		if index < 0 || index >= mines.GridSize || session.IsRevealed(index) {
			return ErrInvalidTileIndex
		}

		if session.Board[index] == mines.TileMine {
			e.store.Delete(username)
			res = &RevealResult{
				Outcome: RevealLost,
				Index:   index,
				Board:   session.Board.Tiles(),
			}
			return nil
		}

		session.Revealed = append(session.Revealed, index)
		multiplier := mines.Multiplier(session.MineCount, session.SafeClicks())
		payout := mines.Payout(session.Stake, multiplier)

		if session.SafeClicks() == session.RemainingSafe() {
			balance, err := e.ledger.Credit(ctx, username, payout)
			if err != nil {
				// Undo the append; the reveal never happened.
				session.Revealed = session.Revealed[:len(session.Revealed)-1]
				return ledgerError(err)
			}
			e.store.Delete(username)

			e.recordTx(ctx, username, payout, model.TxTypeWin,
				fmt.Sprintf("automatic win x%.2f", multiplier))

			res = &RevealResult{
				Outcome:    RevealWon,
				Index:      index,
				Multiplier: multiplier,
				Payout:     payout,
				Board:      session.Board.Tiles(),
				Balance:    balance,
			}
			return nil
		}

		res = &RevealResult{
			Outcome:    RevealSafe,
			Index:      index,
			Multiplier: multiplier,
			Payout:     payout,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CashOut settles the active game at the current multiplier. It is
// rejected before the first safe reveal. If crediting fails the
// session stays active and untouched.
func (e *GameEngine) CashOut(ctx context.Context, username string) (*CashOutResult, error) {
	var res *CashOutResult
	err := e.locks.WithLock(username, func() error {
		session, ok := e.store.Get(username)
		if !ok {
			return ErrNoActiveGame
		}
		if session.SafeClicks() == 0 {
			return ErrMustRevealFirst
		}

		multiplier := mines.Multiplier(session.MineCount, session.SafeClicks())
		payout := mines.Payout(session.Stake, multiplier)

		balance, err := e.ledger.Credit(ctx, username, payout)
		if err != nil {
			return ledgerError(err)
		}
		e.store.Delete(username)

		e.recordTx(ctx, username, payout, model.TxTypeCashout,
			fmt.Sprintf("cashout x%.2f after %d reveals", multiplier, session.SafeClicks()))

		res = &CashOutResult{
			Multiplier: multiplier,
			Payout:     payout,
			Balance:    balance,
			Board:      session.Board.Tiles(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Forfeit deletes the user's active session without refund and without
// resolving the board. Called when a connection terminates mid-game.
// Returns true if a session was abandoned.
func (e *GameEngine) Forfeit(username string) bool {
	forfeited := false
	_ = e.locks.WithLock(username, func() error {
		session, ok := e.store.Get(username)
		if !ok {
			return nil
		}
		e.store.Delete(username)
		forfeited = true
		log.Info().
			Str("username", username).
			Int64("stake", session.Stake).
			Msg("Clearing abandoned game")
		return nil
	})
	return forfeited
}

// HasActiveGame reports whether the user has a game in flight.
func (e *GameEngine) HasActiveGame(username string) bool {
	_, ok := e.store.Get(username)
	return ok
}

// generate produces a fresh board; the shared rng needs its own lock
// because board generation for different users can run concurrently.
func (e *GameEngine) generate(mineCount int) mines.Board {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return mines.Generate(e.rng, mineCount)
}

// recordTx writes an audit record. Failures are logged, not returned:
// the balance change has already committed.
func (e *GameEngine) recordTx(ctx context.Context, username string, amount int64, txType, description string) {
	if e.txs == nil {
		return
	}
	if _, err := e.txs.Create(ctx, username, amount, txType, &description); err != nil {
		log.Error().Err(err).
			Str("username", username).
			Str("type", txType).
			Msg("Failed to record transaction")
	}
}

// ledgerError passes through the typed validation errors and wraps
// everything else as a transient ledger failure.
func ledgerError(err error) error {
	if errors.Is(err, repository.ErrInsufficientBalance) || errors.Is(err, repository.ErrUserNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
}
