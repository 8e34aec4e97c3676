// Package model defines the data models for the mines game server.
package model

import "time"

// User represents a player account. Balance is stored in cents so that
// currency arithmetic stays exact; the wire protocol converts to
// decimal amounts at the edge.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Balance      int64     `db:"balance"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Transaction represents a balance change record.
type Transaction struct {
	ID          int64     `db:"id"`
	Username    string    `db:"username"`
	Amount      int64     `db:"amount"`
	Type        string    `db:"type"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeBet      = "mines_bet"     // Stake debited at game start
	TxTypeWin      = "mines_win"     // Automatic win credited
	TxTypeCashout  = "mines_cashout" // Voluntary cash-out credited
	TxTypeAdminAdd = "admin_add"     // Admin added funds
)
