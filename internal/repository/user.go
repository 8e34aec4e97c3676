// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"mines-game-server/internal/model"
)

// Common errors for repository operations.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// UserRepository handles user account persistence and is the balance
// ledger gateway: all debits and credits go through it as single
// atomic statements, and a debit can never drive a balance negative.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create creates a new user with a zero balance.
// Returns ErrUsernameTaken if the username already exists.
func (r *UserRepository) Create(ctx context.Context, username, passwordHash string) (*model.User, error) {
	const query = `
		INSERT INTO users (username, password_hash, balance, created_at, updated_at)
		VALUES ($1, $2, 0, NOW(), NOW())
		RETURNING id, username, password_hash, balance, created_at, updated_at
	`

	var user model.User
	err := r.pool.QueryRow(ctx, query, username, passwordHash).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Balance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// GetByUsername retrieves a user by username.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const query = `
		SELECT id, username, password_hash, balance, created_at, updated_at
		FROM users
		WHERE username = $1
	`

	var user model.User
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Balance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// GetBalance retrieves a user's current balance in cents.
func (r *UserRepository) GetBalance(ctx context.Context, username string) (int64, error) {
	const query = `SELECT balance FROM users WHERE username = $1`

	var balance int64
	err := r.pool.QueryRow(ctx, query, username).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	return balance, nil
}

// Debit atomically subtracts amount from a user's balance and returns
// the new balance. The statement only matches rows with sufficient
// funds, so the balance can never go negative.
// Returns ErrInsufficientBalance or ErrUserNotFound accordingly.
func (r *UserRepository) Debit(ctx context.Context, username string, amount int64) (int64, error) {
	const query = `
		UPDATE users
		SET balance = balance - $2, updated_at = NOW()
		WHERE username = $1 AND balance >= $2
		RETURNING balance
	`

	var balance int64
	err := r.pool.QueryRow(ctx, query, username, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish missing user from insufficient funds.
			exists, exErr := r.Exists(ctx, username)
			if exErr != nil {
				return 0, exErr
			}
			if !exists {
				return 0, ErrUserNotFound
			}
			return 0, ErrInsufficientBalance
		}
		return 0, fmt.Errorf("failed to debit balance: %w", err)
	}

	return balance, nil
}

// Credit atomically adds amount to a user's balance and returns the
// new balance. Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) Credit(ctx context.Context, username string, amount int64) (int64, error) {
	const query = `
		UPDATE users
		SET balance = balance + $2, updated_at = NOW()
		WHERE username = $1
		RETURNING balance
	`

	var balance int64
	err := r.pool.QueryRow(ctx, query, username, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to credit balance: %w", err)
	}

	return balance, nil
}

// List retrieves all users ordered by creation time (newest first).
// Used by the admin API.
func (r *UserRepository) List(ctx context.Context) ([]*model.User, error) {
	const query = `
		SELECT id, username, password_hash, balance, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		var user model.User
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.PasswordHash,
			&user.Balance,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Delete removes a user account. Used by the admin API.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) Delete(ctx context.Context, username string) error {
	const query = `DELETE FROM users WHERE username = $1`

	result, err := r.pool.Exec(ctx, query, username)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Exists checks if a user with the given username exists.
func (r *UserRepository) Exists(ctx context.Context, username string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}
