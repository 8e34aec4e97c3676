// Package lock provides per-username locking for concurrent balance
// and game session operations.
package lock

import (
	"sync"
)

// userMutex wraps a mutex with reference counting for cleanup.
type userMutex struct {
	mu       sync.Mutex
	refCount int
}

// UserLock serializes all balance-modifying and session-modifying
// operations for a single username. Operations for different usernames
// never contend with each other.
type UserLock struct {
	locks sync.Map // map[string]*userMutex
	pool  sync.Pool
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{
		pool: sync.Pool{
			New: func() any {
				return &userMutex{}
			},
		},
	}
}

// getLock retrieves or creates a mutex for the given username.
func (ul *UserLock) getLock(username string) *userMutex {
	if v, ok := ul.locks.Load(username); ok {
		return v.(*userMutex)
	}

	newLock := ul.pool.Get().(*userMutex)
	newLock.refCount = 0

	actual, loaded := ul.locks.LoadOrStore(username, newLock)
	if loaded {
		// Another goroutine created the lock first, return ours to pool
		ul.pool.Put(newLock)
	}
	return actual.(*userMutex)
}

// Lock acquires the lock for a username.
// This must be called before any balance- or session-modifying operation.
func (ul *UserLock) Lock(username string) {
	lock := ul.getLock(username)
	lock.mu.Lock()
	lock.refCount++
}

// Unlock releases the lock for a username.
func (ul *UserLock) Unlock(username string) {
	if v, ok := ul.locks.Load(username); ok {
		lock := v.(*userMutex)
		lock.refCount--
		lock.mu.Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false otherwise.
func (ul *UserLock) TryLock(username string) bool {
	lock := ul.getLock(username)
	if lock.mu.TryLock() {
		lock.refCount++
		return true
	}
	return false
}

// WithLock executes a function while holding the username's lock.
func (ul *UserLock) WithLock(username string, fn func() error) error {
	ul.Lock(username)
	defer ul.Unlock(username)
	return fn()
}

// IsLocked checks if a username currently has an active lock.
// Note: this is a point-in-time check and may change immediately after.
func (ul *UserLock) IsLocked(username string) bool {
	if v, ok := ul.locks.Load(username); ok {
		lock := v.(*userMutex)
		if lock.mu.TryLock() {
			lock.mu.Unlock()
			return false
		}
		return true
	}
	return false
}
