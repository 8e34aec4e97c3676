package mines

import "sync"

// Session is the server-side record of one in-progress wager for one
// user. The board is fixed at creation; Revealed grows by one index
// per successful gem reveal and indices are pairwise distinct.
type Session struct {
	Username  string
	Stake     int64 // cents
	MineCount int
	Board     Board
	Revealed  []int
}

// SafeClicks returns the number of successful gem reveals so far.
func (s *Session) SafeClicks() int {
	return len(s.Revealed)
}

// RemainingSafe returns the total number of gem cells on the board.
func (s *Session) RemainingSafe() int {
	return GridSize - s.MineCount
}

// IsRevealed reports whether the given cell index has been revealed.
func (s *Session) IsRevealed(index int) bool {
	for _, i := range s.Revealed {
		if i == index {
			return true
		}
	}
	return false
}

// SessionStore holds at most one active session per username.
// The map is guarded by its own mutex; atomicity of whole game
// transitions is provided by the engine's per-username lock, not here.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
	}
}

// Get returns the active session for a username, if any.
func (st *SessionStore) Get(username string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[username]
	return s, ok
}

// Put stores a session for its username. It returns false and stores
// nothing if the user already has an active session.
func (st *SessionStore) Put(s *Session) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, exists := st.sessions[s.Username]; exists {
		return false
	}
	st.sessions[s.Username] = s
	return true
}

// Delete removes the active session for a username, if any.
func (st *SessionStore) Delete(username string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, username)
}

// Len returns the number of active sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
