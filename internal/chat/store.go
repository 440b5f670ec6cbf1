package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"devhelper/internal/logging"
	"devhelper/internal/types"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// Session is one requirements-gathering conversation.
type Session struct {
	ID         string          `json:"id"`
	Messages   []types.Message `json:"messages"`
	Stage      string          `json:"stage"`
	CreatedAt  time.Time       `json:"createdAt"`
	LastActive time.Time       `json:"lastActive"`
}

// Greeting returns the first assistant message of s.
func (s Session) Greeting() string {
	if len(s.Messages) == 0 {
		return ""
	}
	return s.Messages[0].Content
}

func (s Session) clone() Session {
	c := s
	c.Messages = append([]types.Message(nil), s.Messages...)
	return c
}

// Store holds chat sessions. Implementations must be safe for concurrent use.
// Get and Update refresh the session's LastActive time.
type Store interface {
	Create(s Session)
	Get(id string) (Session, error)
	// Update applies fn under the store's lock and returns the result.
	Update(id string, fn func(*Session)) (Session, error)
	Delete(id string) bool
	// Reap drops expired sessions and returns how many were removed.
	Reap() int
	Len() int
}

// MemoryStore is a process-local Store. Sessions idle longer than the TTL
// expire; a zero TTL never expires.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) expired(s *Session, now time.Time) bool {
	return m.ttl > 0 && now.Sub(s.LastActive) > m.ttl
}

func (m *MemoryStore) Create(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.LastActive = now
	c := s.clone()
	m.sessions[s.ID] = &c
}

// lookup returns a live session. Caller holds mu.
func (m *MemoryStore) lookup(id string, now time.Time) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if m.expired(s, now) {
		delete(m.sessions, id)
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *MemoryStore) Get(id string) (Session, error) {
	return m.Update(id, func(*Session) {})
}

func (m *MemoryStore) Update(id string, fn func(*Session)) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	s, err := m.lookup(id, now)
	if err != nil {
		return Session{}, err
	}
	fn(s)
	s.ID = id
	s.LastActive = now
	return s.clone(), nil
}

func (m *MemoryStore) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

func (m *MemoryStore) Reap() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// RunReaper calls store.Reap every interval until ctx is done. onReap, when
// set, receives the number of live sessions after each sweep.
func RunReaper(ctx context.Context, store Store, interval time.Duration, onReap func(live int)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Reap(); n > 0 {
				logging.Chat("Reaped %d expired chat sessions", n)
			}
			if onReap != nil {
				onReap(store.Len())
			}
		}
	}
}
