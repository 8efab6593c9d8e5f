package memstore

import (
	"sync"
	"time"

	"github.com/quizforge/quiz-generator-api/internal/quiz"
)

// SessionEntry pairs a session with its owner and a mutex that serializes
// all access to it. The engine itself is not concurrency-safe.
type SessionEntry struct {
	ownerID string

	mu      sync.Mutex
	session *quiz.Session
}

func NewSessionEntry(ownerID string, session *quiz.Session) *SessionEntry {
	return &SessionEntry{ownerID: ownerID, session: session}
}

func (e *SessionEntry) OwnerID() string {
	return e.ownerID
}

// Do runs fn with exclusive access to the session.
func (e *SessionEntry) Do(fn func(*quiz.Session) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.session)
}

type sessionRecord struct {
	entry     *SessionEntry
	expiresAt time.Time
}

// SessionStore keeps live quiz sessions with a sliding expiry: every hit
// restarts the window, so a session only dies after going untouched for the
// full TTL.
type SessionStore struct {
	mu   sync.RWMutex
	ttl  time.Duration
	data map[string]sessionRecord
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:  ttl,
		data: make(map[string]sessionRecord),
	}
}

func (s *SessionStore) Put(id string, entry *SessionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = sessionRecord{
		entry:     entry,
		expiresAt: time.Now().Add(s.ttl),
	}
}

// Get returns the entry and slides its expiry forward.
func (s *SessionStore) Get(id string) (*SessionEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.data[id]
	if !ok {
		return nil, false
	}
	if time.Now().After(rec.expiresAt) {
		delete(s.data, id)
		return nil, false
	}

	rec.expiresAt = time.Now().Add(s.ttl)
	s.data[id] = rec
	return rec.entry, true
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
}

// Sweep removes expired entries and reports how many were dropped.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, rec := range s.data {
		if now.After(rec.expiresAt) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
