// Package memstore holds the server's working set of question pools and quiz
// sessions in process memory with per-entry expiry.
package memstore

import (
	"sync"
	"time"

	"github.com/quizforge/quiz-generator-api/internal/models"
)

type poolEntry struct {
	pool      *models.QuestionPool
	expiresAt time.Time
}

// PoolStore keeps generated question pools alive for a fixed window after
// creation. Sessions hold their own pool reference, so an expired pool only
// stops new sessions from being started against it.
type PoolStore struct {
	mu   sync.RWMutex
	ttl  time.Duration
	data map[string]poolEntry
}

func NewPoolStore(ttl time.Duration) *PoolStore {
	return &PoolStore{
		ttl:  ttl,
		data: make(map[string]poolEntry),
	}
}

// Put stores the pool under its own ID, restarting the expiry window.
func (s *PoolStore) Put(pool *models.QuestionPool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[pool.ID] = poolEntry{
		pool:      pool,
		expiresAt: time.Now().Add(s.ttl),
	}
}

func (s *PoolStore) Get(id string) (*models.QuestionPool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[id]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.pool, true
}

func (s *PoolStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
}

// Sweep removes expired entries and reports how many were dropped.
func (s *PoolStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, e := range s.data {
		if now.After(e.expiresAt) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

func (s *PoolStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
