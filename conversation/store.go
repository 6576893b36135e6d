package conversation

import (
	"github.com/patrickmn/go-cache"
)

// Store maps a session id to its conversation thread.
type Store struct {
	threads *cache.Cache
}

func NewStore() *Store {
	return &Store{threads: cache.New(cache.NoExpiration, 0)}
}

func (s *Store) Get(sessionID string) (*Thread, bool) {
	v, ok := s.threads.Get(sessionID)
	if !ok {
		return nil, false
	}
	t, ok := v.(*Thread)
	return t, ok
}

// Open returns the thread for sessionID, creating an empty one if needed.
func (s *Store) Open(sessionID string) *Thread {
	if t, ok := s.Get(sessionID); ok {
		return t
	}
	t := newThread(sessionID)
	s.threads.Set(sessionID, t, cache.NoExpiration)
	return t
}

func (s *Store) Evict(sessionID string) {
	s.threads.Delete(sessionID)
}

func (s *Store) Len() int {
	return s.threads.ItemCount()
}
