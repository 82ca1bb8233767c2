package session

import (
	"sync"
	"sync/atomic"
	"time"
)

type entry struct {
	mu      sync.Mutex
	session *Session
	removed bool
}

// Store keeps sessions in memory. Each session has its own lock; there is no
// store-wide lock on the update path.
type Store struct {
	entries sync.Map // key -> *entry
	size    atomic.Int64
}

func NewStore() *Store {
	return &Store{}
}

// Get returns a snapshot of the session stored under key
func (s *Store) Get(key string) (Session, bool) {
	v, ok := s.entries.Load(key)
	if !ok {
		return Session{}, false
	}
	e := v.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return Session{}, false
	}
	return e.session.Snapshot(), true
}

// Update runs fn on the session stored under key, creating it first if
// needed. fn runs under the session lock; the returned snapshot reflects the
// state after fn, whether or not fn failed.
func (s *Store) Update(key string, fn func(*Session) error) (Session, error) {
	for {
		v, loaded := s.entries.LoadOrStore(key, &entry{})
		e := v.(*entry)

		e.mu.Lock()
		if loaded && e.removed {
			// lost a race with Delete; retry with a fresh entry
			e.mu.Unlock()
			continue
		}
		if e.session == nil {
			e.session = New(key)
			s.size.Add(1)
		}

		err := fn(e.session)
		snapshot := e.session.Snapshot()
		e.mu.Unlock()
		return snapshot, err
	}
}

// Delete drops the session stored under key
func (s *Store) Delete(key string) {
	v, ok := s.entries.Load(key)
	if !ok {
		return
	}
	e := v.(*entry)
	e.mu.Lock()
	s.removeLocked(key, e)
	e.mu.Unlock()
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	return int(s.size.Load())
}

// Sweep removes sessions idle since before cutoff. Sessions with a
// translation in flight are kept.
func (s *Store) Sweep(cutoff time.Time) int {
	removed := 0
	s.entries.Range(func(k, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		if e.session != nil && e.session.Phase != PhaseTranslating && e.session.UpdatedAt.Before(cutoff) {
			s.removeLocked(k.(string), e)
			removed++
		}
		e.mu.Unlock()
		return true
	})
	return removed
}

func (s *Store) removeLocked(key string, e *entry) {
	if e.session == nil {
		return
	}
	e.session = nil
	e.removed = true
	s.size.Add(-1)
	s.entries.CompareAndDelete(key, e)
}
