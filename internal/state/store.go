// Package state keeps the per-source crawl state for the lifetime of the
// process. Nothing here is persisted: after a restart every source document is
// treated as changed once.
package state

import (
	"sync"
	"time"

	"github.com/blocklist-crawler/crawler/internal/source"
)

// InitialOffset is where the numeric probe starts on a fresh process.
const InitialOffset = 1

type SourceState struct {
	Source      source.Source `json:"source"`
	LastOffset  int           `json:"last_offset,omitempty"`
	Fingerprint string        `json:"fingerprint"`
	LastURL     string        `json:"last_url,omitempty"`
	LastCheck   time.Time     `json:"last_check,omitzero"`
	LastChange  time.Time     `json:"last_change,omitzero"`
	DomainCount int           `json:"domain_count"`
	LastError   string        `json:"last_error,omitempty"`
}

type Store struct {
	mu     sync.RWMutex
	states map[source.Source]*SourceState
	now    func() time.Time
}

func NewStore() *Store {
	s := &Store{
		states: make(map[source.Source]*SourceState),
		now:    time.Now,
	}
	for _, src := range source.All() {
		st := &SourceState{Source: src}
		if src == source.CZ {
			st.LastOffset = InitialOffset
		}
		s.states[src] = st
	}
	return s
}

func (s *Store) get(src source.Source) *SourceState {
	st, ok := s.states[src]
	if !ok {
		st = &SourceState{Source: src}
		s.states[src] = st
	}
	return st
}

// HasChanged compares fingerprint with the stored one and records it when it
// differs. The first observation of a source is always a change.
func (s *Store) HasChanged(src source.Source, fingerprint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.get(src)
	st.LastCheck = s.now()
	if st.Fingerprint == fingerprint {
		return false
	}
	st.Fingerprint = fingerprint
	st.LastChange = st.LastCheck
	return true
}

func (s *Store) Offset(src source.Source) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.states[src]; ok {
		return st.LastOffset
	}
	return 0
}

func (s *Store) SetOffset(src source.Source, offset int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(src).LastOffset = offset
}

func (s *Store) SetURL(src source.Source, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(src).LastURL = url
}

func (s *Store) SetDomainCount(src source.Source, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(src).DomainCount = n
}

// SetError records the outcome of the latest cycle; nil clears it.
func (s *Store) SetError(src source.Source, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.get(src)
	if err == nil {
		st.LastError = ""
		return
	}
	st.LastError = err.Error()
}

// Snapshot returns copies of all states in source order.
func (s *Store) Snapshot() []SourceState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SourceState, 0, len(s.states))
	for _, src := range source.All() {
		if st, ok := s.states[src]; ok {
			out = append(out, *st)
		}
	}
	return out
}
