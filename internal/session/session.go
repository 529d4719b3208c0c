package session

import (
	"sync"

	"journey-tracker/internal/journey"
)

// Session holds the journey being tracked and the journeys planned so far.
// It is safe for concurrent use.
type Session struct {
	mu       sync.RWMutex
	current  *journey.Journey
	history  []*journey.Journey
	limit    int
	onChange func(historySize int)
}

// New returns an empty session. A positive limit caps the history, dropping
// the oldest entries first.
func New(limit int) *Session {
	return &Session{limit: limit}
}

// OnHistoryChange registers a callback invoked with the new history length.
func (s *Session) OnHistoryChange(f func(historySize int)) {
	s.mu.Lock()
	s.onChange = f
	s.mu.Unlock()
}

func (s *Session) Current() *journey.Journey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Session) SetCurrent(j *journey.Journey) {
	s.mu.Lock()
	s.current = j
	s.mu.Unlock()
}

func (s *Session) ClearCurrent() {
	s.SetCurrent(nil)
}

// History returns a copy, oldest first.
func (s *Session) History() []*journey.Journey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*journey.Journey, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) AddToHistory(j *journey.Journey) {
	if j == nil {
		return
	}
	s.mu.Lock()
	s.history = append(s.history, j)
	if s.limit > 0 && len(s.history) > s.limit {
		s.history = append(s.history[:0:0], s.history[len(s.history)-s.limit:]...)
	}
	n, f := len(s.history), s.onChange
	s.mu.Unlock()
	if f != nil {
		f(n)
	}
}

func (s *Session) ClearHistory() {
	s.mu.Lock()
	s.history = nil
	f := s.onChange
	s.mu.Unlock()
	if f != nil {
		f(0)
	}
}
