package memory

import (
	"context"
	"fmt"
	"sync"

	"academy-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.Session),
	}
}

func (s *SessionStore) Create(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("session %q already exists", session.ID)
	}
	s.sessions[session.ID] = clone(session)
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return clone(session), nil
}

func (s *SessionStore) Advance(_ context.Context, id string, step domain.Step) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	next, err := session.Advance(step)
	if err != nil {
		return domain.Session{}, err
	}
	s.sessions[id] = next
	return clone(next), nil
}

// clone detaches slices so callers cannot mutate stored state.
func clone(s domain.Session) domain.Session {
	s.Items = append([]string(nil), s.Items...)
	s.Answers = append([]int{}, s.Answers...)
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		s.CompletedAt = &at
	}
	return s
}
