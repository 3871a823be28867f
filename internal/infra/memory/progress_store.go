package memory

import (
	"context"
	"sync"

	"academy-quiz-service/internal/domain"
)

// ProgressStore is an in-memory implementation of app.ProgressRepository.
type ProgressStore struct {
	mu      sync.Mutex
	records map[string][]domain.ProgressRecord
	seen    map[string]struct{}
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		records: make(map[string][]domain.ProgressRecord),
		seen:    make(map[string]struct{}),
	}
}

func (s *ProgressStore) Append(_ context.Context, rec domain.ProgressRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[rec.EventID]; ok {
		return false, nil
	}
	s.seen[rec.EventID] = struct{}{}
	rec.BadgesEarned = append([]string{}, rec.BadgesEarned...)
	s.records[rec.UserID] = append(s.records[rec.UserID], rec)
	return true, nil
}

func (s *ProgressStore) List(_ context.Context, userID string) ([]domain.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ProgressRecord, len(s.records[userID]))
	copy(out, s.records[userID])
	return out, nil
}
