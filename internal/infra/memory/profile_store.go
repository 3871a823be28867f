package memory

import (
	"context"
	"slices"
	"sync"

	"academy-quiz-service/internal/domain"
)

// ProfileStore is an in-memory implementation of app.ProfileRepository.
type ProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
	awards   map[string]struct{}
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[string]*domain.Profile), awards: make(map[string]struct{})}
}

func (s *ProfileStore) Get(_ context.Context, userID string) (domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[userID]; ok {
		return copyProfile(p), nil
	}
	return domain.Profile{UserID: userID, Badges: []string{}, CompletedThemes: []string{}}, nil
}

func (s *ProfileStore) AddXP(_ context.Context, userID string, amount int) (domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profileLocked(userID)
	p.XP += amount
	return copyProfile(p), nil
}

func (s *ProfileStore) ApplyAward(_ context.Context, userID, awardID string, amount int) (domain.Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profileLocked(userID)
	if _, seen := s.awards[awardID]; seen {
		return copyProfile(p), false, nil
	}
	s.awards[awardID] = struct{}{}
	p.XP += amount
	return copyProfile(p), true, nil
}

func (s *ProfileStore) AddBadge(_ context.Context, userID, badgeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profileLocked(userID)
	if slices.Contains(p.Badges, badgeID) {
		return false, nil
	}
	p.Badges = append(p.Badges, badgeID)
	return true, nil
}

func (s *ProfileStore) AddCompletedTheme(_ context.Context, userID, themeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profileLocked(userID)
	if slices.Contains(p.CompletedThemes, themeID) {
		return false, nil
	}
	p.CompletedThemes = append(p.CompletedThemes, themeID)
	return true, nil
}

func (s *ProfileStore) profileLocked(userID string) *domain.Profile {
	p, ok := s.profiles[userID]
	if !ok {
		p = &domain.Profile{UserID: userID, Badges: []string{}, CompletedThemes: []string{}}
		s.profiles[userID] = p
	}
	return p
}

func copyProfile(p *domain.Profile) domain.Profile {
	out := *p
	out.Badges = append([]string{}, p.Badges...)
	out.CompletedThemes = append([]string{}, p.CompletedThemes...)
	return out
}
