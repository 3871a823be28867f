package app

import (
	"context"

	"academy-quiz-service/internal/domain"
)

// Results returns the verdict of a completed session. It reads only stored fields,
// so repeated calls return the same result.
func (s *SessionService) Results(ctx context.Context, sessionID string) (domain.Result, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Result{}, err
	}
	return domain.Summarize(session)
}
