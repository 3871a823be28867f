package app

import (
	"context"
	"fmt"

	"academy-quiz-service/internal/domain"
)

// RecordActivity reports that userID authored an activity. Unlike completion events,
// a failed publish is returned to the caller since nothing else was written.
func (s *SessionService) RecordActivity(ctx context.Context, userID, activityID string) error {
	if userID == "" || activityID == "" {
		return fmt.Errorf("user and activity are required: %w", domain.ErrInvalidArgument)
	}
	if s.events == nil {
		return nil
	}
	event := domain.Event{
		ID:         s.newID(),
		Type:       domain.EventActivityCreated,
		UserID:     userID,
		ActivityID: activityID,
		At:         s.now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		return err
	}
	s.logger.Info("activity recorded", "user_id", userID, "activity_id", activityID)
	return nil
}
