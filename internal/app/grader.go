package app

import (
	"context"
	"errors"
	"fmt"

	"academy-quiz-service/internal/domain"
)

// Submit grades one answer and advances the session.
// Answers must arrive in item order; the store rejects concurrent writers at the same cursor.
func (s *SessionService) Submit(ctx context.Context, sessionID string, ref domain.ItemRef, answer int) (domain.GradeResult, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.GradeResult{}, err
	}
	if session.Completed {
		return domain.GradeResult{}, domain.ErrAlreadyCompleted
	}

	content, err := s.catalog.GetContent(ctx, session.Content())
	if err != nil {
		return domain.GradeResult{}, err
	}
	question, err := ref.Resolve(content)
	if err != nil {
		return domain.GradeResult{}, err
	}
	expected, ok := session.Expected()
	if !ok {
		return domain.GradeResult{}, domain.ErrAlreadyCompleted
	}
	if question.ID != expected {
		return domain.GradeResult{}, fmt.Errorf("expected %q at position %d, got %q: %w",
			expected, session.Cursor, question.ID, domain.ErrOutOfSequence)
	}

	correct := answer == question.CorrectAnswer
	step := domain.Step{
		ExpectedCursor: session.Cursor,
		Answer:         answer,
		Correct:        correct,
		At:             s.now().UTC(),
	}

	// Once accepted, the transition runs to completion even if the caller goes away.
	writeCtx := context.WithoutCancel(ctx)
	updated, err := s.sessions.Advance(writeCtx, sessionID, step)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			s.recoverCompletion(writeCtx, sessionID, step)
		}
		return domain.GradeResult{}, err
	}

	s.notifier.Broadcast(updated.Progress())
	if updated.Completed {
		s.completed(writeCtx, updated)
	}

	return domain.GradeResult{
		IsCorrect:     correct,
		CorrectAnswer: question.CorrectAnswer,
		Explanation:   question.Explanation,
		Score:         updated.Score,
		Completed:     updated.Completed,
	}, nil
}

// recoverCompletion handles a final Advance whose reply was lost: if the store shows
// that this step completed the session, the completion event is still published.
// The event id is fixed per session, so a second publication pays nothing twice.
func (s *SessionService) recoverCompletion(ctx context.Context, sessionID string, step domain.Step) {
	stored, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		s.logger.Warn("re-read session after failed advance", "session_id", sessionID, "error", err)
		return
	}
	if !stored.Completed || len(stored.Answers)-1 != step.ExpectedCursor {
		return
	}
	s.logger.Warn("advance committed despite store error", "session_id", sessionID, "cursor", step.ExpectedCursor)
	s.notifier.Broadcast(stored.Progress())
	s.completed(ctx, stored)
}

// completed runs once per session: only the writer that moved the cursor to the end
// observes the completed state from Advance, or recovers it after a lost reply.
func (s *SessionService) completed(ctx context.Context, session domain.Session) {
	result, err := domain.Summarize(session)
	if err != nil {
		s.logger.Error("summarize completed session", "session_id", session.ID, "error", err)
		return
	}
	s.logger.Info("session completed",
		"session_id", session.ID,
		"owner_id", session.OwnerID,
		"score", result.Score,
		"total", result.Total,
		"passed", result.Passed)

	if s.events == nil {
		return
	}
	event := domain.Event{
		ID:     domain.CompletionEventID(session.ID),
		Type:   domain.EventSessionCompleted,
		UserID: session.OwnerID,
		Result: &result,
		At:     result.CompletedAt,
	}
	if err := s.events.Publish(ctx, event); err != nil {
		// The session is already complete; the ledger update is reported, not rolled back.
		s.logger.Error("publish completion event", "session_id", session.ID, "error", err)
	}
}
