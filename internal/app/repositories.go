package app

import (
	"context"

	"academy-quiz-service/internal/domain"
)

// SessionRepository abstracts how sessions are stored (in-memory, Redis, Postgres).
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, id string) (domain.Session, error)
	// Advance applies step as one atomic conditional update: it succeeds only if the stored
	// cursor still equals step.ExpectedCursor and the session is not completed. Losers of a
	// race get domain.ErrOutOfSequence or domain.ErrAlreadyCompleted and nothing is written.
	Advance(ctx context.Context, id string, step domain.Step) (domain.Session, error)
}

// CatalogRepository loads themes and scenarios (from cache/backing store).
type CatalogRepository interface {
	GetContent(ctx context.Context, ref domain.ContentRef) (domain.Content, error)
}

// ProfileRepository persists gamification state. Each method is a single atomic
// mutation of one user's document; profiles are created on first write.
type ProfileRepository interface {
	Get(ctx context.Context, userID string) (domain.Profile, error)
	AddXP(ctx context.Context, userID string, amount int) (domain.Profile, error)
	// ApplyAward adds amount once per awardID, recording the id in the same atomic write.
	// A repeated awardID leaves XP unchanged and reports false.
	ApplyAward(ctx context.Context, userID, awardID string, amount int) (domain.Profile, bool, error)
	// AddBadge and AddCompletedTheme report whether the id was newly inserted.
	AddBadge(ctx context.Context, userID, badgeID string) (bool, error)
	AddCompletedTheme(ctx context.Context, userID, themeID string) (bool, error)
}

// ProgressRepository keeps the per-user history of handled events.
type ProgressRepository interface {
	// Append stores rec unless a record with the same EventID exists; it reports whether
	// rec was stored.
	Append(ctx context.Context, rec domain.ProgressRecord) (bool, error)
	// List returns the user's records, oldest first.
	List(ctx context.Context, userID string) ([]domain.ProgressRecord, error)
}

// EventPublisher forwards gamification events to the ledger, in process or over a broker.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
