package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"academy-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type sessionRow struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID          string     `bun:"id,pk"`
	Kind        string     `bun:"kind,notnull"`
	OwnerID     string     `bun:"owner_id,notnull"`
	ContentID   string     `bun:"content_id,notnull"`
	Items       []string   `bun:"items,type:jsonb,notnull"`
	ItemCount   int        `bun:"item_count,notnull"`
	Cursor      int        `bun:"cursor_pos,notnull"`
	Score       int        `bun:"score,notnull"`
	Answers     []int      `bun:"answers,type:jsonb,notnull"`
	Completed   bool       `bun:"completed,notnull"`
	StartedAt   time.Time  `bun:"started_at,notnull"`
	CompletedAt *time.Time `bun:"completed_at,nullzero"`
}

func toRow(s domain.Session) *sessionRow {
	answers := s.Answers
	if answers == nil {
		answers = []int{}
	}
	return &sessionRow{
		ID:          s.ID,
		Kind:        string(s.Kind),
		OwnerID:     s.OwnerID,
		ContentID:   s.ContentRef,
		Items:       s.Items,
		ItemCount:   len(s.Items),
		Cursor:      s.Cursor,
		Score:       s.Score,
		Answers:     answers,
		Completed:   s.Completed,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
	}
}

func (r *sessionRow) toSession() domain.Session {
	answers := r.Answers
	if answers == nil {
		answers = []int{}
	}
	return domain.Session{
		ID:          r.ID,
		Kind:        domain.Kind(r.Kind),
		OwnerID:     r.OwnerID,
		ContentRef:  r.ContentID,
		Items:       r.Items,
		Cursor:      r.Cursor,
		Score:       r.Score,
		Answers:     answers,
		Completed:   r.Completed,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
}

// SessionStore persists sessions in Postgres via bun.
// Advance is a conditional UPDATE guarded by the expected cursor, so a stale writer
// matches no row instead of overwriting a newer state.
type SessionStore struct {
	db *bun.DB
}

func NewSessionStore(db *bun.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Create(ctx context.Context, session domain.Session) error {
	if _, err := s.db.NewInsert().Model(toRow(session)).Exec(ctx); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (domain.Session, error) {
	row := new(sessionRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	return row.toSession(), nil
}

func (s *SessionStore) Advance(ctx context.Context, id string, step domain.Step) (domain.Session, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	next, err := current.Advance(step)
	if err != nil {
		return domain.Session{}, err
	}

	res, err := s.db.NewUpdate().
		Model(toRow(next)).
		Column("cursor_pos", "score", "answers", "completed", "completed_at").
		Where("id = ?", id).
		Where("cursor_pos = ?", step.ExpectedCursor).
		Where("NOT completed").
		Exec(ctx)
	if err != nil {
		return domain.Session{}, fmt.Errorf("advance session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Session{}, fmt.Errorf("advance session: %w", err)
	}
	if n == 1 {
		return next, nil
	}

	// Lost the race; report what the winner left behind.
	latest, err := s.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	if latest.Completed {
		return domain.Session{}, domain.ErrAlreadyCompleted
	}
	return domain.Session{}, fmt.Errorf("concurrent update of session %q: %w", id, domain.ErrOutOfSequence)
}
