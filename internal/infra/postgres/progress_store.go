package postgres

import (
	"context"
	"fmt"
	"time"

	"academy-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type progressRow struct {
	bun.BaseModel `bun:"table:user_progress,alias:p"`

	EventID      string    `bun:"event_id,pk"`
	UserID       string    `bun:"user_id,notnull"`
	Event        string    `bun:"event,notnull"`
	Kind         string    `bun:"kind,nullzero"`
	ContentID    string    `bun:"content_id,nullzero"`
	ActivityID   string    `bun:"activity_id,nullzero"`
	Score        int       `bun:"score,notnull"`
	Total        int       `bun:"total,notnull"`
	Completed    bool      `bun:"completed,notnull"`
	XPEarned     int       `bun:"xp_earned,notnull"`
	BadgesEarned []string  `bun:"badges_earned,type:jsonb,notnull"`
	RecordedAt   time.Time `bun:"recorded_at,notnull"`
}

// ProgressStore appends progress records to user_progress, one row per event id.
type ProgressStore struct {
	db *bun.DB
}

func NewProgressStore(db *bun.DB) *ProgressStore {
	return &ProgressStore{db: db}
}

func (s *ProgressStore) Append(ctx context.Context, rec domain.ProgressRecord) (bool, error) {
	badges := rec.BadgesEarned
	if badges == nil {
		badges = []string{}
	}
	row := &progressRow{
		EventID:      rec.EventID,
		UserID:       rec.UserID,
		Event:        string(rec.Event),
		Kind:         string(rec.Kind),
		ContentID:    rec.ContentID,
		ActivityID:   rec.ActivityID,
		Score:        rec.Score,
		Total:        rec.Total,
		Completed:    rec.Completed,
		XPEarned:     rec.XPEarned,
		BadgesEarned: badges,
		RecordedAt:   rec.At,
	}
	res, err := s.db.NewInsert().Model(row).On("CONFLICT (event_id) DO NOTHING").Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("append progress: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (s *ProgressStore) List(ctx context.Context, userID string) ([]domain.ProgressRecord, error) {
	var rows []progressRow
	err := s.db.NewSelect().Model(&rows).
		Where("user_id = ?", userID).
		Order("recorded_at ASC", "event_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	records := make([]domain.ProgressRecord, len(rows))
	for i, r := range rows {
		records[i] = domain.ProgressRecord{
			EventID:      r.EventID,
			UserID:       r.UserID,
			Event:        domain.EventType(r.Event),
			Kind:         domain.Kind(r.Kind),
			ContentID:    r.ContentID,
			ActivityID:   r.ActivityID,
			Score:        r.Score,
			Total:        r.Total,
			Completed:    r.Completed,
			XPEarned:     r.XPEarned,
			BadgesEarned: r.BadgesEarned,
			At:           r.RecordedAt,
		}
	}
	return records, nil
}
