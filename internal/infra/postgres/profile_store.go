package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"academy-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type profileRow struct {
	bun.BaseModel `bun:"table:profiles"`

	UserID string `bun:"user_id,pk"`
	XP     int    `bun:"xp,notnull"`
}

type badgeRow struct {
	bun.BaseModel `bun:"table:profile_badges"`

	UserID string `bun:"user_id,pk"`
	Badge  string `bun:"badge,pk"`
}

type themeRow struct {
	bun.BaseModel `bun:"table:profile_themes"`

	UserID string `bun:"user_id,pk"`
	Theme  string `bun:"theme,pk"`
}

// ProfileStore keeps XP, badges and completed themes in Postgres.
// Each mutation is a single upsert statement.
type ProfileStore struct {
	db *bun.DB
}

func NewProfileStore(db *bun.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) Get(ctx context.Context, userID string) (domain.Profile, error) {
	profile := domain.Profile{UserID: userID, Badges: []string{}, CompletedThemes: []string{}}

	row := new(profileRow)
	err := s.db.NewSelect().Model(row).Where("user_id = ?", userID).Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return domain.Profile{}, fmt.Errorf("get profile: %w", err)
	default:
		profile.XP = row.XP
	}

	err = s.db.NewSelect().Model((*badgeRow)(nil)).Column("badge").
		Where("user_id = ?", userID).Order("badge ASC").Scan(ctx, &profile.Badges)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("get badges: %w", err)
	}
	err = s.db.NewSelect().Model((*themeRow)(nil)).Column("theme").
		Where("user_id = ?", userID).Order("theme ASC").Scan(ctx, &profile.CompletedThemes)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("get themes: %w", err)
	}
	return profile, nil
}

func (s *ProfileStore) AddXP(ctx context.Context, userID string, amount int) (domain.Profile, error) {
	var xp int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO profiles (user_id, xp) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET xp = profiles.xp + EXCLUDED.xp
		RETURNING xp`, userID, amount).Scan(&xp)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("add xp: %w", err)
	}
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	profile.XP = xp
	return profile, nil
}

// ApplyAward records the award id and adds the XP in one statement; a conflicting
// award id inserts nothing, so the profile upsert sees no rows.
func (s *ProfileStore) ApplyAward(ctx context.Context, userID, awardID string, amount int) (domain.Profile, bool, error) {
	var xp int
	err := s.db.QueryRowContext(ctx, `
		WITH awarded AS (
			INSERT INTO xp_awards (award_id, user_id, amount) VALUES (?, ?, ?)
			ON CONFLICT (award_id) DO NOTHING
			RETURNING user_id, amount
		)
		INSERT INTO profiles (user_id, xp) SELECT user_id, amount FROM awarded
		ON CONFLICT (user_id) DO UPDATE SET xp = profiles.xp + EXCLUDED.xp
		RETURNING xp`, awardID, userID, amount).Scan(&xp)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		profile, err := s.Get(ctx, userID)
		return profile, false, err
	case err != nil:
		return domain.Profile{}, false, fmt.Errorf("apply award: %w", err)
	}
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return domain.Profile{}, false, err
	}
	profile.XP = xp
	return profile, true, nil
}

func (s *ProfileStore) AddBadge(ctx context.Context, userID, badgeID string) (bool, error) {
	res, err := s.db.NewInsert().Model(&badgeRow{UserID: userID, Badge: badgeID}).
		On("CONFLICT DO NOTHING").Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("add badge: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (s *ProfileStore) AddCompletedTheme(ctx context.Context, userID, themeID string) (bool, error) {
	res, err := s.db.NewInsert().Model(&themeRow{UserID: userID, Theme: themeID}).
		On("CONFLICT DO NOTHING").Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("add completed theme: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
