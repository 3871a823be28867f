package app

import (
	"context"
	"fmt"
	"log/slog"

	"academy-quiz-service/internal/domain"
)

// Ledger is the only path that mutates a user's gamification state.
// Level is never written: every returned Standing derives it from XP.
type Ledger struct {
	profiles   ProfileRepository
	history    ProgressRepository
	xpPerLevel int
	logger     *slog.Logger
}

func NewLedger(profiles ProfileRepository, xpPerLevel int, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{profiles: profiles, xpPerLevel: xpPerLevel, logger: logger}
}

// WithHistory makes the ledger keep a progress record per handled event.
func (l *Ledger) WithHistory(history ProgressRepository) *Ledger {
	l.history = history
	return l
}

// AwardXP adds amount to the user's XP. The ledger does not deduplicate awards;
// callers invoke it once per qualifying event.
func (l *Ledger) AwardXP(ctx context.Context, userID string, amount int) (domain.Standing, error) {
	if userID == "" {
		return domain.Standing{}, fmt.Errorf("user id required: %w", domain.ErrInvalidArgument)
	}
	if amount < 0 {
		return domain.Standing{}, fmt.Errorf("xp amount %d: %w", amount, domain.ErrInvalidArgument)
	}
	profile, err := l.profiles.AddXP(ctx, userID, amount)
	if err != nil {
		return domain.Standing{}, err
	}
	return l.standing(profile, amount), nil
}

// AwardXPOnce adds amount at most once per awardID. Replays of an already applied
// award return the current standing and false.
func (l *Ledger) AwardXPOnce(ctx context.Context, userID, awardID string, amount int) (domain.Standing, bool, error) {
	if userID == "" || awardID == "" {
		return domain.Standing{}, false, fmt.Errorf("user and award ids required: %w", domain.ErrInvalidArgument)
	}
	if amount < 0 {
		return domain.Standing{}, false, fmt.Errorf("xp amount %d: %w", amount, domain.ErrInvalidArgument)
	}
	profile, applied, err := l.profiles.ApplyAward(ctx, userID, awardID, amount)
	if err != nil {
		return domain.Standing{}, false, err
	}
	if !applied {
		l.logger.Info("award already applied", "user_id", userID, "award_id", awardID)
		return domain.StandingOf(profile, l.xpPerLevel), false, nil
	}
	return l.standing(profile, amount), true, nil
}

func (l *Ledger) standing(profile domain.Profile, added int) domain.Standing {
	standing := domain.StandingOf(profile, l.xpPerLevel)
	if prev := domain.LevelFor(profile.XP-added, l.xpPerLevel); standing.Level > prev {
		l.logger.Info("level up", "user_id", profile.UserID, "level", standing.Level, "xp", standing.XP)
	}
	return standing
}

// GrantBadge adds badgeID to the user's badges if absent.
func (l *Ledger) GrantBadge(ctx context.Context, userID, badgeID string) (bool, error) {
	if userID == "" || badgeID == "" {
		return false, fmt.Errorf("user and badge ids required: %w", domain.ErrInvalidArgument)
	}
	added, err := l.profiles.AddBadge(ctx, userID, badgeID)
	if err != nil {
		return false, err
	}
	if added {
		l.logger.Info("badge granted", "user_id", userID, "badge", badgeID)
	}
	return added, nil
}

// MarkThemeCompleted adds themeID to the user's completed themes if absent.
func (l *Ledger) MarkThemeCompleted(ctx context.Context, userID, themeID string) (bool, error) {
	if userID == "" || themeID == "" {
		return false, fmt.Errorf("user and theme ids required: %w", domain.ErrInvalidArgument)
	}
	return l.profiles.AddCompletedTheme(ctx, userID, themeID)
}

// Profile reads the user's standing. Unknown users read as level 1 with no XP.
func (l *Ledger) Profile(ctx context.Context, userID string) (domain.Standing, error) {
	profile, err := l.profiles.Get(ctx, userID)
	if err != nil {
		return domain.Standing{}, err
	}
	return domain.StandingOf(profile, l.xpPerLevel), nil
}

// RecordProgress appends rec to the user's history. Without a history store it is a no-op.
func (l *Ledger) RecordProgress(ctx context.Context, rec domain.ProgressRecord) error {
	if l.history == nil {
		return nil
	}
	if rec.UserID == "" || rec.EventID == "" {
		return fmt.Errorf("user and event ids required: %w", domain.ErrInvalidArgument)
	}
	if rec.BadgesEarned == nil {
		rec.BadgesEarned = []string{}
	}
	_, err := l.history.Append(ctx, rec)
	return err
}

// History lists the user's progress records, oldest first.
func (l *Ledger) History(ctx context.Context, userID string) ([]domain.ProgressRecord, error) {
	if l.history == nil {
		return []domain.ProgressRecord{}, nil
	}
	records, err := l.history.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.ProgressRecord{}
	}
	return records, nil
}
