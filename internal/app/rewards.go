package app

import (
	"context"
	"fmt"
	"log/slog"

	"academy-quiz-service/internal/domain"
)

// RewardsConfig holds the fixed award amounts per event type.
type RewardsConfig struct {
	XPPerCorrectAnswer    int
	XPPerActivityCreation int
	XPPerBudgetSimulation int
	// MasteryThreshold is the percentage that unlocks a theme's mastery badge.
	MasteryThreshold float64
	FirstQuizBadge   string
	CreatorBadge     string
	BudgetBadge      string
	ThemeBadges      map[string]string
}

// DefaultRewardsConfig mirrors the stock game configuration.
func DefaultRewardsConfig() RewardsConfig {
	return RewardsConfig{
		XPPerCorrectAnswer:    20,
		XPPerActivityCreation: 50,
		XPPerBudgetSimulation: 30,
		MasteryThreshold:      80,
		FirstQuizBadge:        "first_quiz",
		CreatorBadge:          "creator",
		BudgetBadge:           "budget_wizard",
		ThemeBadges: map[string]string{
			"legislation":       "legislation_master",
			"animation_types":   "animation_expert",
			"budget_management": "budget_wizard",
		},
	}
}

// Rewards turns completion and creation events into ledger mutations.
// It implements EventPublisher for in-process delivery.
type Rewards struct {
	ledger *Ledger
	cfg    RewardsConfig
	logger *slog.Logger
}

func NewRewards(ledger *Ledger, cfg RewardsConfig, logger *slog.Logger) *Rewards {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rewards{ledger: ledger, cfg: cfg, logger: logger}
}

// Publish handles the event synchronously.
func (r *Rewards) Publish(ctx context.Context, event domain.Event) error {
	_, err := r.Handle(ctx, event)
	return err
}

// Handle applies the awards for one event and reports what changed. Handling the same
// event again is safe: XP is applied once per event key and badge, theme and history
// inserts are idempotent, so a redelivered event completes a partial run.
func (r *Rewards) Handle(ctx context.Context, event domain.Event) (domain.Outcome, error) {
	outcome := domain.Outcome{UserID: event.UserID, BadgesEarned: []string{}}
	key := event.Key()
	if key == "" {
		return outcome, fmt.Errorf("event without id: %w", domain.ErrInvalidArgument)
	}
	var err error
	switch event.Type {
	case domain.EventSessionCompleted:
		if event.Result == nil {
			return outcome, fmt.Errorf("completion event without result: %w", domain.ErrInvalidArgument)
		}
		err = r.sessionCompleted(ctx, key, event.UserID, *event.Result, &outcome)
	case domain.EventActivityCreated:
		err = r.activityCreated(ctx, key, event.UserID, &outcome)
	default:
		return outcome, fmt.Errorf("event type %q: %w", event.Type, domain.ErrInvalidArgument)
	}
	if err != nil {
		return outcome, err
	}
	if err := r.ledger.RecordProgress(ctx, domain.RecordOf(event, outcome)); err != nil {
		return outcome, err
	}

	// Everything is committed at this point; a failed read only degrades the report.
	if standing, err := r.ledger.Profile(ctx, event.UserID); err != nil {
		r.logger.Warn("read standing after rewards", "user_id", event.UserID, "error", err)
	} else {
		outcome.Standing = standing
	}
	r.logger.Info("rewards applied",
		"user_id", event.UserID,
		"event", event.Type,
		"event_id", key,
		"xp_earned", outcome.XPEarned,
		"badges", outcome.BadgesEarned,
		"level", outcome.Standing.Level)
	return outcome, nil
}

func (r *Rewards) sessionCompleted(ctx context.Context, key, userID string, result domain.Result, out *domain.Outcome) error {
	switch result.Content.Kind {
	case domain.KindQuiz:
		if err := r.award(ctx, key, userID, result.Score*r.cfg.XPPerCorrectAnswer, out); err != nil {
			return err
		}
		if err := r.grant(ctx, userID, r.cfg.FirstQuizBadge, out); err != nil {
			return err
		}
		if result.Passed {
			if _, err := r.ledger.MarkThemeCompleted(ctx, userID, result.Content.ID); err != nil {
				return err
			}
		}
		if result.Percentage >= r.cfg.MasteryThreshold {
			return r.grant(ctx, userID, r.cfg.ThemeBadges[result.Content.ID], out)
		}
	case domain.KindBudget:
		if err := r.award(ctx, key, userID, r.cfg.XPPerBudgetSimulation, out); err != nil {
			return err
		}
		if result.Percentage >= r.cfg.MasteryThreshold {
			return r.grant(ctx, userID, r.cfg.BudgetBadge, out)
		}
	default:
		return fmt.Errorf("content kind %q: %w", result.Content.Kind, domain.ErrInvalidArgument)
	}
	return nil
}

func (r *Rewards) activityCreated(ctx context.Context, key, userID string, out *domain.Outcome) error {
	if err := r.award(ctx, key, userID, r.cfg.XPPerActivityCreation, out); err != nil {
		return err
	}
	return r.grant(ctx, userID, r.cfg.CreatorBadge, out)
}

// award credits amount to the event. XPEarned reports the event's award even when a
// previous delivery already applied it.
func (r *Rewards) award(ctx context.Context, key, userID string, amount int, out *domain.Outcome) error {
	if amount <= 0 {
		return nil
	}
	if _, _, err := r.ledger.AwardXPOnce(ctx, userID, key, amount); err != nil {
		return err
	}
	out.XPEarned += amount
	return nil
}

func (r *Rewards) grant(ctx context.Context, userID, badgeID string, out *domain.Outcome) error {
	if badgeID == "" {
		return nil
	}
	added, err := r.ledger.GrantBadge(ctx, userID, badgeID)
	if err != nil {
		return err
	}
	if added {
		out.BadgesEarned = append(out.BadgesEarned, badgeID)
	}
	return nil
}
