package resilient

import (
	"context"

	"academy-quiz-service/internal/app"
	"academy-quiz-service/internal/domain"
)

// SessionRepository guards an app.SessionRepository. Only Get is retried.
type SessionRepository struct {
	inner   app.SessionRepository
	read    *guard[domain.Session]
	write   *guard[domain.Session]
	creates *guard[struct{}]
}

func NewSessionRepository(inner app.SessionRepository, p Policy) *SessionRepository {
	return &SessionRepository{
		inner:   inner,
		read:    newGuard[domain.Session]("session get", p, true),
		write:   newGuard[domain.Session]("session advance", p, false),
		creates: newGuard[struct{}]("session create", p, false),
	}
}

func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	_, err := r.creates.run(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.inner.Create(ctx, session)
	})
	return err
}

func (r *SessionRepository) Get(ctx context.Context, id string) (domain.Session, error) {
	return r.read.run(ctx, func(ctx context.Context) (domain.Session, error) {
		return r.inner.Get(ctx, id)
	})
}

func (r *SessionRepository) Advance(ctx context.Context, id string, step domain.Step) (domain.Session, error) {
	return r.write.run(ctx, func(ctx context.Context) (domain.Session, error) {
		return r.inner.Advance(ctx, id, step)
	})
}

// CatalogRepository guards catalog reads.
type CatalogRepository struct {
	inner app.CatalogRepository
	read  *guard[domain.Content]
}

func NewCatalogRepository(inner app.CatalogRepository, p Policy) *CatalogRepository {
	return &CatalogRepository{inner: inner, read: newGuard[domain.Content]("catalog get", p, true)}
}

func (r *CatalogRepository) GetContent(ctx context.Context, ref domain.ContentRef) (domain.Content, error) {
	return r.read.run(ctx, func(ctx context.Context) (domain.Content, error) {
		return r.inner.GetContent(ctx, ref)
	})
}

// ProfileRepository guards an app.ProfileRepository. Get and ApplyAward are retried;
// plain XP increments are not idempotent and are never retried.
type ProfileRepository struct {
	inner  app.ProfileRepository
	read   *guard[domain.Profile]
	addXP  *guard[domain.Profile]
	award  *guard[awardResult]
	insert *guard[bool]
}

type awardResult struct {
	profile domain.Profile
	applied bool
}

func NewProfileRepository(inner app.ProfileRepository, p Policy) *ProfileRepository {
	return &ProfileRepository{
		inner:  inner,
		read:   newGuard[domain.Profile]("profile get", p, true),
		addXP:  newGuard[domain.Profile]("profile add xp", p, false),
		award:  newGuard[awardResult]("profile apply award", p, true),
		insert: newGuard[bool]("profile insert", p, false),
	}
}

func (r *ProfileRepository) Get(ctx context.Context, userID string) (domain.Profile, error) {
	return r.read.run(ctx, func(ctx context.Context) (domain.Profile, error) {
		return r.inner.Get(ctx, userID)
	})
}

func (r *ProfileRepository) AddXP(ctx context.Context, userID string, amount int) (domain.Profile, error) {
	return r.addXP.run(ctx, func(ctx context.Context) (domain.Profile, error) {
		return r.inner.AddXP(ctx, userID, amount)
	})
}

func (r *ProfileRepository) ApplyAward(ctx context.Context, userID, awardID string, amount int) (domain.Profile, bool, error) {
	res, err := r.award.run(ctx, func(ctx context.Context) (awardResult, error) {
		profile, applied, err := r.inner.ApplyAward(ctx, userID, awardID, amount)
		return awardResult{profile: profile, applied: applied}, err
	})
	return res.profile, res.applied, err
}

func (r *ProfileRepository) AddBadge(ctx context.Context, userID, badgeID string) (bool, error) {
	return r.insert.run(ctx, func(ctx context.Context) (bool, error) {
		return r.inner.AddBadge(ctx, userID, badgeID)
	})
}

func (r *ProfileRepository) AddCompletedTheme(ctx context.Context, userID, themeID string) (bool, error) {
	return r.insert.run(ctx, func(ctx context.Context) (bool, error) {
		return r.inner.AddCompletedTheme(ctx, userID, themeID)
	})
}

// ProgressRepository guards an app.ProgressRepository. Appends are keyed by event id,
// so both calls are retried.
type ProgressRepository struct {
	inner  app.ProgressRepository
	list   *guard[[]domain.ProgressRecord]
	append *guard[bool]
}

func NewProgressRepository(inner app.ProgressRepository, p Policy) *ProgressRepository {
	return &ProgressRepository{
		inner:  inner,
		list:   newGuard[[]domain.ProgressRecord]("progress list", p, true),
		append: newGuard[bool]("progress append", p, true),
	}
}

func (r *ProgressRepository) Append(ctx context.Context, rec domain.ProgressRecord) (bool, error) {
	return r.append.run(ctx, func(ctx context.Context) (bool, error) {
		return r.inner.Append(ctx, rec)
	})
}

func (r *ProgressRepository) List(ctx context.Context, userID string) ([]domain.ProgressRecord, error) {
	return r.list.run(ctx, func(ctx context.Context) ([]domain.ProgressRecord, error) {
		return r.inner.List(ctx, userID)
	})
}
