package app_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"academy-quiz-service/internal/app"
	"academy-quiz-service/internal/domain"
	"academy-quiz-service/internal/infra/memory"
	"golang.org/x/sync/errgroup"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	service  *app.SessionService
	sessions *memory.SessionStore
	profiles *memory.ProfileStore
	ledger   *app.Ledger
	events   *recordingPublisher
}

func newFixture(t *testing.T, content ...domain.Content) *fixture {
	t.Helper()
	sessions := memory.NewSessionStore()
	profiles := memory.NewProfileStore()
	catalog := memory.NewCatalogRepository(memory.NewStaticLoader(content...), 5*time.Minute)
	ledger := app.NewLedger(profiles, 100, testLogger)
	events := &recordingPublisher{next: app.NewRewards(ledger, app.DefaultRewardsConfig(), testLogger)}
	service := app.NewSessionService(sessions, catalog, events, app.NewRandShuffler(1), testLogger)
	service.SetClock(func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) })
	return &fixture{service: service, sessions: sessions, profiles: profiles, ledger: ledger, events: events}
}

type recordingPublisher struct {
	next   app.EventPublisher
	events atomic.Int32
}

func (p *recordingPublisher) Publish(ctx context.Context, event domain.Event) error {
	p.events.Add(1)
	return p.next.Publish(ctx, event)
}

// theme builds a quiz theme whose question i has correct answer i%4.
func theme(id string, n int) domain.Content {
	questions := make([]domain.Question, n)
	for i := range questions {
		questions[i] = domain.Question{
			ID:            fmt.Sprintf("%s_%d", id, i),
			Prompt:        fmt.Sprintf("question %d", i),
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: i % 4,
			Explanation:   fmt.Sprintf("because %d", i),
		}
	}
	return domain.Content{Kind: domain.KindQuiz, ID: id, Title: id, Questions: questions}
}

func correctAnswer(c domain.Content, id string) int {
	q, _ := c.Question(id)
	return q.CorrectAnswer
}

func TestStartShufflesAllItems(t *testing.T) {
	ctx := context.Background()
	content := theme("legislation", 10)
	f := newFixture(t, content)

	session, err := f.service.Start(ctx, domain.KindQuiz, "u1", "legislation")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.Cursor != 0 || session.Score != 0 || session.Completed || len(session.Answers) != 0 {
		t.Fatalf("unexpected initial state %+v", session)
	}
	got := slices.Clone(session.Items)
	slices.Sort(got)
	want := content.ItemIDs()
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Fatalf("items are not a permutation of the theme: %v", session.Items)
	}

	stored, err := f.sessions.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("stored session: %v", err)
	}
	if !slices.Equal(stored.Items, session.Items) {
		t.Fatalf("stored order differs from returned order")
	}
}

func TestStartIsDeterministicWithSeededSource(t *testing.T) {
	ctx := context.Background()
	content := theme("legislation", 10)
	orders := make([][]string, 2)
	for i := range orders {
		f := newFixture(t, content)
		s, err := f.service.Start(ctx, domain.KindQuiz, "u1", "legislation")
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		orders[i] = s.Items
	}
	if !slices.Equal(orders[0], orders[1]) {
		t.Fatalf("same seed produced different orders: %v vs %v", orders[0], orders[1])
	}
}

// countingSessions counts Create calls reaching the store.
type countingSessions struct {
	*memory.SessionStore
	creates atomic.Int32
}

func (c *countingSessions) Create(ctx context.Context, session domain.Session) error {
	c.creates.Add(1)
	return c.SessionStore.Create(ctx, session)
}

func TestStartEmptyThemeIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := &countingSessions{SessionStore: memory.NewSessionStore()}
	catalog := memory.NewCatalogRepository(memory.NewStaticLoader(theme("empty", 0)), time.Minute)
	service := app.NewSessionService(store, catalog, nil, app.NewRandShuffler(1), testLogger)

	_, err := service.Start(ctx, domain.KindQuiz, "u1", "empty")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = service.Start(ctx, domain.KindQuiz, "u1", "missing")
	if !errors.Is(err, domain.ErrContentNotFound) {
		t.Fatalf("expected content not found, got %v", err)
	}
	if n := store.creates.Load(); n != 0 {
		t.Fatalf("expected no session persisted, got %d creates", n)
	}
}

func TestAllCorrectPasses(t *testing.T) {
	ctx := context.Background()
	content := theme("legislation", 5)
	f := newFixture(t, content)

	session, _ := f.service.Start(ctx, domain.KindQuiz, "u1", "legislation")
	for i, id := range session.Items {
		res, err := f.service.Submit(ctx, session.ID, domain.ByID(id), correctAnswer(content, id))
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if !res.IsCorrect || res.Score != i+1 || res.Completed != (i == 4) {
			t.Fatalf("unexpected grade at %d: %+v", i, res)
		}
	}

	result, err := f.service.Results(ctx, session.ID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if result.Score != 5 || result.Total != 5 || result.Percentage != 100 || !result.Passed {
		t.Fatalf("unexpected result %+v", result)
	}
	again, _ := f.service.Results(ctx, session.ID)
	if again != result {
		t.Fatalf("results not idempotent")
	}
}

func TestSixOfTenFails(t *testing.T) {
	ctx := context.Background()
	content := theme("legislation", 10)
	f := newFixture(t, content)

	session, _ := f.service.Start(ctx, domain.KindQuiz, "u1", "legislation")
	for i, id := range session.Items {
		answer := correctAnswer(content, id)
		if i >= 6 {
			answer = (answer + 1) % 4
		}
		if _, err := f.service.Submit(ctx, session.ID, domain.ByID(id), answer); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	result, err := f.service.Results(ctx, session.ID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if result.Percentage != 60 || result.Passed {
		t.Fatalf("expected 60%% failed, got %+v", result)
	}
}

func TestSubmitReturnsCatalogExplanation(t *testing.T) {
	ctx := context.Background()
	content := theme("legislation", 2)
	f := newFixture(t, content)

	session, _ := f.service.Start(ctx, domain.KindQuiz, "u1", "legislation")
	id := session.Items[0]
	wrong := (correctAnswer(content, id) + 1) % 4
	res, err := f.service.Submit(ctx, session.ID, domain.ByID(id), wrong)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	q, _ := content.Question(id)
	if res.IsCorrect || res.CorrectAnswer != q.CorrectAnswer || res.Explanation != q.Explanation || res.Score != 0 {
		t.Fatalf("unexpected grade %+v", res)
	}
}

func TestSubmitOutOfSequence(t *testing.T) {
	ctx := context.Background()
	content := theme("legislation", 3)
	f := newFixture(t, content)

	session, _ := f.service.Start(ctx, domain.KindQuiz, "u1", "legislation")
	_, err := f.service.Submit(ctx, session.ID, domain.ByID(session.Items[1]), 0)
	if !errors.Is(err, domain.ErrOutOfSequence) {
		t.Fatalf("expected out of sequence, got %v", err)
	}
	_, err = f.service.Submit(ctx, session.ID, domain.ByID("unknown"), 0)
	if !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}
	stored, _ := f.sessions.Get(ctx, session.ID)
	if stored.Cursor != 0 || len(stored.Answers) != 0 {
		t.Fatalf("rejected answers changed the session: %+v", stored)
	}
}

func TestSubmitAfterCompletionLeavesSessionUnchanged(t *testing.T) {
	ctx := context.Background()
	content := theme("legislation", 1)
	f := newFixture(t, content)

	session, _ := f.service.Start(ctx, domain.KindQuiz, "u1", "legislation")
	id := session.Items[0]
	if _, err := f.service.Submit(ctx, session.ID, domain.ByID(id), correctAnswer(content, id)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	before, _ := f.sessions.Get(ctx, session.ID)

	_, err := f.service.Submit(ctx, session.ID, domain.ByID(id), 0)
	if !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Fatalf("expected already completed, got %v", err)
	}
	after, _ := f.sessions.Get(ctx, session.ID)
	if after.Cursor != before.Cursor || after.Score != before.Score || !after.CompletedAt.Equal(*before.CompletedAt) {
		t.Fatalf("session changed after rejected answer: %+v vs %+v", before, after)
	}
	if f.events.events.Load() != 1 {
		t.Fatalf("expected exactly one completion event, got %d", f.events.events.Load())
	}
}

func TestSubmitUnknownSession(t *testing.T) {
	f := newFixture(t, theme("legislation", 1))
	_, err := f.service.Submit(context.Background(), "missing", domain.ByID("x"), 0)
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestResultsBeforeCompletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, theme("legislation", 2))
	session, _ := f.service.Start(ctx, domain.KindQuiz, "u1", "legislation")
	if _, err := f.service.Results(ctx, session.ID); !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func TestGradingIsDeterministic(t *testing.T) {
	ctx := context.Background()
	content := theme("legislation", 1)
	outcomes := map[bool]int{}
	for i := 0; i < 3; i++ {
		f := newFixture(t, content)
		session, _ := f.service.Start(ctx, domain.KindQuiz, "u1", "legislation")
		res, err := f.service.Submit(ctx, session.ID, domain.ByID("legislation_0"), 0)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		outcomes[res.IsCorrect]++
	}
	if outcomes[true] != 3 {
		t.Fatalf("expected consistent grading, got %v", outcomes)
	}
}

func TestConcurrentSubmitsAtSameCursor(t *testing.T) {
	ctx := context.Background()
	content := theme("legislation", 3)
	f := newFixture(t, content)
	session, _ := f.service.Start(ctx, domain.KindQuiz, "u1", "legislation")
	id := session.Items[0]

	var wins, conflicts atomic.Int32
	var g errgroup.Group
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			_, err := f.service.Submit(ctx, session.ID, domain.ByID(id), correctAnswer(content, id))
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, domain.ErrOutOfSequence):
				conflicts.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wins.Load() != 1 || conflicts.Load() != 1 {
		t.Fatalf("expected one success and one conflict, got %d/%d", wins.Load(), conflicts.Load())
	}
	stored, _ := f.sessions.Get(ctx, session.ID)
	if stored.Cursor != 1 || stored.Score != 1 {
		t.Fatalf("unexpected state %+v", stored)
	}
}

func TestBudgetSessionByIndex(t *testing.T) {
	ctx := context.Background()
	scenario := domain.Content{
		Kind:   domain.KindBudget,
		ID:     "scen_1",
		Budget: 5000,
		Questions: []domain.Question{
			{Prompt: "per resident", Options: []string{"80", "100"}, CorrectAnswer: 1, Explanation: "5000/50"},
			{Prompt: "remaining", Options: []string{"0", "500"}, CorrectAnswer: 0},
		},
	}
	f := newFixture(t, scenario)

	session, err := f.service.Start(ctx, domain.KindBudget, "u1", "scen_1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	indexOf := map[string]int{"scen_1-q1": 0, "scen_1-q2": 1}
	correct := []int{1, 0}

	wrongIndex := 1 - indexOf[session.Items[0]]
	if _, err := f.service.Submit(ctx, session.ID, domain.ByIndex(wrongIndex), 0); !errors.Is(err, domain.ErrOutOfSequence) {
		t.Fatalf("expected out of sequence for budget index, got %v", err)
	}
	if _, err := f.service.Submit(ctx, session.ID, domain.ByIndex(5), 0); !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}

	for _, id := range session.Items {
		idx := indexOf[id]
		if _, err := f.service.Submit(ctx, session.ID, domain.ByIndex(idx), correct[idx]); err != nil {
			t.Fatalf("submit %s: %v", id, err)
		}
	}
	result, err := f.service.Results(ctx, session.ID)
	if err != nil || !result.Passed || result.Content.Kind != domain.KindBudget {
		t.Fatalf("unexpected result %+v (%v)", result, err)
	}

	standing, _ := f.ledger.Profile(ctx, "u1")
	if standing.XP != 30 || !slices.Contains(standing.Badges, "budget_wizard") {
		t.Fatalf("expected budget rewards, got %+v", standing)
	}
}

func TestCompletionFeedsLedger(t *testing.T) {
	ctx := context.Background()
	content := theme("legislation", 5)
	f := newFixture(t, content)

	session, _ := f.service.Start(ctx, domain.KindQuiz, "u1", "legislation")
	for _, id := range session.Items {
		if _, err := f.service.Submit(ctx, session.ID, domain.ByID(id), correctAnswer(content, id)); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	standing, err := f.ledger.Profile(ctx, "u1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if standing.XP != 100 || standing.Level != 2 {
		t.Fatalf("expected 100xp level 2, got %+v", standing)
	}
	if !slices.Contains(standing.Badges, "first_quiz") || !slices.Contains(standing.Badges, "legislation_master") {
		t.Fatalf("expected first_quiz and legislation_master, got %v", standing.Badges)
	}
	if !slices.Equal(standing.CompletedThemes, []string{"legislation"}) {
		t.Fatalf("expected legislation completed, got %v", standing.CompletedThemes)
	}
}

func TestSubscribeReceivesProgress(t *testing.T) {
	ctx := context.Background()
	content := theme("legislation", 2)
	f := newFixture(t, content)
	session, _ := f.service.Start(ctx, domain.KindQuiz, "u1", "legislation")

	ch, cancel, err := f.service.Subscribe(ctx, session.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	initial := <-ch
	if initial.Cursor != 0 || initial.Total != 2 {
		t.Fatalf("unexpected initial snapshot %+v", initial)
	}

	id := session.Items[0]
	if _, err := f.service.Submit(ctx, session.ID, domain.ByID(id), correctAnswer(content, id)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	update := <-ch
	if update.Cursor != 1 || update.Score != 1 || update.Completed {
		t.Fatalf("unexpected update %+v", update)
	}
}

func TestSubmitSurvivesCallerCancellation(t *testing.T) {
	content := theme("legislation", 1)
	store := &cancelAwareStore{SessionStore: memory.NewSessionStore()}
	catalog := memory.NewCatalogRepository(memory.NewStaticLoader(content), time.Minute)
	service := app.NewSessionService(store, catalog, nil, app.NewRandShuffler(1), testLogger)
	session, _ := service.Start(context.Background(), domain.KindQuiz, "u1", "legislation")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	id := session.Items[0]
	if _, err := service.Submit(ctx, session.ID, domain.ByID(id), correctAnswer(content, id)); err != nil {
		t.Fatalf("submit with a departed caller: %v", err)
	}
	stored, _ := store.Get(context.Background(), session.ID)
	if !stored.Completed {
		t.Fatalf("expected session completed")
	}
}

// cancelAwareStore fails writes on a cancelled context, like a network-backed store would.
type cancelAwareStore struct {
	*memory.SessionStore
}

func (s *cancelAwareStore) Advance(ctx context.Context, id string, step domain.Step) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	return s.SessionStore.Advance(ctx, id, step)
}

func TestRecordActivityRewardsCreator(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.service.RecordActivity(ctx, "u1", "act_1"); err != nil {
		t.Fatalf("record: %v", err)
	}
	standing, _ := f.ledger.Profile(ctx, "u1")
	if standing.XP != 50 || !slices.Equal(standing.Badges, []string{"creator"}) {
		t.Fatalf("unexpected standing %+v", standing)
	}
	if err := f.service.RecordActivity(ctx, "", "act_1"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if f.events.events.Load() != 1 {
		t.Fatalf("expected one published event, got %d", f.events.events.Load())
	}
}

// lostReplyStore commits Advance and then reports the store as unavailable, like a
// write whose reply timed out.
type lostReplyStore struct {
	*memory.SessionStore
}

func (s *lostReplyStore) Advance(ctx context.Context, id string, step domain.Step) (domain.Session, error) {
	if _, err := s.SessionStore.Advance(ctx, id, step); err != nil {
		return domain.Session{}, err
	}
	return domain.Session{}, fmt.Errorf("advance: %w", domain.ErrStoreUnavailable)
}

func TestCompletionSurvivesLostAdvanceReply(t *testing.T) {
	ctx := context.Background()
	content := theme("legislation", 2)
	store := &lostReplyStore{SessionStore: memory.NewSessionStore()}
	catalog := memory.NewCatalogRepository(memory.NewStaticLoader(content), time.Minute)
	ledger := app.NewLedger(memory.NewProfileStore(), 100, testLogger)
	events := &recordingPublisher{next: app.NewRewards(ledger, app.DefaultRewardsConfig(), testLogger)}
	service := app.NewSessionService(store, catalog, events, app.NewRandShuffler(1), testLogger)

	session, err := service.Start(ctx, domain.KindQuiz, "u1", "legislation")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	first := session.Items[0]
	if _, err := service.Submit(ctx, session.ID, domain.ByID(first), correctAnswer(content, first)); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
	if events.events.Load() != 0 {
		t.Fatalf("a non-final step must not publish completion")
	}

	last := session.Items[1]
	if _, err := service.Submit(ctx, session.ID, domain.ByID(last), correctAnswer(content, last)); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
	if events.events.Load() != 1 {
		t.Fatalf("expected completion published after the lost reply, got %d events", events.events.Load())
	}
	if _, err := service.Submit(ctx, session.ID, domain.ByID(last), correctAnswer(content, last)); !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Fatalf("expected already completed on retry, got %v", err)
	}
	standing, _ := ledger.Profile(ctx, "u1")
	if standing.XP != 40 || !slices.Equal(standing.CompletedThemes, []string{"legislation"}) {
		t.Fatalf("expected completion rewards, got %+v", standing)
	}
}
