package domain

import (
	"errors"
	"testing"
	"time"
)

func newTestSession(n int) Session {
	items := make([]string, n)
	for i := range items {
		items[i] = string(rune('a' + i))
	}
	return Session{ID: "s1", Kind: KindQuiz, OwnerID: "u1", ContentRef: "t1", Items: items, Answers: []int{}}
}

func TestAdvanceKeepsInvariants(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestSession(3)
	for i := 0; i < 3; i++ {
		next, err := s.Advance(Step{ExpectedCursor: i, Answer: i, Correct: i%2 == 0, At: at})
		if err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
		if err := next.Check(); err != nil {
			t.Fatalf("invariant after step %d: %v", i, err)
		}
		if len(s.Answers) != i {
			t.Fatalf("advance mutated the receiver's answer log")
		}
		s = next
	}
	if !s.Completed || s.CompletedAt == nil || !s.CompletedAt.Equal(at) {
		t.Fatalf("expected completion at %v, got %+v", at, s)
	}
	if s.Score != 2 {
		t.Fatalf("expected score 2, got %d", s.Score)
	}
}

func TestAdvanceRejectsWrongCursor(t *testing.T) {
	s := newTestSession(2)
	_, err := s.Advance(Step{ExpectedCursor: 1})
	if !errors.Is(err, ErrOutOfSequence) {
		t.Fatalf("expected out of sequence, got %v", err)
	}
}

func TestAdvanceAfterCompletion(t *testing.T) {
	s := newTestSession(1)
	done, err := s.Advance(Step{ExpectedCursor: 0, Correct: true, At: time.Now()})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	stamp := *done.CompletedAt

	again, err := done.Advance(Step{ExpectedCursor: 1, At: time.Now().Add(time.Hour)})
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected already completed, got %v", err)
	}
	if !again.Completed || !again.CompletedAt.Equal(stamp) || again.Cursor != 1 {
		t.Fatalf("completed session changed: %+v", again)
	}
}

func TestSummarize(t *testing.T) {
	cases := []struct {
		name    string
		total   int
		correct int
		pct     float64
		passed  bool
	}{
		{name: "all correct", total: 5, correct: 5, pct: 100, passed: true},
		{name: "below threshold", total: 10, correct: 6, pct: 60, passed: false},
		{name: "at threshold", total: 10, correct: 7, pct: 70, passed: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestSession(tc.total)
			for i := 0; i < tc.total; i++ {
				var err error
				s, err = s.Advance(Step{ExpectedCursor: i, Correct: i < tc.correct, At: time.Now()})
				if err != nil {
					t.Fatalf("advance: %v", err)
				}
			}
			first, err := Summarize(s)
			if err != nil {
				t.Fatalf("summarize: %v", err)
			}
			if first.Score != tc.correct || first.Percentage != tc.pct || first.Passed != tc.passed {
				t.Fatalf("unexpected result %+v", first)
			}
			second, _ := Summarize(s)
			if first != second {
				t.Fatalf("summarize not idempotent: %+v vs %+v", first, second)
			}
		})
	}
}

func TestSummarizeNotReady(t *testing.T) {
	if _, err := Summarize(newTestSession(2)); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func TestSummarizeEmptySession(t *testing.T) {
	now := time.Now()
	r, err := Summarize(Session{Completed: true, CompletedAt: &now})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if r.Percentage != 0 || r.Passed {
		t.Fatalf("expected 0%% failed, got %+v", r)
	}
}

func TestReplayMatchesStoredState(t *testing.T) {
	content := Content{Kind: KindQuiz, ID: "t1", Questions: []Question{
		{ID: "a", CorrectAnswer: 1},
		{ID: "b", CorrectAnswer: 0},
	}}
	s := newTestSession(2)
	answers := []int{1, 2}
	for i, a := range answers {
		q, _ := content.Question(s.Items[i])
		var err error
		s, err = s.Advance(Step{ExpectedCursor: i, Answer: a, Correct: a == q.CorrectAnswer, At: time.Now()})
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	score, completed, err := Replay(s, content)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if score != s.Score || completed != s.Completed {
		t.Fatalf("replay (%d, %v) diverges from stored (%d, %v)", score, completed, s.Score, s.Completed)
	}
}

func TestItemRefResolve(t *testing.T) {
	content := Content{Kind: KindBudget, ID: "scen_1", Questions: []Question{{Prompt: "x"}, {Prompt: "y"}}}.Normalize()
	q, err := ByIndex(1).Resolve(content)
	if err != nil || q.ID != "scen_1-q2" {
		t.Fatalf("expected scen_1-q2, got %q (%v)", q.ID, err)
	}
	if _, err := ByIndex(2).Resolve(content); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for index 2, got %v", err)
	}
	if _, err := ByID("nope").Resolve(content); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}
}

func TestLevelFor(t *testing.T) {
	if got := LevelFor(505, 100); got != 6 {
		t.Fatalf("expected level 6, got %d", got)
	}
	if got := LevelFor(0, 100); got != 1 {
		t.Fatalf("expected level 1, got %d", got)
	}
	if got := LevelFor(99, 100); got != 1 {
		t.Fatalf("expected level 1 at 99xp, got %d", got)
	}
}

func TestEventKeyFallsBackToPayload(t *testing.T) {
	withID := Event{ID: "evt-1", Type: EventActivityCreated, UserID: "u1", ActivityID: "act_1"}
	if withID.Key() != "evt-1" {
		t.Fatalf("expected explicit id, got %q", withID.Key())
	}
	activity := Event{Type: EventActivityCreated, UserID: "u1", ActivityID: "act_1"}
	if activity.Key() != "activity:u1:act_1" {
		t.Fatalf("unexpected activity key %q", activity.Key())
	}
	completion := Event{Type: EventSessionCompleted, UserID: "u1", Result: &Result{SessionID: "s1"}}
	if completion.Key() != CompletionEventID("s1") {
		t.Fatalf("unexpected completion key %q", completion.Key())
	}
}

func TestAvatarsForUnlocksByLevel(t *testing.T) {
	avatars := []Avatar{{ID: "a1", RequiredLevel: 1}, {ID: "a2", RequiredLevel: 5}}
	got := AvatarsFor(avatars, 3)
	if !got[0].Unlocked || got[1].Unlocked {
		t.Fatalf("unexpected unlocks %+v", got)
	}
	if avatars[0].Unlocked {
		t.Fatalf("input must not be modified")
	}
}
