package domain

import (
	"fmt"
	"time"
)

// Session is one user's attempt at a theme or scenario.
// Items is fixed at creation; Cursor, Score, Answers and Completed only move through Advance.
type Session struct {
	ID          string     `json:"id"`
	Kind        Kind       `json:"kind"`
	OwnerID     string     `json:"ownerId"`
	ContentRef  string     `json:"contentRef"`
	Items       []string   `json:"items"`
	Cursor      int        `json:"cursor"`
	Score       int        `json:"score"`
	Answers     []int      `json:"answers"`
	Completed   bool       `json:"completed"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Content returns the reference of the content this session was started on.
func (s Session) Content() ContentRef {
	return ContentRef{Kind: s.Kind, ID: s.ContentRef}
}

// Total is the number of items in the session.
func (s Session) Total() int {
	return len(s.Items)
}

// Expected returns the item id the next answer must target.
func (s Session) Expected() (string, bool) {
	if s.Cursor >= len(s.Items) {
		return "", false
	}
	return s.Items[s.Cursor], true
}

// Step is a single accepted answer, applied atomically by a session store.
type Step struct {
	ExpectedCursor int
	Answer         int
	Correct        bool
	At             time.Time
}

// Advance applies step and returns the new state. It rejects the step when the session is
// completed or the cursor moved since the step was prepared; s is never modified.
// The update that reaches the last item also sets Completed and CompletedAt.
func (s Session) Advance(step Step) (Session, error) {
	if s.Completed {
		return s, ErrAlreadyCompleted
	}
	if step.ExpectedCursor != s.Cursor {
		return s, fmt.Errorf("cursor is %d, answer prepared for %d: %w", s.Cursor, step.ExpectedCursor, ErrOutOfSequence)
	}
	if s.Cursor >= len(s.Items) {
		return s, ErrAlreadyCompleted
	}

	next := s
	next.Answers = make([]int, len(s.Answers), len(s.Answers)+1)
	copy(next.Answers, s.Answers)
	next.Answers = append(next.Answers, step.Answer)
	next.Cursor++
	if step.Correct {
		next.Score++
	}
	if next.Cursor == len(next.Items) {
		at := step.At
		next.Completed = true
		next.CompletedAt = &at
	}
	return next, nil
}

// Check verifies the structural invariants of a stored session.
func (s Session) Check() error {
	switch {
	case s.Score < 0 || s.Score > s.Cursor:
		return fmt.Errorf("score %d outside [0, cursor %d]", s.Score, s.Cursor)
	case s.Cursor > len(s.Items):
		return fmt.Errorf("cursor %d past %d items", s.Cursor, len(s.Items))
	case len(s.Answers) != s.Cursor:
		return fmt.Errorf("answer log has %d entries, cursor is %d", len(s.Answers), s.Cursor)
	case s.Completed != (s.Cursor == len(s.Items)):
		return fmt.Errorf("completed=%v with cursor %d of %d", s.Completed, s.Cursor, len(s.Items))
	case s.Completed != (s.CompletedAt != nil):
		return fmt.Errorf("completed=%v but completedAt set=%v", s.Completed, s.CompletedAt != nil)
	}
	return nil
}

// Replay recomputes score and completion from the answer log against the catalog.
// Stored Score and Completed must always equal what Replay returns.
func Replay(s Session, c Content) (score int, completed bool, err error) {
	for i, answer := range s.Answers {
		if i >= len(s.Items) {
			return 0, false, fmt.Errorf("answer %d has no item", i)
		}
		q, ok := c.Question(s.Items[i])
		if !ok {
			return 0, false, fmt.Errorf("item %q: %w", s.Items[i], ErrItemNotFound)
		}
		if answer == q.CorrectAnswer {
			score++
		}
	}
	return score, len(s.Answers) == len(s.Items), nil
}

// Summarize computes the verdict of a completed session.
func Summarize(s Session) (Result, error) {
	if !s.Completed {
		return Result{}, ErrNotReady
	}
	total := len(s.Items)
	percentage := 0.0
	if total > 0 {
		percentage = 100 * float64(s.Score) / float64(total)
	}
	result := Result{
		SessionID:  s.ID,
		Content:    s.Content(),
		Score:      s.Score,
		Total:      total,
		Percentage: percentage,
		Passed:     percentage >= PassThreshold,
	}
	if s.CompletedAt != nil {
		result.CompletedAt = *s.CompletedAt
	}
	return result, nil
}

// Progress returns the live snapshot of the session.
func (s Session) Progress() Progress {
	return Progress{
		SessionID: s.ID,
		Cursor:    s.Cursor,
		Total:     len(s.Items),
		Score:     s.Score,
		Completed: s.Completed,
	}
}
