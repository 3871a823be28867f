package domain

import (
	"fmt"
	"time"
)

// Kind distinguishes the two session flavours. They share one lifecycle.
type Kind string

const (
	KindQuiz   Kind = "quiz"
	KindBudget Kind = "budget"
)

// Valid reports whether k is a known session kind.
func (k Kind) Valid() bool {
	return k == KindQuiz || k == KindBudget
}

// ContentRef identifies a theme (quiz) or a scenario (budget).
type ContentRef struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

func (r ContentRef) String() string {
	return string(r.Kind) + ":" + r.ID
}

// Question models an MCQ item with a zero-based correct option index.
type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
	Difficulty    string   `json:"difficulty,omitempty"`
}

// Expense is a budget line shown alongside a scenario.
type Expense struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// Content is a catalog entry: a quiz theme or a budget scenario with embedded questions.
// Questions are in canonical catalog order.
type Content struct {
	Kind        Kind       `json:"kind"`
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Budget      float64    `json:"budget,omitempty"`
	Expenses    []Expense  `json:"expenses,omitempty"`
	Questions   []Question `json:"questions"`
}

// Ref returns the content reference.
func (c Content) Ref() ContentRef {
	return ContentRef{Kind: c.Kind, ID: c.ID}
}

// Normalize assigns stable ids to scenario questions that were authored without one,
// so both kinds can be addressed by id.
func (c Content) Normalize() Content {
	if len(c.Questions) == 0 {
		return c
	}
	questions := make([]Question, len(c.Questions))
	copy(questions, c.Questions)
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = fmt.Sprintf("%s-q%d", c.ID, i+1)
		}
	}
	c.Questions = questions
	return c
}

// Question looks up an item by id.
func (c Content) Question(id string) (Question, bool) {
	for _, q := range c.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// ItemIDs lists question ids in canonical order.
func (c Content) ItemIDs() []string {
	ids := make([]string, len(c.Questions))
	for i, q := range c.Questions {
		ids[i] = q.ID
	}
	return ids
}

// ItemRef addresses the answered item either by question id (quiz routes) or by
// canonical question index (budget routes).
type ItemRef struct {
	ID    string
	Index *int
}

// ByID builds an id reference.
func ByID(id string) ItemRef { return ItemRef{ID: id} }

// ByIndex builds an index reference.
func ByIndex(i int) ItemRef { return ItemRef{Index: &i} }

// Resolve maps the reference to a question of c.
func (r ItemRef) Resolve(c Content) (Question, error) {
	if r.Index != nil {
		i := *r.Index
		if i < 0 || i >= len(c.Questions) {
			return Question{}, fmt.Errorf("index %d: %w", i, ErrItemNotFound)
		}
		return c.Questions[i], nil
	}
	q, ok := c.Question(r.ID)
	if !ok {
		return Question{}, fmt.Errorf("%q: %w", r.ID, ErrItemNotFound)
	}
	return q, nil
}

// GradeResult is the outcome of one accepted answer.
type GradeResult struct {
	IsCorrect     bool   `json:"isCorrect"`
	CorrectAnswer int    `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
	Score         int    `json:"score"`
	Completed     bool   `json:"completed"`
}

// PassThreshold is the fixed percentage needed to pass a session.
const PassThreshold = 70.0

// Result summarizes a completed session.
type Result struct {
	SessionID   string     `json:"sessionId"`
	Content     ContentRef `json:"content"`
	Score       int        `json:"score"`
	Total       int        `json:"total"`
	Percentage  float64    `json:"percentage"`
	Passed      bool       `json:"passed"`
	CompletedAt time.Time  `json:"completedAt"`
}

// Progress is the snapshot pushed to live subscribers after each accepted answer.
type Progress struct {
	SessionID string `json:"sessionId"`
	Cursor    int    `json:"cursor"`
	Total     int    `json:"total"`
	Score     int    `json:"score"`
	Completed bool   `json:"completed"`
}
