package domain

import "time"

// Profile is a user's gamification state. Level is deliberately absent: it is derived from
// XP by LevelFor every time the profile is read or written.
type Profile struct {
	UserID          string   `json:"userId"`
	XP              int      `json:"xp"`
	Badges          []string `json:"badges"`
	CompletedThemes []string `json:"completedThemes"`
}

// LevelFor derives the level from experience: floor(xp / perLevel) + 1.
func LevelFor(xp, perLevel int) int {
	if perLevel <= 0 || xp < 0 {
		return 1
	}
	return xp/perLevel + 1
}

// Standing is a profile together with its derived level.
type Standing struct {
	Profile
	Level int `json:"level"`
}

// StandingOf pairs p with the level derived from its XP.
func StandingOf(p Profile, perLevel int) Standing {
	return Standing{Profile: p, Level: LevelFor(p.XP, perLevel)}
}

// EventType names the gamification events consumed by the ledger.
type EventType string

const (
	EventSessionCompleted EventType = "session.completed"
	EventActivityCreated  EventType = "activity.created"
)

// Event carries a completion or creation fact to the rewards policy.
type Event struct {
	ID         string    `json:"id,omitempty"`
	Type       EventType `json:"type"`
	UserID     string    `json:"userId"`
	Result     *Result   `json:"result,omitempty"`
	ActivityID string    `json:"activityId,omitempty"`
	At         time.Time `json:"at"`
}

// CompletionEventID is the id of the single completion event a session can produce.
func CompletionEventID(sessionID string) string {
	return "session:" + sessionID + ":completed"
}

// Key identifies the event for deduplication of its awards. Events published without
// an id fall back to a key derived from their payload.
func (e Event) Key() string {
	if e.ID != "" {
		return e.ID
	}
	switch e.Type {
	case EventSessionCompleted:
		if e.Result != nil && e.Result.SessionID != "" {
			return CompletionEventID(e.Result.SessionID)
		}
	case EventActivityCreated:
		if e.ActivityID != "" {
			return "activity:" + e.UserID + ":" + e.ActivityID
		}
	}
	return ""
}

// Outcome reports what the ledger changed for one event.
type Outcome struct {
	UserID       string   `json:"userId"`
	XPEarned     int      `json:"xpEarned"`
	BadgesEarned []string `json:"badgesEarned"`
	Standing     Standing `json:"standing"`
}

// ProgressRecord is the history entry kept for every handled event.
type ProgressRecord struct {
	EventID      string    `json:"eventId"`
	UserID       string    `json:"userId"`
	Event        EventType `json:"event"`
	Kind         Kind      `json:"kind,omitempty"`
	ContentID    string    `json:"contentId,omitempty"`
	ActivityID   string    `json:"activityId,omitempty"`
	Score        int       `json:"score"`
	Total        int       `json:"total"`
	Completed    bool      `json:"completed"`
	XPEarned     int       `json:"xpEarned"`
	BadgesEarned []string  `json:"badgesEarned"`
	At           time.Time `json:"at"`
}

// RecordOf builds the history entry for event from what the ledger changed.
func RecordOf(event Event, out Outcome) ProgressRecord {
	rec := ProgressRecord{
		EventID:      event.Key(),
		UserID:       event.UserID,
		Event:        event.Type,
		ActivityID:   event.ActivityID,
		XPEarned:     out.XPEarned,
		BadgesEarned: append([]string{}, out.BadgesEarned...),
		At:           event.At,
	}
	if r := event.Result; r != nil {
		rec.Kind = r.Content.Kind
		rec.ContentID = r.Content.ID
		rec.Score = r.Score
		rec.Total = r.Total
		rec.Completed = true
	}
	return rec
}
