package app

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"academy-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// Shuffler permutes item order when a session starts.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// RandShuffler is a Shuffler backed by a seeded math/rand source, safe for concurrent use.
type RandShuffler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandShuffler(seed int64) *RandShuffler {
	return &RandShuffler{rnd: rand.New(rand.NewSource(seed))}
}

func (s *RandShuffler) Shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rnd.Shuffle(n, swap)
}

// NewSeed generates a seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// SessionService contains the session use cases: start, answer, results.
type SessionService struct {
	sessions SessionRepository
	catalog  CatalogRepository
	events   EventPublisher
	shuffler Shuffler
	notifier *Notifier
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

func NewSessionService(sessions SessionRepository, catalog CatalogRepository, events EventPublisher, shuffler Shuffler, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		sessions: sessions,
		catalog:  catalog,
		events:   events,
		shuffler: shuffler,
		notifier: NewNotifier(),
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// SetClock is test-only for deterministic timestamps.
func (s *SessionService) SetClock(now func() time.Time) {
	s.now = now
}

// Start creates a session over a freshly shuffled copy of the content's items.
func (s *SessionService) Start(ctx context.Context, kind domain.Kind, ownerID, contentRef string) (domain.Session, error) {
	if !kind.Valid() {
		return domain.Session{}, fmt.Errorf("kind %q: %w", kind, domain.ErrInvalidArgument)
	}
	if ownerID == "" || contentRef == "" {
		return domain.Session{}, fmt.Errorf("owner and content are required: %w", domain.ErrInvalidArgument)
	}

	content, err := s.catalog.GetContent(ctx, domain.ContentRef{Kind: kind, ID: contentRef})
	if err != nil {
		return domain.Session{}, err
	}
	items := content.ItemIDs()
	if len(items) == 0 {
		return domain.Session{}, fmt.Errorf("%s has no questions: %w", content.Ref(), domain.ErrContentNotFound)
	}
	s.shuffler.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})

	session := domain.Session{
		ID:         s.newID(),
		Kind:       kind,
		OwnerID:    ownerID,
		ContentRef: contentRef,
		Items:      items,
		Answers:    []int{},
		StartedAt:  s.now().UTC(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.Session{}, err
	}
	s.logger.Info("session started",
		"session_id", session.ID,
		"kind", kind,
		"owner_id", ownerID,
		"content", contentRef,
		"items", len(items))
	return session, nil
}

// Get returns the stored session.
func (s *SessionService) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.sessions.Get(ctx, sessionID)
}

// Subscribe returns a channel that receives progress updates for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *SessionService) Subscribe(ctx context.Context, sessionID string) (<-chan domain.Progress, func(), error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.notifier.Subscribe(sessionID, session.Progress())
	return ch, cancel, nil
}
