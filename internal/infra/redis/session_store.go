package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"academy-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis implementation of app.SessionRepository.
// Each session is one JSON document; Advance uses WATCH/MULTI so that a concurrent
// writer on the same key aborts the transaction instead of overwriting it.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates the store. A zero ttl keeps sessions indefinitely.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Create(ctx context.Context, session domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(session.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %q already exists", session.ID)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (domain.Session, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	return decodeSession(raw)
}

func (s *SessionStore) Advance(ctx context.Context, id string, step domain.Step) (domain.Session, error) {
	key := s.key(id)
	var next domain.Session
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		current, err := decodeSession(raw)
		if err != nil {
			return err
		}
		next, err = current.Advance(step)
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.Session{}, fmt.Errorf("concurrent update of session %q: %w", id, domain.ErrOutOfSequence)
	}
	if err != nil {
		return domain.Session{}, err
	}
	return next, nil
}

func (s *SessionStore) key(id string) string {
	return "session:" + id
}

func decodeSession(raw []byte) (domain.Session, error) {
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	if session.Answers == nil {
		session.Answers = []int{}
	}
	return session, nil
}
