package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"academy-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ProgressStore keeps each user's history as a hash keyed by event id:
//
//	HSETNX progress:{user} {event} {record}
//
// HSETNX makes a replayed event a no-op.
type ProgressStore struct {
	client *redis.Client
}

func NewProgressStore(client *redis.Client) *ProgressStore {
	return &ProgressStore{client: client}
}

func (s *ProgressStore) Append(ctx context.Context, rec domain.ProgressRecord) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("marshal progress: %w", err)
	}
	added, err := s.client.HSetNX(ctx, s.key(rec.UserID), rec.EventID, data).Result()
	if err != nil {
		return false, fmt.Errorf("append progress: %w", err)
	}
	return added, nil
}

func (s *ProgressStore) List(ctx context.Context, userID string) ([]domain.ProgressRecord, error) {
	values, err := s.client.HVals(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	records := make([]domain.ProgressRecord, 0, len(values))
	for _, v := range values {
		var rec domain.ProgressRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal progress: %w", err)
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].At.Equal(records[j].At) {
			return records[i].At.Before(records[j].At)
		}
		return records[i].EventID < records[j].EventID
	})
	return records, nil
}

func (s *ProgressStore) key(userID string) string {
	return "progress:" + userID
}
