package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"academy-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ContentLoader fetches themes and scenarios from a backing store (e.g., Postgres).
type ContentLoader interface {
	LoadContent(ctx context.Context, ref domain.ContentRef) (domain.Content, error)
}

// CatalogRepository caches catalog content in Redis and falls back to a loader on cache miss.
// Content is stored as JSON: SET catalog:{kind}:{id} {content}
type CatalogRepository struct {
	client *redis.Client
	loader ContentLoader
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewCatalogRepository(client *redis.Client, loader ContentLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) GetContent(ctx context.Context, ref domain.ContentRef) (domain.Content, error) {
	if content, ok := r.cached(ctx, ref); ok {
		return content, nil
	}

	result, err, _ := r.sf.Do(ref.String(), func() (interface{}, error) {
		// Re-check cache in case another instance filled it.
		if content, ok := r.cached(ctx, ref); ok {
			return content, nil
		}

		content, err := r.loader.LoadContent(ctx, ref)
		if err != nil {
			return domain.Content{}, err
		}
		content = content.Normalize()

		data, err := json.Marshal(content)
		if err != nil {
			return domain.Content{}, fmt.Errorf("marshal content: %w", err)
		}
		// best-effort: a failed cache write only costs another load
		_ = r.client.Set(ctx, r.key(ref), data, r.ttlWithJitter()).Err()
		return content, nil
	})
	if err != nil {
		return domain.Content{}, err
	}
	return result.(domain.Content), nil
}

func (r *CatalogRepository) cached(ctx context.Context, ref domain.ContentRef) (domain.Content, bool) {
	raw, err := r.client.Get(ctx, r.key(ref)).Bytes()
	if err != nil {
		return domain.Content{}, false
	}
	var content domain.Content
	if err := json.Unmarshal(raw, &content); err != nil {
		return domain.Content{}, false
	}
	return content, true
}

// Invalidate drops the cached copy of ref, e.g. after the catalog is reseeded.
func (r *CatalogRepository) Invalidate(ctx context.Context, ref domain.ContentRef) error {
	err := r.client.Del(ctx, r.key(ref)).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (r *CatalogRepository) key(ref domain.ContentRef) string {
	return "catalog:" + string(ref.Kind) + ":" + ref.ID
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
