package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"academy-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ContentLoader fetches themes and scenarios from a backing store (e.g., Postgres).
type ContentLoader interface {
	LoadContent(ctx context.Context, ref domain.ContentRef) (domain.Content, error)
}

// CatalogRepository caches catalog content with TTL to avoid repeated DB hits.
type CatalogRepository struct {
	loader ContentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[domain.ContentRef]cachedContent
}

type cachedContent struct {
	content   domain.Content
	expiresAt time.Time
}

func NewCatalogRepository(loader ContentLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[domain.ContentRef]cachedContent),
	}
}

func (r *CatalogRepository) GetContent(ctx context.Context, ref domain.ContentRef) (domain.Content, error) {
	if content, ok := r.cached(ref); ok {
		return content, nil
	}

	result, err, _ := r.sf.Do(ref.String(), func() (interface{}, error) {
		if content, ok := r.cached(ref); ok {
			return content, nil
		}

		content, err := r.loader.LoadContent(ctx, ref)
		if err != nil {
			return domain.Content{}, err
		}
		content = content.Normalize()

		r.mu.Lock()
		r.cache[ref] = cachedContent{
			content:   content,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return content, nil
	})
	if err != nil {
		return domain.Content{}, err
	}
	return result.(domain.Content), nil
}

func (r *CatalogRepository) cached(ref domain.ContentRef) (domain.Content, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[ref]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Content{}, false
	}
	return entry.content, true
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticLoader is a simple loader backed by an in-memory list (useful for tests/demos).
type StaticLoader struct {
	content map[domain.ContentRef]domain.Content
}

func NewStaticLoader(content ...domain.Content) *StaticLoader {
	m := make(map[domain.ContentRef]domain.Content, len(content))
	for _, c := range content {
		m[c.Ref()] = c
	}
	return &StaticLoader{content: m}
}

func (l *StaticLoader) LoadContent(_ context.Context, ref domain.ContentRef) (domain.Content, error) {
	if content, ok := l.content[ref]; ok {
		return content, nil
	}
	return domain.Content{}, domain.ErrContentNotFound
}
