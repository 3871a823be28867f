package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"academy-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ContentLoader loads catalog JSONB from Postgres.
type ContentLoader struct {
	pool *pgxpool.Pool
}

func NewContentLoader(pool *pgxpool.Pool) *ContentLoader {
	return &ContentLoader{pool: pool}
}

func (l *ContentLoader) LoadContent(ctx context.Context, ref domain.ContentRef) (domain.Content, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM catalog_content WHERE kind=$1 AND id=$2`, string(ref.Kind), ref.ID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Content{}, fmt.Errorf("%s: %w", ref, domain.ErrContentNotFound)
	}
	if err != nil {
		return domain.Content{}, fmt.Errorf("load content: %w", err)
	}
	var content domain.Content
	if err := json.Unmarshal(raw, &content); err != nil {
		return domain.Content{}, fmt.Errorf("unmarshal content: %w", err)
	}
	content.Kind, content.ID = ref.Kind, ref.ID
	return content, nil
}

// SaveContent upserts catalog entries in one transaction.
func (l *ContentLoader) SaveContent(ctx context.Context, content ...domain.Content) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range content {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", c.Ref(), err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO catalog_content (kind, id, title, data)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (kind, id) DO UPDATE SET title = EXCLUDED.title, data = EXCLUDED.data`,
			string(c.Kind), c.ID, c.Title, data)
		if err != nil {
			return fmt.Errorf("save %s: %w", c.Ref(), err)
		}
	}
	return tx.Commit(ctx)
}
