package queue

import (
	"context"
	"fmt"

	"academy-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// Publisher sends gamification events to the broker. It satisfies app.EventPublisher.
type Publisher struct {
	conn *Connection
}

func NewPublisher(conn *Connection) *Publisher {
	return &Publisher{conn: conn}
}

// Publish sends event, assigning an id first if it has none so consumers can
// deduplicate redeliveries.
func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if err := p.conn.PublishJSON(ctx, string(event.Type), event.ID, event); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}
