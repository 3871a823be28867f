package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"academy-quiz-service/internal/app"
	"academy-quiz-service/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer drains the events queue into a sink, normally the rewards policy.
type Consumer struct {
	conn       *Connection
	sink       app.EventPublisher
	logger     *slog.Logger
	workers    int
	prefetch   int
	timeout    time.Duration
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Workers  int           // Number of concurrent workers
	Prefetch int           // Prefetch count per worker
	Timeout  time.Duration // Budget for handling one event
}

// DefaultConsumerConfig returns sensible defaults
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Workers:  2,
		Prefetch: 1,
		Timeout:  10 * time.Second,
	}
}

func NewConsumer(conn *Connection, sink app.EventPublisher, cfg ConsumerConfig, logger *slog.Logger) *Consumer {
	def := DefaultConsumerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = def.Prefetch
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		conn:     conn,
		sink:     sink,
		logger:   logger,
		workers:  cfg.Workers,
		prefetch: cfg.Prefetch,
		timeout:  cfg.Timeout,
	}
}

// Start begins consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.conn.Queue(),
		"",    // consumer tag (auto-generated)
		false, // auto-ack (manual ack for reliability)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("starting events consumer", "queue", c.conn.Queue(), "workers", c.workers, "prefetch", c.prefetch)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, msgs)
	}
	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Info("message channel closed", "worker_id", id)
				return
			}
			c.processMessage(ctx, id, msg)
		}
	}
}

// processMessage acks handled events, requeues events that failed on an unavailable
// store and drops the rest. The sink applies each event id once, so a requeued event is
// never paid twice.
func (c *Consumer) processMessage(ctx context.Context, workerID int, msg amqp.Delivery) {
	var event domain.Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error("failed to unmarshal event", "worker_id", workerID, "error", err)
		_ = msg.Reject(false)
		return
	}
	if event.ID == "" {
		event.ID = msg.MessageId
	}

	eventCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.sink.Publish(eventCtx, event)
	switch {
	case err == nil:
		if err := msg.Ack(false); err != nil {
			c.logger.Error("failed to ack message", "worker_id", workerID, "event", event.Type, "error", err)
		}
	case errors.Is(err, domain.ErrStoreUnavailable) && !msg.Redelivered:
		c.logger.Warn("event handling failed, requeueing",
			"worker_id", workerID,
			"event", event.Type,
			"user_id", event.UserID,
			"error", err,
		)
		_ = msg.Nack(false, true)
	default:
		c.logger.Error("event dropped",
			"worker_id", workerID,
			"event", event.Type,
			"user_id", event.UserID,
			"redelivered", msg.Redelivered,
			"error", err,
		)
		_ = msg.Reject(false)
	}
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	c.logger.Info("events consumer stopped")
}
