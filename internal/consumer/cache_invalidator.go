package consumer

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/prudhivi99/designify-catalog/internal/models"
)

// Invalidator drops cached upstream responses.
type Invalidator interface {
	InvalidateUpstream(ctx context.Context) error
}

type CacheInvalidator struct {
	cache  Invalidator
	logger *zap.Logger
}

func NewCacheInvalidator(cache Invalidator, logger *zap.Logger) *CacheInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheInvalidator{cache: cache, logger: logger}
}

// ProcessCatalogUpdated handles catalog.updated events until messages is
// closed or ctx is done.
func (c *CacheInvalidator) ProcessCatalogUpdated(ctx context.Context, messages <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *CacheInvalidator) handle(ctx context.Context, msg amqp.Delivery) {
	c.logger.Info("📥 Received catalog.updated event")

	var event models.CatalogUpdatedEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error("❌ Failed to parse event", zap.Error(err))
		msg.Nack(false, false) // Don't requeue bad messages
		return
	}

	if err := c.cache.InvalidateUpstream(ctx); err != nil {
		c.logger.Error("❌ Failed to invalidate cache", zap.String("reason", event.Reason), zap.Error(err))
		msg.Nack(false, true) // Requeue for retry
		return
	}

	msg.Ack(false)
	c.logger.Info("✅ Catalog cache invalidated",
		zap.String("reason", event.Reason),
		zap.String("source", event.Source),
	)
}
