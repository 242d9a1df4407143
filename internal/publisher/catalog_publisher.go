package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prudhivi99/designify-catalog/internal/models"
)

const CatalogUpdatedExchange = "catalog.updated"

// Broker is the messaging surface the publisher needs.
type Broker interface {
	DeclareFanout(name string) error
	Publish(ctx context.Context, exchange string, message []byte) error
}

type CatalogPublisher struct {
	mq     Broker
	source string
	now    func() time.Time
}

func NewCatalogPublisher(mq Broker, source string) (*CatalogPublisher, error) {
	// Declare the exchange
	if err := mq.DeclareFanout(CatalogUpdatedExchange); err != nil {
		return nil, err
	}

	return &CatalogPublisher{mq: mq, source: source, now: time.Now}, nil
}

// PublishCatalogUpdated publishes a catalog.updated event
func (p *CatalogPublisher) PublishCatalogUpdated(ctx context.Context, reason string) error {
	event := models.CatalogUpdatedEvent{
		Reason:      reason,
		Source:      p.source,
		PublishedAt: p.now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.mq.Publish(ctx, CatalogUpdatedExchange, data)
}
