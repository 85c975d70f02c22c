package inventory

import (
	"context"
	"errors"
	"fmt"

	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type ReportInvalidator interface {
	Invalidate(ctx context.Context)
}

// Deduper remembers event IDs whose effects have been committed.
type Deduper interface {
	Seen(ctx context.Context, id string) (bool, error)
	Mark(ctx context.Context, id string) error
}

// Service applies restock events to the catalog.
type Service struct {
	Catalog *orders.Catalog
	Dedup   Deduper // optional
	Reports ReportInvalidator
	Log     *zap.Logger
}

// HandleRestock is installed as the consumer handler. Malformed or
// unprocessable events are logged and acknowledged. Storage errors are
// returned and the consumer redelivers the same message until it succeeds.
// The event is marked as seen only after the restock has committed.
func (s *Service) HandleRestock(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.UnmarshalEnvelope(m.Value)
	if err != nil {
		s.Log.Warn("dropping undecodable message", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != orders.EventProductRestocked {
		return nil
	}
	log := s.Log.With(zap.String("event_id", env.EventID))

	if s.Dedup != nil {
		seen, err := s.Dedup.Seen(ctx, env.EventID)
		if err != nil {
			log.Warn("dedup check failed, processing anyway", zap.Error(err))
		} else if seen {
			log.Debug("duplicate event skipped")
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[orders.ProductRestockedPayload](env.Payload)
	if err != nil {
		log.Warn("dropping restock with bad payload", zap.Error(err))
		return nil
	}

	stock, err := s.Catalog.Restock(ctx, p.ProductID, p.Quantity)
	switch {
	case errors.Is(err, orders.ErrInvalidRequest), errors.Is(err, orders.ErrNotFound):
		log.Warn("restock rejected", zap.Int64("product_id", p.ProductID), zap.Int("quantity", p.Quantity), zap.Error(err))
		return nil
	case err != nil:
		return fmt.Errorf("restock product %d: %w", p.ProductID, err)
	}

	if s.Dedup != nil {
		// A lost mark only risks reapplying this event on redelivery.
		if err := s.Dedup.Mark(ctx, env.EventID); err != nil {
			log.Warn("dedup mark failed", zap.Error(err))
		}
	}
	if s.Reports != nil {
		s.Reports.Invalidate(ctx)
	}
	log.Info("product restocked",
		zap.Int64("product_id", p.ProductID),
		zap.Int("quantity", p.Quantity),
		zap.Int("stock_quantity", stock))
	return nil
}
