package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced      = "OrderPlaced"
	EventProductRestocked = "ProductRestocked"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope stamps a fresh event id and time around an already-encoded payload.
func NewEnvelope(eventType, producer, traceID, correlationID string, payload json.RawMessage) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       payload,
	}
}

type ItemPrice struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderPlacedPayload struct {
	OrderID    int64           `json:"order_id"`
	CustomerID int64           `json:"customer_id"`
	Items      []ItemPrice     `json:"items"`
	Total      decimal.Decimal `json:"total"`
}

func NewOrderPlacedPayload(p PlacedOrder) OrderPlacedPayload {
	items := make([]ItemPrice, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, ItemPrice{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}
	return OrderPlacedPayload{
		OrderID:    p.OrderID,
		CustomerID: p.CustomerID,
		Items:      items,
		Total:      p.Total(),
	}
}

type ProductRestockedPayload struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}
