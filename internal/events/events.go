// Package events defines the order events handed to the shipment bridge and
// the publishers that deliver them.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"kartcore/internal/model"

	"github.com/oklog/ulid/v2"
)

// Event types written to the outbox.
const (
	EventOrderConfirmed = "order.confirmed"
	EventOrderShipped   = "order.shipped"
	EventOrderCancelled = "order.cancelled"
)

// Kafka topics, one per event type. Messages are keyed by order number so
// every event of an order lands on the same partition.
const (
	TopicOrdersConfirmed = "orders.confirmed"
	TopicOrdersShipped   = "orders.shipped"
	TopicOrdersCancelled = "orders.cancelled"
)

const (
	producer       = "kartcore"
	envelopeSchema = 1
)

var topics = map[string]string{
	EventOrderConfirmed: TopicOrdersConfirmed,
	EventOrderShipped:   TopicOrdersShipped,
	EventOrderCancelled: TopicOrdersCancelled,
}

// TopicFor returns the topic an event type is published to.
func TopicFor(eventType string) (string, bool) {
	t, ok := topics[eventType]
	return t, ok
}

// Envelope wraps every published payload.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id"`
	Payload       json.RawMessage `json:"payload"`
}

// ItemQty is one shipped line.
type ItemQty struct {
	ProductID  string           `json:"product_id"`
	Quantity   int              `json:"quantity"`
	Attributes model.Attributes `json:"attributes,omitempty"`
}

// OrderPayload is the order snapshot carried by every order event.
type OrderPayload struct {
	OrderID        string              `json:"order_id"`
	UserID         string              `json:"user_id"`
	AddressID      string              `json:"address_id"`
	Status         model.OrderStatus   `json:"status"`
	PaymentMethod  model.PaymentMethod `json:"payment_method"`
	PaymentStatus  model.PaymentStatus `json:"payment_status"`
	GrandTotal     int64               `json:"grand_total"`
	Courier        string              `json:"courier,omitempty"`
	TrackingNumber string              `json:"tracking_number,omitempty"`
	Items          []ItemQty           `json:"items"`
}

// NewOrderPayload snapshots an order.
func NewOrderPayload(order *model.Order) OrderPayload {
	p := OrderPayload{
		OrderID:       order.Number,
		UserID:        order.UserID,
		AddressID:     order.AddressID,
		Status:        order.Status,
		PaymentMethod: order.Payment.Method,
		PaymentStatus: order.Payment.Status,
		GrandTotal:    order.Totals.GrandTotal,
		Items:         make([]ItemQty, len(order.Items)),
	}
	if order.Shipment != nil {
		p.Courier = order.Shipment.Courier
		p.TrackingNumber = order.Shipment.TrackingNumber
	}
	for i, item := range order.Items {
		p.Items[i] = ItemQty{ProductID: item.ProductID, Quantity: item.Quantity, Attributes: item.Attributes}
	}
	return p
}

// NewOutboxMessage builds the outbox row for an order event.
func NewOutboxMessage(eventType string, order *model.Order, now time.Time) (*model.OutboxMessage, error) {
	topic, ok := TopicFor(eventType)
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	payload, err := json.Marshal(NewOrderPayload(order))
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}

	env := Envelope{
		EventID:       ulid.Make().String(),
		EventType:     eventType,
		EventVersion:  envelopeSchema,
		OccurredAt:    now.UTC(),
		Producer:      producer,
		CorrelationID: order.Number,
		Payload:       payload,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s envelope: %w", eventType, err)
	}

	return &model.OutboxMessage{
		EventID:   env.EventID,
		Topic:     topic,
		Key:       order.Number,
		Payload:   raw,
		CreatedAt: now,
	}, nil
}
