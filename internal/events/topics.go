package events

import (
	"time"

	"github.com/noah-isme/toko-checkout/internal/pricing"
)

// Topic constants for domain events emitted by the checkout service.
const (
	TopicSessionStarted = "session.started"
	TopicOrderConfirmed = "order.confirmed"
)

// DefaultTopics returns the canonical list of topics.
func DefaultTopics() []string {
	return []string{TopicSessionStarted, TopicOrderConfirmed}
}

// SessionStarted is the payload of TopicSessionStarted.
type SessionStarted struct {
	SessionID string    `json:"sessionId"`
	StartedAt time.Time `json:"startedAt"`
}

// OrderConfirmed is the payload of TopicOrderConfirmed.
type OrderConfirmed struct {
	SessionID   string        `json:"sessionId"`
	Total       pricing.Money `json:"total"`
	Units       int           `json:"units"`
	Currency    string        `json:"currency,omitempty"`
	ConfirmedAt time.Time     `json:"confirmedAt"`
}
