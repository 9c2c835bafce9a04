package kafka

import (
	"context"
	"time"
)

// Event represents a generic Kafka event
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	TenantID  string                 `json:"tenant_id,omitempty"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// CreditReplenishEvent is the payload the billing scheduler publishes once per
// billing period for every user with a monthly credit grant. Replays are safe:
// the ledger applies replenishment idempotently per (user_id, billing_period).
type CreditReplenishEvent struct {
	EventID       string    `json:"event_id"`
	UserID        string    `json:"user_id"`
	TenantID      string    `json:"tenant_id"`
	Amount        int64     `json:"amount"`
	BillingPeriod string    `json:"billing_period"`
	Timestamp     time.Time `json:"timestamp"`
	SchemaVersion string    `json:"schema_version"`
}

// LicenseEvent is published by the licensing service after every committed
// ledger mutation so downstream consumers (billing, analytics) can follow
// seat and credit movements without polling.
type LicenseEvent struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	Source        string    `json:"source"`
	TenantID      string    `json:"tenant_id,omitempty"`
	UserID        string    `json:"user_id"`
	TierID        *string   `json:"tier_id,omitempty"`
	Amount        int64     `json:"amount"`
	BalanceAfter  int64     `json:"balance_after"`
	Reference     *string   `json:"reference,omitempty"`
	SchemaVersion string    `json:"schema_version"`
}

// License event types.
const (
	EventLicenseAssigned    = "license-assigned"
	EventLicenseUnassigned  = "license-unassigned"
	EventLicenseUpgraded    = "license-upgraded"
	EventLicenseDowngraded  = "license-downgraded"
	EventCreditsDebited     = "credits-debited"
	EventCreditsReplenished = "credits-replenished"
	EventCreditsRefunded    = "credits-refunded"
	EventCreditsGranted     = "credits-granted"
)

// EventHandler interface for handling Kafka events
type EventHandler interface {
	HandleEvent(event Event) error
}

// ConsumerInterface defines the interface for Kafka consumers
type ConsumerInterface interface {
	Subscribe(topics []string) error
	Start(ctx context.Context) error
	Close() error
	GetMetrics() (map[string]interface{}, error)
	HealthCheck() error
}

// ProducerInterface defines the interface for Kafka producers
type ProducerInterface interface {
	ProduceMessage(topic string, key []byte, value []byte, headers map[string]string) error
	Close() error
	HealthCheck() error
	GetMetrics() (map[string]interface{}, error)
}
