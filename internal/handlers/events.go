package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"frameworks/api_licensing/internal/ledger"
	"frameworks/api_licensing/pkg/kafka"
	"frameworks/api_licensing/pkg/logging"
	redispkg "frameworks/api_licensing/pkg/redis"
)

// Invalidation fan-out channels. The local cache is invalidated directly;
// other instances listen on Redis when it is configured.
const (
	ChannelInvalidateUser = "steward:invalidate:user"
	ChannelInvalidateTier = "steward:invalidate:tier"
)

// InvalidationEvent tells other instances to drop cached feature sets.
// Origin identifies the publishing instance so it can skip its own events.
type InvalidationEvent struct {
	UserID string `json:"user_id,omitempty"`
	TierID string `json:"tier_id,omitempty"`
	Origin string `json:"origin,omitempty"`
}

// EventPublisher fans out committed ledger mutations: audit events to Kafka
// for downstream consumers, cache invalidation locally and over Redis.
// Fan-out is best-effort and never fails the request; the ledger row is the
// source of truth.
type EventPublisher struct {
	producer *kafka.KafkaProducer
	pubsub   *redispkg.TypedPubSub[InvalidationEvent]
	origin   string
	logger   logging.Logger
}

// NewEventPublisher creates an event publisher. Both producer and redis
// client are optional; a nil dependency disables that fan-out path.
func NewEventPublisher(producer *kafka.KafkaProducer, redisClient goredis.UniversalClient, log logging.Logger) *EventPublisher {
	p := &EventPublisher{
		producer: producer,
		origin:   uuid.New().String(),
		logger:   log,
	}
	if redisClient != nil {
		p.pubsub = redispkg.NewTypedPubSub[InvalidationEvent](redisClient)
	}
	return p
}

// LicenseAssigned publishes the assignment and drops the user's cached set
func (p *EventPublisher) LicenseAssigned(res *ledger.AssignResult) {
	p.InvalidateUser(res.UserID)
	p.publish(&kafka.LicenseEvent{
		EventID:       uuid.New().String(),
		EventType:     kafka.EventLicenseAssigned,
		Timestamp:     time.Now().UTC(),
		Source:        "steward",
		TenantID:      res.TenantID,
		UserID:        res.UserID,
		TierID:        &res.TierID,
		Amount:        res.CreditsAllocated,
		BalanceAfter:  res.CreditsAllocated,
		Reference:     &res.TransactionID,
		SchemaVersion: "1.0",
	})
}

// LicenseUnassigned publishes the release and drops the user's cached set
func (p *EventPublisher) LicenseUnassigned(res *ledger.UnassignResult) {
	p.InvalidateUser(res.UserID)
	p.publish(&kafka.LicenseEvent{
		EventID:       uuid.New().String(),
		EventType:     kafka.EventLicenseUnassigned,
		Timestamp:     time.Now().UTC(),
		Source:        "steward",
		TenantID:      res.TenantID,
		UserID:        res.UserID,
		TierID:        &res.ReleasedTierID,
		BalanceAfter:  0,
		Reference:     &res.TransactionID,
		SchemaVersion: "1.0",
	})
}

// LicenseUpgraded publishes the tier change and drops the user's cached set
func (p *EventPublisher) LicenseUpgraded(res *ledger.UpgradeResult) {
	p.InvalidateUser(res.UserID)
	eventType := kafka.EventLicenseUpgraded
	if res.Downgrade {
		eventType = kafka.EventLicenseDowngraded
	}
	p.publish(&kafka.LicenseEvent{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Timestamp:     time.Now().UTC(),
		Source:        "steward",
		TenantID:      res.TenantID,
		UserID:        res.UserID,
		TierID:        &res.NewTierID,
		Amount:        res.CreditsAllocated,
		BalanceAfter:  res.CreditsAllocated,
		Reference:     &res.TransactionID,
		SchemaVersion: "1.0",
	})
}

// CreditsDebited publishes a usage debit. Credits do not feed feature
// resolution, so no invalidation happens.
func (p *EventPublisher) CreditsDebited(res *ledger.DebitResult) {
	p.publish(&kafka.LicenseEvent{
		EventID:       uuid.New().String(),
		EventType:     kafka.EventCreditsDebited,
		Timestamp:     time.Now().UTC(),
		Source:        "steward",
		TenantID:      res.TenantID,
		UserID:        res.UserID,
		Amount:        res.Amount,
		BalanceAfter:  res.CreditsRemaining,
		Reference:     &res.TransactionID,
		SchemaVersion: "1.0",
	})
}

// CreditsReplenished publishes an applied billing-cycle top-up
func (p *EventPublisher) CreditsReplenished(res *ledger.ReplenishResult) {
	p.publish(&kafka.LicenseEvent{
		EventID:       uuid.New().String(),
		EventType:     kafka.EventCreditsReplenished,
		Timestamp:     time.Now().UTC(),
		Source:        "steward",
		TenantID:      res.TenantID,
		UserID:        res.UserID,
		Amount:        res.Amount,
		BalanceAfter:  res.CreditsRemaining,
		Reference:     &res.BillingPeriod,
		SchemaVersion: "1.0",
	})
}

// CreditsGranted publishes an administrative credit grant
func (p *EventPublisher) CreditsGranted(res *ledger.AdjustResult) {
	p.publish(&kafka.LicenseEvent{
		EventID:       uuid.New().String(),
		EventType:     kafka.EventCreditsGranted,
		Timestamp:     time.Now().UTC(),
		Source:        "steward",
		TenantID:      res.TenantID,
		UserID:        res.UserID,
		Amount:        res.Amount,
		BalanceAfter:  res.CreditsRemaining,
		Reference:     &res.TransactionID,
		SchemaVersion: "1.0",
	})
}

// CreditsRefunded publishes a credit refund
func (p *EventPublisher) CreditsRefunded(res *ledger.AdjustResult) {
	p.publish(&kafka.LicenseEvent{
		EventID:       uuid.New().String(),
		EventType:     kafka.EventCreditsRefunded,
		Timestamp:     time.Now().UTC(),
		Source:        "steward",
		TenantID:      res.TenantID,
		UserID:        res.UserID,
		Amount:        res.Amount,
		BalanceAfter:  res.CreditsRemaining,
		Reference:     &res.TransactionID,
		SchemaVersion: "1.0",
	})
}

// InvalidateUser drops the user's cached feature set on every instance
func (p *EventPublisher) InvalidateUser(userID string) {
	if features != nil {
		features.InvalidateUser(userID)
	}
	p.broadcast(ChannelInvalidateUser, InvalidationEvent{UserID: userID, Origin: p.origin})
}

// TierChanged drops the cached sets of every user on the tier, everywhere
func (p *EventPublisher) TierChanged(tierID string) {
	if features != nil {
		dropped := features.InvalidateTier(tierID)
		p.logger.WithFields(logging.Fields{
			"tier_id": tierID,
			"dropped": dropped,
		}).Debug("Invalidated tier feature sets")
	}
	p.broadcast(ChannelInvalidateTier, InvalidationEvent{TierID: tierID, Origin: p.origin})
}

func (p *EventPublisher) publish(event *kafka.LicenseEvent) {
	if p.producer == nil {
		return
	}
	if err := p.producer.PublishLicenseEvent(event); err != nil {
		p.logger.WithFields(logging.Fields{
			"error":      err,
			"event_type": event.EventType,
			"user_id":    event.UserID,
		}).Warn("Failed to publish license event")
	}
}

func (p *EventPublisher) broadcast(channel string, event InvalidationEvent) {
	if p.pubsub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.pubsub.Publish(ctx, channel, event); err != nil {
		p.logger.WithFields(logging.Fields{
			"error":   err,
			"channel": channel,
		}).Warn("Failed to broadcast invalidation")
	}
}
