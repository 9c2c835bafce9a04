package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"frameworks/api_licensing/internal/ledger"
	"frameworks/api_licensing/pkg/config"
	"frameworks/api_licensing/pkg/kafka"
	"frameworks/api_licensing/pkg/logging"
	"frameworks/api_licensing/pkg/models"
)

// JobManager handles background licensing jobs: consuming billing replenish
// events, sweeping expired licenses and applying remote cache invalidations
type JobManager struct {
	db       *sql.DB
	logger   logging.Logger
	licenses *ledger.Store
	consumer *kafka.Consumer
	topic    string
	stopCh   chan struct{}
}

// NewJobManager creates a new job manager for licensing background tasks.
// The producer, when present, backs the consumer's dead letter queue.
func NewJobManager(database *sql.DB, log logging.Logger, producer *kafka.KafkaProducer) *JobManager {
	brokers := strings.Split(config.GetEnv("KAFKA_BROKERS", "kafka:9092"), ",")
	clusterID := config.GetEnv("KAFKA_CLUSTER_ID", "local")
	clientID := config.GetEnv("KAFKA_CLIENT_ID", "steward")
	groupID := config.GetEnv("KAFKA_GROUP_ID", "steward-group")
	topic := config.GetEnv("KAFKA_REPLENISH_TOPIC", "billing.credit.replenish")

	consumer, err := kafka.NewConsumer(brokers, groupID, clusterID, clientID, log)
	if err != nil {
		log.WithError(err).Error("Failed to create Kafka consumer, replenish events disabled")
		// Don't fatal here, allow the API to start without a consumer
	}
	if consumer != nil && producer != nil {
		consumer.SetDLQ(producer)
	}

	return &JobManager{
		db:       database,
		logger:   log,
		licenses: ledger.NewStore(database, log),
		consumer: consumer,
		topic:    topic,
		stopCh:   make(chan struct{}),
	}
}

// Start begins background job processing
func (jm *JobManager) Start(ctx context.Context) {
	jm.logger.Info("Starting licensing job manager")

	if jm.consumer != nil {
		jm.consumer.AddHandler(jm.topic, jm.handleReplenishMessage)
		go func() {
			if err := jm.consumer.Start(ctx); err != nil {
				jm.logger.WithError(err).Error("Kafka consumer stopped")
			}
		}()
	}

	go jm.expiryLoop(ctx)

	if events != nil && events.pubsub != nil {
		go jm.subscribeInvalidations(ctx)
	}
}

// Stop gracefully stops all background jobs
func (jm *JobManager) Stop() {
	jm.logger.Info("Stopping licensing job manager")
	if jm.consumer != nil {
		jm.consumer.Close()
	}
	close(jm.stopCh)
}

// Consumer exposes the replenish consumer for health checks. Nil when the
// consumer could not be created.
func (jm *JobManager) Consumer() *kafka.Consumer {
	return jm.consumer
}

// handleReplenishMessage applies one billing replenish event. Undecodable
// events are flagged unprocessable so the consumer dead letters them rather
// than wedging the partition; only storage failures are surfaced for
// redelivery.
func (jm *JobManager) handleReplenishMessage(ctx context.Context, msg kafka.Message) error {
	var event kafka.CreditReplenishEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		recordReplenish("rejected")
		jm.logger.WithFields(logging.Fields{
			"error": err,
			"topic": msg.Topic,
		}).Error("Failed to parse replenish event")
		return fmt.Errorf("parse replenish event: %w", kafka.ErrUnprocessable)
	}
	if event.UserID == "" || event.BillingPeriod == "" {
		recordReplenish("rejected")
		jm.logger.WithFields(logging.Fields{
			"event_id": event.EventID,
			"topic":    msg.Topic,
		}).Error("Replenish event missing user or billing period")
		return fmt.Errorf("replenish event missing user or billing period: %w", kafka.ErrUnprocessable)
	}

	result, err := jm.licenses.Replenish(ctx, event.UserID, event.Amount, event.BillingPeriod)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) || errors.Is(err, ledger.ErrNotLicensed) || errors.Is(err, ledger.ErrInvalidAmount) {
			// Redelivery cannot fix these; ack and move on.
			jm.logger.WithFields(logging.Fields{
				"error":          err,
				"user_id":        event.UserID,
				"billing_period": event.BillingPeriod,
			}).Warn("Replenish event not applicable, skipping")
			return nil
		}
		recordTransaction(models.TxReplenish, "error")
		return err
	}

	if !result.Applied {
		recordReplenish("duplicate")
		jm.logger.WithFields(logging.Fields{
			"user_id":        event.UserID,
			"billing_period": event.BillingPeriod,
		}).Debug("Billing period already replenished, acking duplicate")
		return nil
	}

	recordTransaction(models.TxReplenish, "success")
	recordReplenish("applied")
	events.CreditsReplenished(result)

	jm.logger.WithFields(logging.Fields{
		"user_id":        event.UserID,
		"billing_period": event.BillingPeriod,
		"amount":         result.Amount,
	}).Info("Replenished credits from billing event")
	return nil
}

// expiryLoop sweeps expired licenses hourly
func (jm *JobManager) expiryLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	jm.expireOverdueLicenses(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-jm.stopCh:
			return
		case <-ticker.C:
			jm.expireOverdueLicenses(ctx)
		}
	}
}

// expireOverdueLicenses releases every seat whose expiry has passed and
// fans out the resulting unassignments
func (jm *JobManager) expireOverdueLicenses(ctx context.Context) {
	released, err := jm.licenses.ExpireOverdueLicenses(ctx)
	if err != nil {
		jm.logger.WithError(err).Error("License expiry sweep failed")
		return
	}
	for _, result := range released {
		recordTransaction(models.TxUnassign, "success")
		recordPoolAvailable(result.TenantID, result.ReleasedTierID, result.SeatsAvailable)
		events.LicenseUnassigned(result)
	}
	if len(released) > 0 {
		jm.logger.WithFields(logging.Fields{
			"count": len(released),
		}).Info("Expired overdue licenses")
	}
}

// subscribeInvalidations applies invalidation events published by other
// instances to the local resolver cache
func (jm *JobManager) subscribeInvalidations(ctx context.Context) {
	go func() {
		if err := events.pubsub.Subscribe(ctx, ChannelInvalidateUser, jm.applyUserInvalidation); err != nil {
			jm.logger.WithError(err).Error("User invalidation subscriber stopped")
		}
	}()
	if err := events.pubsub.Subscribe(ctx, ChannelInvalidateTier, jm.applyTierInvalidation); err != nil {
		jm.logger.WithError(err).Error("Tier invalidation subscriber stopped")
	}
}

func (jm *JobManager) applyUserInvalidation(event InvalidationEvent) {
	if event.Origin == events.origin || event.UserID == "" {
		return
	}
	features.InvalidateUser(event.UserID)
	jm.logger.WithFields(logging.Fields{
		"user_id": event.UserID,
	}).Debug("Applied remote user invalidation")
}

func (jm *JobManager) applyTierInvalidation(event InvalidationEvent) {
	if event.Origin == events.origin || event.TierID == "" {
		return
	}
	dropped := features.InvalidateTier(event.TierID)
	jm.logger.WithFields(logging.Fields{
		"tier_id": event.TierID,
		"dropped": dropped,
	}).Debug("Applied remote tier invalidation")
}
