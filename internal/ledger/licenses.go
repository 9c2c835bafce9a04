package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"frameworks/api_licensing/pkg/logging"
	"frameworks/api_licensing/pkg/models"
)

// AssignResult reports a committed seat assignment.
type AssignResult struct {
	UserID           string
	TenantID         string
	TierID           string
	CreditsAllocated int64
	ExpiresAt        *time.Time
	SeatsAvailable   int
	TransactionID    string
}

// Assign takes one seat from the tenant's pool for the given tier and puts
// the user on it with the tier's credit grant. Fails with ErrAlreadyLicensed
// when the user holds an unexpired license, ErrPoolExhausted when the tenant
// has no free seat for the tier.
func (s *Store) Assign(ctx context.Context, userID, tierID, assignedBy string, expiresAt *time.Time) (*AssignResult, error) {
	var result *AssignResult

	err := s.inTx(ctx, "assign", func(tx *sql.Tx) error {
		state, err := lockUserLicense(ctx, tx, userID)
		if err != nil {
			return err
		}
		if state.HasActiveLicense(time.Now()) {
			return ErrAlreadyLicensed
		}

		tier, err := activeTier(ctx, tx, tierID)
		if err != nil {
			return err
		}

		// A lapsed license keeps its seat until released; fold that
		// release into this assignment so the user never holds two seats.
		staleTierID := ""
		if state.TierID != nil {
			staleTierID = *state.TierID
		}

		// Pools lock in tier-id order so overlapping assignments cannot
		// deadlock.
		lockOrder := []string{tierID}
		if staleTierID != "" && staleTierID != tierID {
			lockOrder = []string{staleTierID, tierID}
			if tierID < staleTierID {
				lockOrder = []string{tierID, staleTierID}
			}
		}
		pools := map[string]*models.TenantLicensePool{}
		for _, id := range lockOrder {
			pool, err := lockPool(ctx, tx, state.TenantID, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			pools[id] = pool
		}

		pool := pools[tierID]
		if pool == nil {
			// No pool row means the tenant never bought seats for this tier.
			return ErrPoolExhausted
		}

		seatsAvailable := pool.AvailableCount
		if staleTierID != "" {
			if stale := pools[staleTierID]; stale != nil && stale.AssignedCount > 0 {
				if err := releaseSeat(ctx, tx, stale.ID); err != nil {
					return err
				}
				if stale.ID == pool.ID {
					seatsAvailable++
				}
			}
		}
		if seatsAvailable <= 0 {
			return ErrPoolExhausted
		}
		if err := takeSeat(ctx, tx, pool.ID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE public.users
			SET license_tier_id = $1,
			    license_is_active = true,
			    credits_allocated = $2,
			    credits_used = 0,
			    credits_per_month = $3,
			    license_assigned_at = NOW(),
			    license_assigned_by = NULLIF($4, '')::uuid,
			    license_expires_at = $5,
			    updated_at = NOW()
			WHERE id = $6
		`, tier.ID, tier.DefaultCredits, tier.CreditsPerMonth, assignedBy, expiresAt, userID); err != nil {
			return err
		}

		txID, err := insertTransaction(ctx, tx, &models.LicenseTransaction{
			UserID:       userID,
			TenantID:     state.TenantID,
			Type:         models.TxAssign,
			Amount:       tier.DefaultCredits,
			BalanceAfter: tier.DefaultCredits,
			Details: models.JSONB{
				"tier_id":     tier.ID,
				"tier_name":   tier.TierName,
				"assigned_by": assignedBy,
			},
		})
		if err != nil {
			return err
		}

		result = &AssignResult{
			UserID:           userID,
			TenantID:         state.TenantID,
			TierID:           tier.ID,
			CreditsAllocated: tier.DefaultCredits,
			ExpiresAt:        expiresAt,
			SeatsAvailable:   seatsAvailable - 1,
			TransactionID:    txID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logging.Fields{
		"user_id": userID,
		"tier_id": tierID,
		"credits": result.CreditsAllocated,
	}).Info("Assigned license")
	return result, nil
}

// UnassignResult reports a committed seat release.
type UnassignResult struct {
	UserID         string
	TenantID       string
	ReleasedTierID string
	SeatsAvailable int
	TransactionID  string
}

// Unassign releases the user's seat back to the pool and forfeits any
// remaining credits. Expired licenses can still be released. ErrNotLicensed
// when the user holds no seat at all.
func (s *Store) Unassign(ctx context.Context, userID, reason string) (*UnassignResult, error) {
	var result *UnassignResult

	err := s.inTx(ctx, "unassign", func(tx *sql.Tx) error {
		state, err := lockUserLicense(ctx, tx, userID)
		if err != nil {
			return err
		}
		if state.TierID == nil {
			return ErrNotLicensed
		}
		releasedTierID := *state.TierID

		seatsAvailable := 0
		pool, err := lockPool(ctx, tx, state.TenantID, releasedTierID)
		switch {
		case errors.Is(err, ErrNotFound):
			// Pool rows are never deleted while seats are out, but a
			// missing row must not wedge the release.
			s.logger.WithFields(logging.Fields{
				"user_id": userID,
				"tier_id": releasedTierID,
			}).Warn("Releasing seat without a pool row")
		case err != nil:
			return err
		case pool.AssignedCount > 0:
			if err := releaseSeat(ctx, tx, pool.ID); err != nil {
				return err
			}
			seatsAvailable = pool.AvailableCount + 1
		default:
			seatsAvailable = pool.AvailableCount
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE public.users
			SET license_tier_id = NULL,
			    license_is_active = false,
			    credits_allocated = 0,
			    credits_used = 0,
			    credits_per_month = NULL,
			    license_assigned_at = NULL,
			    license_assigned_by = NULL,
			    license_expires_at = NULL,
			    updated_at = NOW()
			WHERE id = $1
		`, userID); err != nil {
			return err
		}

		forfeited := state.CreditsRemaining()
		txID, err := insertTransaction(ctx, tx, &models.LicenseTransaction{
			UserID:       userID,
			TenantID:     state.TenantID,
			Type:         models.TxUnassign,
			Amount:       -forfeited,
			BalanceAfter: 0,
			Details: models.JSONB{
				"released_tier_id":  releasedTierID,
				"reason":            reason,
				"credits_forfeited": forfeited,
			},
		})
		if err != nil {
			return err
		}

		result = &UnassignResult{
			UserID:         userID,
			TenantID:       state.TenantID,
			ReleasedTierID: releasedTierID,
			SeatsAvailable: seatsAvailable,
			TransactionID:  txID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logging.Fields{
		"user_id": userID,
		"tier_id": result.ReleasedTierID,
		"reason":  reason,
	}).Info("Unassigned license")
	return result, nil
}

// UpgradeResult reports a committed tier change.
type UpgradeResult struct {
	UserID           string
	TenantID         string
	OldTierID        string
	NewTierID        string
	CreditsAllocated int64
	Downgrade        bool
	TransactionID    string
}

// Upgrade moves the user to a different tier in one transaction: the old
// seat goes back to its pool, a new seat is taken, and credits are regranted.
// With preserveCredits the unspent balance carries over on top of the new
// tier's grant. If the new pool has no seat the whole move rolls back and
// the user keeps the old license.
func (s *Store) Upgrade(ctx context.Context, userID, newTierID string, preserveCredits bool, changedBy string) (*UpgradeResult, error) {
	var result *UpgradeResult

	err := s.inTx(ctx, "upgrade", func(tx *sql.Tx) error {
		state, err := lockUserLicense(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !state.HasActiveLicense(time.Now()) {
			return ErrNotLicensed
		}
		oldTierID := *state.TierID
		if oldTierID == newTierID {
			return ErrAlreadyLicensed
		}

		oldTier, err := activeTier(ctx, tx, oldTierID)
		if errors.Is(err, ErrNotFound) {
			// The old tier may have been retired since assignment; the
			// move away from it is still valid.
			oldTier = &models.LicenseTier{ID: oldTierID}
		} else if err != nil {
			return err
		}
		newTier, err := activeTier(ctx, tx, newTierID)
		if err != nil {
			return err
		}

		// Pools are locked in tier-id order so two opposite upgrades
		// cannot deadlock.
		firstTier, secondTier := oldTierID, newTierID
		if secondTier < firstTier {
			firstTier, secondTier = secondTier, firstTier
		}
		pools := map[string]*models.TenantLicensePool{}
		for _, tierID := range []string{firstTier, secondTier} {
			pool, err := lockPool(ctx, tx, state.TenantID, tierID)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			pools[tierID] = pool
		}

		newPool := pools[newTierID]
		if newPool == nil || newPool.AvailableCount <= 0 {
			return ErrPoolExhausted
		}
		if err := takeSeat(ctx, tx, newPool.ID); err != nil {
			return err
		}
		if oldPool := pools[oldTierID]; oldPool != nil && oldPool.AssignedCount > 0 {
			if err := releaseSeat(ctx, tx, oldPool.ID); err != nil {
				return err
			}
		}

		creditsBefore := state.CreditsRemaining()
		carried := int64(0)
		if preserveCredits {
			carried = creditsBefore
		}
		newAllocation := newTier.DefaultCredits + carried

		if _, err := tx.ExecContext(ctx, `
			UPDATE public.users
			SET license_tier_id = $1,
			    credits_allocated = $2,
			    credits_used = 0,
			    credits_per_month = $3,
			    license_assigned_at = NOW(),
			    license_assigned_by = NULLIF($4, '')::uuid,
			    updated_at = NOW()
			WHERE id = $5
		`, newTier.ID, newAllocation, newTier.CreditsPerMonth, changedBy, userID); err != nil {
			return err
		}

		txType := models.TxUpgrade
		if newTier.SortOrder < oldTier.SortOrder {
			txType = models.TxDowngrade
		}
		txID, err := insertTransaction(ctx, tx, &models.LicenseTransaction{
			UserID:       userID,
			TenantID:     state.TenantID,
			Type:         txType,
			Amount:       newAllocation,
			BalanceAfter: newAllocation,
			Details: models.JSONB{
				"old_tier_id":      oldTierID,
				"new_tier_id":      newTier.ID,
				"preserve_credits": preserveCredits,
				"credits_before":   creditsBefore,
				"credits_carried":  carried,
				"changed_by":       changedBy,
			},
		})
		if err != nil {
			return err
		}

		result = &UpgradeResult{
			UserID:           userID,
			TenantID:         state.TenantID,
			OldTierID:        oldTierID,
			NewTierID:        newTier.ID,
			CreditsAllocated: newAllocation,
			Downgrade:        txType == models.TxDowngrade,
			TransactionID:    txID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logging.Fields{
		"user_id":     userID,
		"old_tier_id": result.OldTierID,
		"new_tier_id": result.NewTierID,
		"credits":     result.CreditsAllocated,
	}).Info("Changed license tier")
	return result, nil
}

// ExpireOverdueLicenses releases every seat whose expiry has passed. Each
// release is its own transaction so one wedged row cannot block the sweep.
func (s *Store) ExpireOverdueLicenses(ctx context.Context) ([]*UnassignResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id
		FROM public.users
		WHERE license_is_active = true
		  AND license_expires_at IS NOT NULL
		  AND license_expires_at < NOW()
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var released []*UnassignResult
	for _, userID := range userIDs {
		result, err := s.Unassign(ctx, userID, "expired")
		if errors.Is(err, ErrNotLicensed) || errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Error("Failed to expire license")
			continue
		}
		released = append(released, result)
	}
	return released, nil
}
