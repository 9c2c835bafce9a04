package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"frameworks/api_licensing/pkg/logging"
	"frameworks/api_licensing/pkg/models"
)

// DebitResult reports a committed credit spend.
type DebitResult struct {
	UserID           string
	TenantID         string
	Amount           int64
	CreditsRemaining int64
	TransactionID    string
}

// Debit spends credits against the user's allocation. The whole amount is
// taken or nothing is: a balance short by even one credit fails with
// ErrInsufficientCredits and leaves the ledger untouched.
func (s *Store) Debit(ctx context.Context, userID string, amount int64, reference string) (*DebitResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var result *DebitResult

	err := s.inTx(ctx, "debit", func(tx *sql.Tx) error {
		state, err := lockUserLicense(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !state.HasActiveLicense(time.Now()) {
			return ErrNotLicensed
		}
		remaining := state.CreditsRemaining()
		if remaining < amount {
			return ErrInsufficientCredits
		}

		// The balance check is part of the update itself; a row that no
		// longer covers the amount is left untouched.
		res, err := tx.ExecContext(ctx, `
			UPDATE public.users
			SET credits_used = credits_used + $1,
			    updated_at = NOW()
			WHERE id = $2 AND credits_used + $1 <= credits_allocated
		`, amount, userID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrInsufficientCredits
		}

		txID, err := insertTransaction(ctx, tx, &models.LicenseTransaction{
			UserID:       userID,
			TenantID:     state.TenantID,
			Type:         models.TxDebit,
			Amount:       -amount,
			BalanceAfter: remaining - amount,
			Reference:    optionalString(reference),
		})
		if err != nil {
			return err
		}

		result = &DebitResult{
			UserID:           userID,
			TenantID:         state.TenantID,
			Amount:           amount,
			CreditsRemaining: remaining - amount,
			TransactionID:    txID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReplenishResult reports the outcome of a billing-cycle credit top-up.
// Applied is false when the period was already replenished and the call
// was a no-op.
type ReplenishResult struct {
	UserID           string
	TenantID         string
	Amount           int64
	BillingPeriod    string
	Applied          bool
	CreditsRemaining int64
}

// Replenish adds the monthly credit grant for one billing period, exactly
// once. The ledger row is inserted first under a partial unique index on
// (user_id, billing_period), so a redelivered billing event inserts nothing
// and the balance is left alone. Amount <= 0 falls back to the tier's
// monthly grant.
func (s *Store) Replenish(ctx context.Context, userID string, amount int64, billingPeriod string) (*ReplenishResult, error) {
	if billingPeriod == "" {
		return nil, ErrInvalidAmount
	}

	var result *ReplenishResult

	err := s.inTx(ctx, "replenish", func(tx *sql.Tx) error {
		state, err := lockUserLicense(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !state.HasActiveLicense(time.Now()) {
			return ErrNotLicensed
		}

		grant := amount
		if grant <= 0 {
			if state.CreditsPerMonth == nil || *state.CreditsPerMonth <= 0 {
				return ErrInvalidAmount
			}
			grant = *state.CreditsPerMonth
		}
		remaining := state.CreditsRemaining()

		res, err := tx.ExecContext(ctx, `
			INSERT INTO steward.license_transactions
				(user_id, tenant_id, tx_type, amount, balance_after, billing_period)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id, billing_period) WHERE tx_type = 'replenish' DO NOTHING
		`, userID, state.TenantID, models.TxReplenish, grant, remaining+grant, billingPeriod)
		if err != nil {
			return err
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if inserted == 0 {
			// Period already granted. Commit the no-op so the caller can
			// ack the event.
			result = &ReplenishResult{
				UserID:           userID,
				TenantID:         state.TenantID,
				Amount:           grant,
				BillingPeriod:    billingPeriod,
				Applied:          false,
				CreditsRemaining: remaining,
			}
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE public.users
			SET credits_allocated = credits_allocated + $1,
			    updated_at = NOW()
			WHERE id = $2
		`, grant, userID); err != nil {
			return err
		}

		result = &ReplenishResult{
			UserID:           userID,
			TenantID:         state.TenantID,
			Amount:           grant,
			BillingPeriod:    billingPeriod,
			Applied:          true,
			CreditsRemaining: remaining + grant,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Applied {
		s.logger.WithFields(logging.Fields{
			"user_id":        userID,
			"billing_period": billingPeriod,
			"amount":         result.Amount,
		}).Info("Replenished credits")
	} else {
		s.logger.WithFields(logging.Fields{
			"user_id":        userID,
			"billing_period": billingPeriod,
		}).Debug("Billing period already replenished, skipping")
	}
	return result, nil
}

// AdjustResult reports a committed balance correction (refund or grant).
type AdjustResult struct {
	UserID           string
	TenantID         string
	Amount           int64
	CreditsRemaining int64
	TransactionID    string
}

// Refund returns previously debited credits, clamped to what was actually
// spent. The ledger records the clamped amount.
func (s *Store) Refund(ctx context.Context, userID string, amount int64, reason string) (*AdjustResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var result *AdjustResult

	err := s.inTx(ctx, "refund", func(tx *sql.Tx) error {
		state, err := lockUserLicense(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !state.HasActiveLicense(time.Now()) {
			return ErrNotLicensed
		}

		refunded := amount
		if refunded > state.CreditsUsed {
			refunded = state.CreditsUsed
		}
		remaining := state.CreditsRemaining() + refunded

		if refunded > 0 {
			if _, err := tx.ExecContext(ctx, `
				UPDATE public.users
				SET credits_used = credits_used - $1,
				    updated_at = NOW()
				WHERE id = $2
			`, refunded, userID); err != nil {
				return err
			}
		}

		txID, err := insertTransaction(ctx, tx, &models.LicenseTransaction{
			UserID:       userID,
			TenantID:     state.TenantID,
			Type:         models.TxRefund,
			Amount:       refunded,
			BalanceAfter: remaining,
			Details: models.JSONB{
				"reason":           reason,
				"requested_amount": amount,
			},
		})
		if err != nil {
			return err
		}

		result = &AdjustResult{
			UserID:           userID,
			TenantID:         state.TenantID,
			Amount:           refunded,
			CreditsRemaining: remaining,
			TransactionID:    txID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logging.Fields{
		"user_id": userID,
		"amount":  result.Amount,
		"reason":  reason,
	}).Info("Refunded credits")
	return result, nil
}

// AdminGrant adds credits on top of the user's allocation outside the
// billing cycle. Used for support makegoods and trials.
func (s *Store) AdminGrant(ctx context.Context, userID string, amount int64, reason, grantedBy string) (*AdjustResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var result *AdjustResult

	err := s.inTx(ctx, "admin_grant", func(tx *sql.Tx) error {
		state, err := lockUserLicense(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !state.HasActiveLicense(time.Now()) {
			return ErrNotLicensed
		}
		remaining := state.CreditsRemaining() + amount

		if _, err := tx.ExecContext(ctx, `
			UPDATE public.users
			SET credits_allocated = credits_allocated + $1,
			    updated_at = NOW()
			WHERE id = $2
		`, amount, userID); err != nil {
			return err
		}

		txID, err := insertTransaction(ctx, tx, &models.LicenseTransaction{
			UserID:       userID,
			TenantID:     state.TenantID,
			Type:         models.TxAdminGrant,
			Amount:       amount,
			BalanceAfter: remaining,
			Details: models.JSONB{
				"reason":     reason,
				"granted_by": grantedBy,
			},
		})
		if err != nil {
			return err
		}

		result = &AdjustResult{
			UserID:           userID,
			TenantID:         state.TenantID,
			Amount:           amount,
			CreditsRemaining: remaining,
			TransactionID:    txID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logging.Fields{
		"user_id":    userID,
		"amount":     amount,
		"granted_by": grantedBy,
	}).Info("Granted credits")
	return result, nil
}

// CreditStatus summarizes the user's balance without taking locks. The
// snapshot may trail an in-flight mutation; callers wanting a decision they
// can act on atomically should use Debit.
func (s *Store) CreditStatus(ctx context.Context, userID string) (*models.CreditStatus, error) {
	state, err := s.UserLicense(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	remaining := state.CreditsRemaining()
	status := &models.CreditStatus{
		UserID:           state.UserID,
		CreditsAllocated: state.CreditsAllocated,
		CreditsUsed:      state.CreditsUsed,
		CreditsRemaining: remaining,
		CreditsPerMonth:  state.CreditsPerMonth,
		LicenseIsActive:  state.HasActiveLicense(now),
	}
	if state.CreditsAllocated > 0 {
		status.UsagePercent = float64(state.CreditsUsed) / float64(state.CreditsAllocated) * 100
	}
	status.CanExecute = status.LicenseIsActive && remaining > 0
	status.IsLowCredits = status.LicenseIsActive && remaining > 0 && remaining <= state.CreditsAllocated/10
	status.IsOutOfCredits = status.LicenseIsActive && remaining <= 0

	if state.TierID != nil {
		var summary models.TierSummary
		err := s.db.QueryRowContext(ctx, `
			SELECT id, display_name, default_credits
			FROM steward.license_tiers
			WHERE id = $1
		`, *state.TierID).Scan(&summary.ID, &summary.Name, &summary.DefaultCredits)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Tier row gone; status still reports the raw balance.
		case err != nil:
			return nil, err
		default:
			status.Tier = &summary
		}
	}
	return status, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
