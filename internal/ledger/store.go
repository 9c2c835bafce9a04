package ledger

import (
	"context"
	"database/sql"
	"errors"

	"frameworks/api_licensing/pkg/logging"
	"frameworks/api_licensing/pkg/models"
)

// Store is the license pool and credit ledger. Every mutation runs as a
// single transaction that locks the affected user row (and pool rows) with
// SELECT FOR UPDATE, so per-user and per-pool histories are linearizable.
// The audit trail in license_transactions is append-only.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

func NewStore(db *sql.DB, logger logging.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// maxAttempts bounds retries after serialization failures and deadlocks.
const maxAttempts = 3

// inTx runs fn inside a transaction and retries a bounded number of times
// when Postgres reports a concurrency conflict. fn must be safe to re-run.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = s.runOnce(ctx, fn)
		if !errors.Is(err, ErrConcurrentModification) {
			return err
		}
		s.logger.WithFields(logging.Fields{
			"operation": op,
			"attempt":   attempt,
		}).Warn("Retrying ledger transaction after concurrent modification")
	}
	return err
}

func (s *Store) runOnce(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback is best-effort

	if err := fn(tx); err != nil {
		return s.classify(err)
	}
	if err := tx.Commit(); err != nil {
		return s.classify(err)
	}
	return nil
}

func (s *Store) classify(err error) error {
	if isConcurrencyError(err) {
		s.logger.WithError(err).Debug("Ledger transaction hit a concurrency conflict")
		return ErrConcurrentModification
	}
	return err
}

const userLicenseColumns = `id, tenant_id, license_tier_id, license_is_active, credits_allocated,
		credits_used, credits_per_month, license_assigned_at, license_assigned_by, license_expires_at`

func scanUserLicense(row interface{ Scan(...interface{}) error }) (*models.UserLicenseState, error) {
	var st models.UserLicenseState
	err := row.Scan(
		&st.UserID, &st.TenantID, &st.TierID, &st.LicenseIsActive, &st.CreditsAllocated,
		&st.CreditsUsed, &st.CreditsPerMonth, &st.AssignedAt, &st.AssignedBy, &st.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// UserLicense returns the license slice of a user row without locking it.
func (s *Store) UserLicense(ctx context.Context, userID string) (*models.UserLicenseState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userLicenseColumns+`
		FROM public.users
		WHERE id = $1
	`, userID)
	return scanUserLicense(row)
}

func lockUserLicense(ctx context.Context, tx *sql.Tx, userID string) (*models.UserLicenseState, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+userLicenseColumns+`
		FROM public.users
		WHERE id = $1
		FOR UPDATE
	`, userID)
	return scanUserLicense(row)
}

// activeTier reads a tier inside a transaction. Inactive tiers cannot be
// assigned to.
func activeTier(ctx context.Context, tx *sql.Tx, tierID string) (*models.LicenseTier, error) {
	var t models.LicenseTier
	err := tx.QueryRowContext(ctx, `
		SELECT id, tier_name, display_name, default_credits, credits_per_month,
		       max_seats_per_tenant, sort_order
		FROM steward.license_tiers
		WHERE id = $1 AND is_active = true
	`, tierID).Scan(
		&t.ID, &t.TierName, &t.DisplayName, &t.DefaultCredits, &t.CreditsPerMonth,
		&t.MaxSeatsPerTenant, &t.SortOrder,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func lockPool(ctx context.Context, tx *sql.Tx, tenantID, tierID string) (*models.TenantLicensePool, error) {
	var p models.TenantLicensePool
	err := tx.QueryRowContext(ctx, `
		SELECT id, tenant_id, tier_id, total_count, assigned_count, available_count
		FROM steward.tenant_license_pools
		WHERE tenant_id = $1 AND tier_id = $2
		FOR UPDATE
	`, tenantID, tierID).Scan(
		&p.ID, &p.TenantID, &p.TierID, &p.TotalCount, &p.AssignedCount, &p.AvailableCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// takeSeat is a conditional update; available_count can never go negative.
func takeSeat(ctx context.Context, tx *sql.Tx, poolID string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE steward.tenant_license_pools
		SET assigned_count = assigned_count + 1,
		    available_count = available_count - 1,
		    updated_at = NOW()
		WHERE id = $1 AND available_count > 0
	`, poolID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPoolExhausted
	}
	return nil
}

// releaseSeat mirrors takeSeat; releasing an empty pool is a no-op.
func releaseSeat(ctx context.Context, tx *sql.Tx, poolID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE steward.tenant_license_pools
		SET assigned_count = assigned_count - 1,
		    available_count = available_count + 1,
		    updated_at = NOW()
		WHERE id = $1 AND assigned_count > 0
	`, poolID)
	return err
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t *models.LicenseTransaction) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `
		INSERT INTO steward.license_transactions
			(user_id, tenant_id, tx_type, amount, balance_after, reference, billing_period, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, t.UserID, t.TenantID, t.Type, t.Amount, t.BalanceAfter,
		t.Reference, t.BillingPeriod, t.Details,
	).Scan(&id)
	return id, err
}
