package ledger

import (
	"context"
	"database/sql"

	"frameworks/api_licensing/pkg/models"
)

const transactionColumns = `id, user_id, tenant_id, tx_type, amount, balance_after, reference, billing_period, details, created_at`

const defaultTransactionLimit = 50
const maxTransactionLimit = 500

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		return maxTransactionLimit
	}
	return limit
}

// ListTransactions returns the user's ledger history, newest first.
func (s *Store) ListTransactions(ctx context.Context, userID string, limit int) ([]models.LicenseTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM steward.license_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListTenantTransactions returns the tenant-wide ledger history, newest
// first. Used by tenant admins auditing seat and credit movement.
func (s *Store) ListTenantTransactions(ctx context.Context, tenantID string, limit int) ([]models.LicenseTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM steward.license_transactions
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, tenantID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]models.LicenseTransaction, error) {
	var txs []models.LicenseTransaction
	for rows.Next() {
		var t models.LicenseTransaction
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.TenantID, &t.Type, &t.Amount, &t.BalanceAfter,
			&t.Reference, &t.BillingPeriod, &t.Details, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
