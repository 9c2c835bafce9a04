package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"frameworks/api_licensing/pkg/logging"
	"frameworks/api_licensing/pkg/models"
)

const poolColumns = `id, tenant_id, tier_id, total_count, assigned_count, available_count, created_at, updated_at`

func scanPool(row interface{ Scan(...interface{}) error }) (*models.TenantLicensePool, error) {
	var p models.TenantLicensePool
	err := row.Scan(
		&p.ID, &p.TenantID, &p.TierID, &p.TotalCount, &p.AssignedCount,
		&p.AvailableCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PoolStatus is a pool row joined with its tier for admin listings.
type PoolStatus struct {
	models.TenantLicensePool
	TierName        string `json:"tier_name"`
	TierDisplayName string `json:"tier_display_name"`
}

// ListPools returns every seat pool the tenant owns, cheapest tier first.
func (s *Store) ListPools(ctx context.Context, tenantID string) ([]PoolStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.tenant_id, p.tier_id, p.total_count, p.assigned_count,
		       p.available_count, p.created_at, p.updated_at,
		       t.tier_name, t.display_name
		FROM steward.tenant_license_pools p
		JOIN steward.license_tiers t ON t.id = p.tier_id
		WHERE p.tenant_id = $1
		ORDER BY t.sort_order, t.tier_name
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pools []PoolStatus
	for rows.Next() {
		var p PoolStatus
		if err := rows.Scan(
			&p.ID, &p.TenantID, &p.TierID, &p.TotalCount, &p.AssignedCount,
			&p.AvailableCount, &p.CreatedAt, &p.UpdatedAt,
			&p.TierName, &p.TierDisplayName,
		); err != nil {
			return nil, err
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}

// GetPool returns the tenant's pool for one tier, without locking it.
func (s *Store) GetPool(ctx context.Context, tenantID, tierID string) (*models.TenantLicensePool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+poolColumns+`
		FROM steward.tenant_license_pools
		WHERE tenant_id = $1 AND tier_id = $2
	`, tenantID, tierID)
	return scanPool(row)
}

// SetPoolSize sets the tenant's seat total for a tier, creating the pool on
// first purchase. The total cannot drop below the seats already assigned and
// cannot exceed the tier's per-tenant cap; seats must be unassigned before
// they can be taken away.
func (s *Store) SetPoolSize(ctx context.Context, tenantID, tierID string, totalCount int) (*models.TenantLicensePool, error) {
	if totalCount < 0 {
		return nil, fmt.Errorf("%w: total_count cannot be negative", ErrInvalidPoolSize)
	}

	var result *models.TenantLicensePool

	err := s.inTx(ctx, "set_pool_size", func(tx *sql.Tx) error {
		tier, err := activeTier(ctx, tx, tierID)
		if err != nil {
			return err
		}
		if tier.MaxSeatsPerTenant != nil && totalCount > *tier.MaxSeatsPerTenant {
			return fmt.Errorf("%w: tier %s allows at most %d seats per tenant",
				ErrInvalidPoolSize, tier.TierName, *tier.MaxSeatsPerTenant)
		}

		pool, err := lockPool(ctx, tx, tenantID, tierID)
		if errors.Is(err, ErrNotFound) {
			row := tx.QueryRowContext(ctx, `
				INSERT INTO steward.tenant_license_pools
					(tenant_id, tier_id, total_count, assigned_count, available_count)
				VALUES ($1, $2, $3, 0, $3)
				RETURNING `+poolColumns+`
			`, tenantID, tierID, totalCount)
			result, err = scanPool(row)
			return err
		}
		if err != nil {
			return err
		}
		if totalCount < pool.AssignedCount {
			return fmt.Errorf("%w: %d seats are assigned, cannot shrink to %d",
				ErrInvalidPoolSize, pool.AssignedCount, totalCount)
		}

		row := tx.QueryRowContext(ctx, `
			UPDATE steward.tenant_license_pools
			SET total_count = $1,
			    available_count = $1 - assigned_count,
			    updated_at = NOW()
			WHERE id = $2
			RETURNING `+poolColumns+`
		`, totalCount, pool.ID)
		result, err = scanPool(row)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logging.Fields{
		"tenant_id": tenantID,
		"tier_id":   tierID,
		"total":     result.TotalCount,
		"available": result.AvailableCount,
	}).Info("Set license pool size")
	return result, nil
}
