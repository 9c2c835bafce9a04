package tiers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"frameworks/api_licensing/pkg/billing"
	"frameworks/api_licensing/pkg/logging"
	"frameworks/api_licensing/pkg/models"
)

var (
	ErrNotFound      = errors.New("tier not found")
	ErrDuplicateName = errors.New("tier name already exists")
	ErrNoFields      = errors.New("no fields to update")
)

// Store reads and writes license tiers and their feature overrides.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

func NewStore(db *sql.DB, logger logging.Logger) *Store {
	return &Store{db: db, logger: logger}
}

const tierColumns = `id, tier_name, display_name, description, default_credits, credits_per_month,
		base_price_cents, currency, max_seats_per_tenant, is_active, sort_order, created_at, updated_at`

// ListTiers returns tiers in sort order. Inactive tiers are only included
// for admin callers.
func (s *Store) ListTiers(ctx context.Context, includeInactive bool) ([]models.LicenseTier, error) {
	query := `
		SELECT ` + tierColumns + `
		FROM steward.license_tiers
		WHERE is_active = true
		ORDER BY sort_order, tier_name
	`
	if includeInactive {
		query = `
			SELECT ` + tierColumns + `
			FROM steward.license_tiers
			ORDER BY sort_order, tier_name
		`
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []models.LicenseTier
	for rows.Next() {
		tier, err := scanTier(rows)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, *tier)
	}
	return tiers, rows.Err()
}

// GetTier returns one tier by ID, ErrNotFound when it does not exist.
func (s *Store) GetTier(ctx context.Context, tierID string) (*models.LicenseTier, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+tierColumns+`
		FROM steward.license_tiers
		WHERE id = $1
	`, tierID)
	return tierOrNotFound(scanTier(row))
}

// GetTierByName returns one tier by its machine name, ErrNotFound when it
// does not exist. Used for the default tier assigned at user provisioning.
func (s *Store) GetTierByName(ctx context.Context, name string) (*models.LicenseTier, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+tierColumns+`
		FROM steward.license_tiers
		WHERE tier_name = $1
	`, name)
	return tierOrNotFound(scanTier(row))
}

// CreateTier inserts a tier and fills in the generated fields. An empty
// currency falls back to the platform billing currency.
func (s *Store) CreateTier(ctx context.Context, tier *models.LicenseTier) error {
	if tier.Currency == "" {
		tier.Currency = billing.DefaultCurrency()
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO steward.license_tiers
			(tier_name, display_name, description, default_credits, credits_per_month,
			 base_price_cents, currency, max_seats_per_tenant, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, is_active, created_at, updated_at
	`, tier.TierName, tier.DisplayName, tier.Description, tier.DefaultCredits, tier.CreditsPerMonth,
		tier.BasePriceCents, tier.Currency, tier.MaxSeatsPerTenant, tier.SortOrder,
	).Scan(&tier.ID, &tier.IsActive, &tier.CreatedAt, &tier.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicateName
	}
	if err != nil {
		return err
	}

	s.logger.WithFields(logging.Fields{
		"tier_id":   tier.ID,
		"tier_name": tier.TierName,
	}).Info("Created license tier")
	return nil
}

// TierUpdate carries the optional fields of a partial tier update. Nil
// fields are left untouched.
type TierUpdate struct {
	DisplayName       *string
	Description       *string
	DefaultCredits    *int64
	CreditsPerMonth   *int64
	BasePriceCents    *int64
	Currency          *string
	MaxSeatsPerTenant *int
	SortOrder         *int
	IsActive          *bool
}

// UpdateTier applies a partial update. ErrNoFields when nothing is set,
// ErrNotFound when the tier does not exist.
func (s *Store) UpdateTier(ctx context.Context, tierID string, update TierUpdate) error {
	setParts := []string{"updated_at = NOW()"}
	args := []interface{}{}
	argIndex := 1

	addSet := func(column string, value interface{}) {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if update.DisplayName != nil {
		addSet("display_name", *update.DisplayName)
	}
	if update.Description != nil {
		addSet("description", *update.Description)
	}
	if update.DefaultCredits != nil {
		addSet("default_credits", *update.DefaultCredits)
	}
	if update.CreditsPerMonth != nil {
		addSet("credits_per_month", *update.CreditsPerMonth)
	}
	if update.BasePriceCents != nil {
		addSet("base_price_cents", *update.BasePriceCents)
	}
	if update.Currency != nil {
		addSet("currency", *update.Currency)
	}
	if update.MaxSeatsPerTenant != nil {
		addSet("max_seats_per_tenant", *update.MaxSeatsPerTenant)
	}
	if update.SortOrder != nil {
		addSet("sort_order", *update.SortOrder)
	}
	if update.IsActive != nil {
		addSet("is_active", *update.IsActive)
	}

	if len(setParts) == 1 {
		return ErrNoFields
	}

	args = append(args, tierID)
	query := "UPDATE steward.license_tiers SET " + strings.Join(setParts, ", ") +
		fmt.Sprintf(" WHERE id = $%d", argIndex)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return ErrNotFound
	}

	s.logger.WithField("tier_id", tierID).Info("Updated license tier")
	return nil
}

const overrideColumns = `id, tier_id, feature_key, value, expires_at, updated_by, created_at, updated_at`

// ActiveOverrides returns the overrides that currently apply to a tier.
// Expired overrides are absent here: resolution never sees them.
func (s *Store) ActiveOverrides(ctx context.Context, tierID string) ([]models.TierFeatureOverride, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+overrideColumns+`
		FROM steward.tier_feature_overrides
		WHERE tier_id = $1 AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY feature_key
	`, tierID)
	if err != nil {
		return nil, err
	}
	return collectOverrides(rows)
}

// ListOverrides returns every configured override for a tier, expired ones
// included, for the admin view.
func (s *Store) ListOverrides(ctx context.Context, tierID string) ([]models.TierFeatureOverride, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+overrideColumns+`
		FROM steward.tier_feature_overrides
		WHERE tier_id = $1
		ORDER BY feature_key
	`, tierID)
	if err != nil {
		return nil, err
	}
	return collectOverrides(rows)
}

// SetOverrides upserts the given feature values for a tier in one
// transaction and returns the touched keys in sorted order. Re-setting a
// key clears any expiry the previous override carried. Callers validate
// keys against the registry first; an unknown key fails the whole batch on
// its foreign key.
func (s *Store) SetOverrides(ctx context.Context, tierID string, values map[string]models.FeatureValue, updatedBy string) ([]string, error) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck // rollback is best-effort

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO steward.tier_feature_overrides (tier_id, feature_key, value, updated_by)
			VALUES ($1, $2, $3, NULLIF($4, '')::uuid)
			ON CONFLICT (tier_id, feature_key) DO UPDATE SET
				value = EXCLUDED.value,
				expires_at = NULL,
				updated_by = EXCLUDED.updated_by,
				updated_at = NOW()
		`, tierID, key, values[key], updatedBy); err != nil {
			return nil, fmt.Errorf("set override %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.WithFields(logging.Fields{
		"tier_id":  tierID,
		"features": len(keys),
	}).Info("Updated tier feature overrides")
	return keys, nil
}

func scanTier(row interface{ Scan(...interface{}) error }) (*models.LicenseTier, error) {
	var t models.LicenseTier
	err := row.Scan(
		&t.ID, &t.TierName, &t.DisplayName, &t.Description, &t.DefaultCredits, &t.CreditsPerMonth,
		&t.BasePriceCents, &t.Currency, &t.MaxSeatsPerTenant, &t.IsActive, &t.SortOrder,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func tierOrNotFound(tier *models.LicenseTier, err error) (*models.LicenseTier, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tier, nil
}

func collectOverrides(rows *sql.Rows) ([]models.TierFeatureOverride, error) {
	defer rows.Close()

	var overrides []models.TierFeatureOverride
	for rows.Next() {
		var o models.TierFeatureOverride
		if err := rows.Scan(
			&o.ID, &o.TierID, &o.FeatureKey, &o.Value, &o.ExpiresAt,
			&o.UpdatedBy, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}
