package testutil

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"frameworks/api_licensing/pkg/models"
)

// DatabaseFixtures provides test data fixtures for database testing
type DatabaseFixtures struct{}

// NewDatabaseFixtures creates a new database fixtures helper
func NewDatabaseFixtures() *DatabaseFixtures {
	return &DatabaseFixtures{}
}

// TierStarter creates the starter tier with a one-time credit allocation
func (f *DatabaseFixtures) TierStarter() *models.LicenseTier {
	perMonth := int64(100)
	seats := 5
	return &models.LicenseTier{
		ID:                "11111111-1111-1111-1111-111111111111",
		TierName:          "starter",
		DisplayName:       "Starter",
		Description:       "Entry tier",
		DefaultCredits:    1000,
		CreditsPerMonth:   &perMonth,
		BasePriceCents:    0,
		Currency:          "EUR",
		MaxSeatsPerTenant: &seats,
		IsActive:          true,
		SortOrder:         1,
		CreatedAt:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// TierProfessional creates the professional tier with monthly replenishment
func (f *DatabaseFixtures) TierProfessional() *models.LicenseTier {
	perMonth := int64(1000)
	seats := 50
	return &models.LicenseTier{
		ID:                "22222222-2222-2222-2222-222222222222",
		TierName:          "professional",
		DisplayName:       "Professional",
		Description:       "Full feature access",
		DefaultCredits:    10000,
		CreditsPerMonth:   &perMonth,
		BasePriceCents:    4900,
		Currency:          "EUR",
		MaxSeatsPerTenant: &seats,
		IsActive:          true,
		SortOrder:         2,
		CreatedAt:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// LicensedUserState creates a license state with an active professional license
func (f *DatabaseFixtures) LicensedUserState() *models.UserLicenseState {
	tierID := "22222222-2222-2222-2222-222222222222"
	perMonth := int64(1000)
	assignedAt := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	assignedBy := "99999999-9999-9999-9999-999999999999"
	return &models.UserLicenseState{
		UserID:           "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa",
		TenantID:         "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb",
		TierID:           &tierID,
		LicenseIsActive:  true,
		CreditsAllocated: 10000,
		CreditsUsed:      2500,
		CreditsPerMonth:  &perMonth,
		AssignedAt:       &assignedAt,
		AssignedBy:       &assignedBy,
		ExpiresAt:        nil,
	}
}

// UnlicensedUserState creates a license state with no license
func (f *DatabaseFixtures) UnlicensedUserState() *models.UserLicenseState {
	return &models.UserLicenseState{
		UserID:           "cccccccc-cccc-cccc-cccc-cccccccccccc",
		TenantID:         "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb",
		TierID:           nil,
		LicenseIsActive:  false,
		CreditsAllocated: 0,
		CreditsUsed:      0,
	}
}

// ExpiredUserState creates a license state whose expiry is in the past
func (f *DatabaseFixtures) ExpiredUserState() *models.UserLicenseState {
	state := f.LicensedUserState()
	expired := time.Now().Add(-24 * time.Hour)
	state.ExpiresAt = &expired
	return state
}

// GetUserLicenseColumns returns the column names for user license queries
func (f *DatabaseFixtures) GetUserLicenseColumns() []string {
	return []string{
		"id", "tenant_id", "license_tier_id", "license_is_active",
		"credits_allocated", "credits_used", "credits_per_month",
		"license_assigned_at", "license_assigned_by", "license_expires_at",
	}
}

// GetUserLicenseRowData returns row data for a given license state
func (f *DatabaseFixtures) GetUserLicenseRowData(s *models.UserLicenseState) []driver.Value {
	return []driver.Value{
		s.UserID, s.TenantID, s.TierID, s.LicenseIsActive,
		s.CreditsAllocated, s.CreditsUsed, s.CreditsPerMonth,
		s.AssignedAt, s.AssignedBy, s.ExpiresAt,
	}
}

// BooleanFeature creates a boolean feature definition
func (f *DatabaseFixtures) BooleanFeature(key string, enabled bool) *models.FeatureDefinition {
	return &models.FeatureDefinition{
		ID:           "dddddddd-dddd-dddd-dddd-dddddddddddd",
		Key:          key,
		Name:         key,
		Category:     "test",
		Kind:         models.FeatureKindBoolean,
		DefaultValue: models.BooleanValue(enabled),
		IsActive:     true,
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// LimitFeature creates a limit feature definition
func (f *DatabaseFixtures) LimitFeature(key string, limit int64) *models.FeatureDefinition {
	return &models.FeatureDefinition{
		ID:           "eeeeeeee-eeee-eeee-eeee-eeeeeeeeeeee",
		Key:          key,
		Name:         key,
		Category:     "test",
		Kind:         models.FeatureKindLimit,
		DefaultValue: models.LimitValue(true, &limit),
		IsActive:     true,
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// GetFeatureRegistryColumns returns the column names for registry queries
func (f *DatabaseFixtures) GetFeatureRegistryColumns() []string {
	return []string{
		"id", "feature_key", "name", "description", "category", "subcategory",
		"kind", "default_value", "is_premium", "depends_on", "display_order",
		"is_active", "created_at", "updated_at",
	}
}

// GetFeatureRegistryRowData returns row data for a feature definition.
// JSONB columns are rendered to bytes the way lib/pq returns them.
func (f *DatabaseFixtures) GetFeatureRegistryRowData(d *models.FeatureDefinition) []driver.Value {
	value, _ := json.Marshal(d.DefaultValue)
	dependsOn, _ := json.Marshal(d.DependsOn)
	return []driver.Value{
		d.ID, d.Key, d.Name, d.Description, d.Category, d.Subcategory,
		string(d.Kind), value, d.IsPremium, dependsOn, d.DisplayOrder,
		d.IsActive, d.CreatedAt, d.UpdatedAt,
	}
}

// GetLicenseTierColumns returns the column names for tier queries
func (f *DatabaseFixtures) GetLicenseTierColumns() []string {
	return []string{
		"id", "tier_name", "display_name", "description", "default_credits",
		"credits_per_month", "base_price_cents", "currency",
		"max_seats_per_tenant", "is_active", "sort_order", "created_at", "updated_at",
	}
}

// GetLicenseTierRowData returns row data for a license tier
func (f *DatabaseFixtures) GetLicenseTierRowData(t *models.LicenseTier) []driver.Value {
	return []driver.Value{
		t.ID, t.TierName, t.DisplayName, t.Description, t.DefaultCredits,
		t.CreditsPerMonth, t.BasePriceCents, t.Currency,
		t.MaxSeatsPerTenant, t.IsActive, t.SortOrder, t.CreatedAt, t.UpdatedAt,
	}
}

// LicensePool creates a pool with available seats
func (f *DatabaseFixtures) LicensePool() *models.TenantLicensePool {
	return &models.TenantLicensePool{
		ID:             "ffffffff-ffff-ffff-ffff-ffffffffffff",
		TenantID:       "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb",
		TierID:         "22222222-2222-2222-2222-222222222222",
		TotalCount:     10,
		AssignedCount:  3,
		AvailableCount: 7,
		CreatedAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// ExhaustedLicensePool creates a pool with no free seats
func (f *DatabaseFixtures) ExhaustedLicensePool() *models.TenantLicensePool {
	pool := f.LicensePool()
	pool.AssignedCount = pool.TotalCount
	pool.AvailableCount = 0
	return pool
}

// GetLicensePoolColumns returns the column names for pool queries
func (f *DatabaseFixtures) GetLicensePoolColumns() []string {
	return []string{
		"id", "tenant_id", "tier_id", "total_count", "assigned_count",
		"available_count", "created_at", "updated_at",
	}
}

// GetLicensePoolRowData returns row data for a license pool
func (f *DatabaseFixtures) GetLicensePoolRowData(p *models.TenantLicensePool) []driver.Value {
	return []driver.Value{
		p.ID, p.TenantID, p.TierID, p.TotalCount, p.AssignedCount,
		p.AvailableCount, p.CreatedAt, p.UpdatedAt,
	}
}

// NullTimeValue represents a nullable time value for SQL mocking
type NullTimeValue struct {
	Time  time.Time
	Valid bool
}

// Match implements sqlmock.Argument interface
func (n NullTimeValue) Match(v driver.Value) bool {
	switch val := v.(type) {
	case time.Time:
		return n.Valid && val.Equal(n.Time)
	case nil:
		return !n.Valid
	default:
		return false
	}
}

// NullStringValue represents a nullable string value for SQL mocking
type NullStringValue struct {
	String string
	Valid  bool
}

// Match implements sqlmock.Argument interface
func (n NullStringValue) Match(v driver.Value) bool {
	switch val := v.(type) {
	case string:
		return n.Valid && val == n.String
	case nil:
		return !n.Valid
	default:
		return false
	}
}

// NullIntValue represents a nullable int value for SQL mocking
type NullIntValue struct {
	Int   int
	Valid bool
}

// Match implements sqlmock.Argument interface
func (n NullIntValue) Match(v driver.Value) bool {
	switch val := v.(type) {
	case int:
		return n.Valid && val == n.Int
	case int64:
		return n.Valid && int64(n.Int) == val
	case nil:
		return !n.Valid
	default:
		return false
	}
}
