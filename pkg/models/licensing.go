package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSONB is a custom type for handling JSONB fields
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// TenantLicensePool is the seat inventory for one (tenant, tier) pair.
// available_count = total_count - assigned_count holds at all times; both
// assigned_count and available_count stay non-negative. Mutated only inside
// ledger transactions holding the pool row lock.
type TenantLicensePool struct {
	ID             string    `json:"id" db:"id"`
	TenantID       string    `json:"tenant_id" db:"tenant_id"`
	TierID         string    `json:"tier_id" db:"tier_id"`
	TotalCount     int       `json:"total_count" db:"total_count"`
	AssignedCount  int       `json:"assigned_count" db:"assigned_count"`
	AvailableCount int       `json:"available_count" db:"available_count"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Ledger transaction types.
const (
	TxAssign     = "assign"
	TxUnassign   = "unassign"
	TxUpgrade    = "upgrade"
	TxDowngrade  = "downgrade"
	TxDebit      = "debit"
	TxReplenish  = "replenish"
	TxRefund     = "refund"
	TxAdminGrant = "admin_grant"
)

// LicenseTransaction is one row of the append-only license ledger. Rows are
// never updated or deleted; they are the audit trail for every seat and
// credit mutation.
type LicenseTransaction struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	TenantID      string    `json:"tenant_id" db:"tenant_id"`
	Type          string    `json:"type" db:"tx_type"`
	Amount        int64     `json:"amount" db:"amount"`
	BalanceAfter  int64     `json:"balance_after" db:"balance_after"`
	Reference     *string   `json:"reference,omitempty" db:"reference"`
	BillingPeriod *string   `json:"billing_period,omitempty" db:"billing_period"`
	Details       JSONB     `json:"details,omitempty" db:"details"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// UserLicenseState is the license slice of a user row. 0 <= credits_used <=
// credits_allocated holds at all times; a user holds at most one active tier.
type UserLicenseState struct {
	UserID           string     `json:"user_id" db:"id"`
	TenantID         string     `json:"tenant_id" db:"tenant_id"`
	TierID           *string    `json:"license_tier_id,omitempty" db:"license_tier_id"`
	LicenseIsActive  bool       `json:"license_is_active" db:"license_is_active"`
	CreditsAllocated int64      `json:"credits_allocated" db:"credits_allocated"`
	CreditsUsed      int64      `json:"credits_used" db:"credits_used"`
	CreditsPerMonth  *int64     `json:"credits_per_month,omitempty" db:"credits_per_month"`
	AssignedAt       *time.Time `json:"license_assigned_at,omitempty" db:"license_assigned_at"`
	AssignedBy       *string    `json:"license_assigned_by,omitempty" db:"license_assigned_by"`
	ExpiresAt        *time.Time `json:"license_expires_at,omitempty" db:"license_expires_at"`
}

// CreditsRemaining returns the spendable balance.
func (s *UserLicenseState) CreditsRemaining() int64 {
	remaining := s.CreditsAllocated - s.CreditsUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsExpired reports whether the license has passed its expiry.
func (s *UserLicenseState) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// HasActiveLicense reports whether the user holds a usable license right now.
func (s *UserLicenseState) HasActiveLicense(now time.Time) bool {
	return s.LicenseIsActive && s.TierID != nil && !s.IsExpired(now)
}

// CreditStatus is the point-in-time credit summary returned to callers
// deciding whether to start billable work.
type CreditStatus struct {
	UserID           string       `json:"user_id"`
	CreditsAllocated int64        `json:"credits_allocated"`
	CreditsUsed      int64        `json:"credits_used"`
	CreditsRemaining int64        `json:"credits_remaining"`
	CreditsPerMonth  *int64       `json:"credits_per_month,omitempty"`
	UsagePercent     float64      `json:"usage_percent"`
	LicenseIsActive  bool         `json:"license_is_active"`
	Tier             *TierSummary `json:"tier,omitempty"`
	CanExecute       bool         `json:"can_execute"`
	IsLowCredits     bool         `json:"is_low_credits"`
	IsOutOfCredits   bool         `json:"is_out_of_credits"`
}
