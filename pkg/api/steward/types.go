package steward

import (
	"time"

	"frameworks/api_licensing/pkg/api/common"
	"frameworks/api_licensing/pkg/models"
)

// ErrorResponse is a type alias to the common error response
type ErrorResponse = common.ErrorResponse

// SuccessResponse is a type alias to the common success response
type SuccessResponse = common.SuccessResponse

// AssignLicenseRequest represents a request to assign a license seat to a user
type AssignLicenseRequest struct {
	UserID    string     `json:"user_id" binding:"required"`
	TierID    string     `json:"tier_id" binding:"required"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// AssignDefaultLicenseRequest asks for a seat on the platform default tier,
// used when provisioning new users
type AssignDefaultLicenseRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// UpgradeLicenseRequest represents a request to move a licensed user to another tier
type UpgradeLicenseRequest struct {
	UserID          string `json:"user_id" binding:"required"`
	NewTierID       string `json:"new_tier_id" binding:"required"`
	PreserveCredits bool   `json:"preserve_credits"`
}

// SetTierFeaturesRequest represents a bulk feature override update for a tier
type SetTierFeaturesRequest struct {
	Features map[string]models.FeatureValue `json:"features" binding:"required"`
}

// CreateTierRequest represents a request to create a license tier
type CreateTierRequest struct {
	TierName          string `json:"tier_name" binding:"required"`
	DisplayName       string `json:"display_name" binding:"required"`
	Description       string `json:"description"`
	DefaultCredits    int64  `json:"default_credits"`
	CreditsPerMonth   *int64 `json:"credits_per_month,omitempty"`
	BasePriceCents    int64  `json:"base_price_cents"`
	Currency          string `json:"currency"`
	MaxSeatsPerTenant *int   `json:"max_seats_per_tenant,omitempty"`
	SortOrder         int    `json:"sort_order"`
}

// UpdateTierRequest represents a partial update to a license tier
type UpdateTierRequest struct {
	DisplayName       *string `json:"display_name,omitempty"`
	Description       *string `json:"description,omitempty"`
	DefaultCredits    *int64  `json:"default_credits,omitempty"`
	CreditsPerMonth   *int64  `json:"credits_per_month,omitempty"`
	BasePriceCents    *int64  `json:"base_price_cents,omitempty"`
	Currency          *string `json:"currency,omitempty"`
	MaxSeatsPerTenant *int    `json:"max_seats_per_tenant,omitempty"`
	SortOrder         *int    `json:"sort_order,omitempty"`
	IsActive          *bool   `json:"is_active,omitempty"`
}

// CreatePoolRequest represents a request to create or resize a tenant license pool
type CreatePoolRequest struct {
	TierID     string `json:"tier_id" binding:"required"`
	TotalCount int    `json:"total_count" binding:"required"`
}

// GrantCreditsRequest represents an administrative credit grant
type GrantCreditsRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
	Reason string `json:"reason"`
}

// RefundCreditsRequest represents a request to refund previously debited credits
type RefundCreditsRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
	Reason string `json:"reason"`
}

// DebitCreditsRequest represents a metered usage debit from the execution engine
type DebitCreditsRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"required"`
	Reference string `json:"reference"`
}

// ReplenishCreditsRequest represents a billing-cycle credit replenishment
type ReplenishCreditsRequest struct {
	UserID        string `json:"user_id" binding:"required"`
	Amount        int64  `json:"amount" binding:"required"`
	BillingPeriod string `json:"billing_period" binding:"required"`
}

// AuthorizeRequest represents an authorization check. Exactly one of Path,
// Operation or Resources is set: Path checks the route map with OR semantics,
// Operation checks a named action, Resources checks every referenced
// capability with AND semantics.
type AuthorizeRequest struct {
	UserID    string   `json:"user_id" binding:"required"`
	Role      string   `json:"role"`
	Path      string   `json:"path,omitempty"`
	Operation string   `json:"operation,omitempty"`
	Resources []string `json:"resources,omitempty"`
}
