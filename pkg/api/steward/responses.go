package steward

import (
	"time"

	"frameworks/api_licensing/pkg/models"
)

// FeaturesResponse represents the resolved feature set for the caller
type FeaturesResponse = models.ResolvedFeatureSet

// FeatureCheckResponse represents a point check of a single feature key
type FeatureCheckResponse struct {
	FeatureKey string `json:"feature_key"`
	Enabled    bool   `json:"enabled"`
	Source     string `json:"source,omitempty"`
}

// ModelsResponse represents the model descriptors enabled for the caller
type ModelsResponse struct {
	Models []models.ModelDescriptor `json:"models"`
	Count  int                      `json:"count"`
}

// ComponentsResponse represents the UI component keys enabled for the caller
type ComponentsResponse struct {
	Components []string `json:"components"`
	Count      int      `json:"count"`
}

// CreditStatusResponse represents the caller's credit balance and flags
type CreditStatusResponse = models.CreditStatus

// RegistryResponse represents a feature registry listing
type RegistryResponse struct {
	Features []models.FeatureDefinition `json:"features"`
	Count    int                        `json:"count"`
}

// TiersResponse represents a license tier listing
type TiersResponse struct {
	Tiers []models.LicenseTier `json:"tiers"`
	Count int                  `json:"count"`
}

// TierResponse represents a single tier with its feature overrides
type TierResponse struct {
	Tier     models.LicenseTier             `json:"tier"`
	Features map[string]models.FeatureValue `json:"features"`
}

// TierFeaturesResponse represents the override map configured for a tier
type TierFeaturesResponse struct {
	TierID   string                         `json:"tier_id"`
	Features map[string]models.FeatureValue `json:"features"`
}

// SetTierFeaturesResponse represents the result of a bulk override update
type SetTierFeaturesResponse struct {
	TierID      string   `json:"tier_id"`
	UpdatedKeys []string `json:"updated_keys"`
	Count       int      `json:"count"`
}

// UnknownFeatureKeysResponse is returned when an override update references
// keys absent from the registry. No overrides are applied.
type UnknownFeatureKeysResponse struct {
	Error       string   `json:"error"`
	Code        string   `json:"code"`
	UnknownKeys []string `json:"unknown_keys"`
}

// PoolSummary is a tenant license pool joined with its tier identity
type PoolSummary struct {
	models.TenantLicensePool
	TierName        string `json:"tier_name"`
	TierDisplayName string `json:"tier_display_name"`
}

// PoolsResponse represents the license pools of a tenant
type PoolsResponse struct {
	TenantID string        `json:"tenant_id"`
	Pools    []PoolSummary `json:"pools"`
	Count    int           `json:"count"`
}

// PoolResponse represents a single license pool
type PoolResponse struct {
	Pool models.TenantLicensePool `json:"pool"`
}

// AssignLicenseResponse represents the result of assigning a license seat
type AssignLicenseResponse struct {
	UserID           string     `json:"user_id"`
	TierID           string     `json:"tier_id"`
	CreditsAllocated int64      `json:"credits_allocated"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	SeatsAvailable   int        `json:"seats_available"`
}

// UnassignLicenseResponse represents the result of releasing a license seat
type UnassignLicenseResponse struct {
	UserID         string `json:"user_id"`
	ReleasedTierID string `json:"released_tier_id"`
	SeatsAvailable int    `json:"seats_available"`
}

// UpgradeLicenseResponse represents the result of a tier change
type UpgradeLicenseResponse struct {
	UserID           string `json:"user_id"`
	OldTierID        string `json:"old_tier_id"`
	NewTierID        string `json:"new_tier_id"`
	CreditsAllocated int64  `json:"credits_allocated"`
}

// DebitCreditsResponse represents the result of a usage debit
type DebitCreditsResponse struct {
	UserID           string `json:"user_id"`
	Amount           int64  `json:"amount"`
	CreditsRemaining int64  `json:"credits_remaining"`
	TransactionID    string `json:"transaction_id"`
}

// ReplenishCreditsResponse represents the result of a billing-cycle top-up.
// Applied is false when the billing period was already replenished.
type ReplenishCreditsResponse struct {
	UserID           string `json:"user_id"`
	Amount           int64  `json:"amount"`
	BillingPeriod    string `json:"billing_period"`
	Applied          bool   `json:"applied"`
	CreditsRemaining int64  `json:"credits_remaining"`
}

// GrantCreditsResponse represents the result of an administrative grant
type GrantCreditsResponse struct {
	UserID           string `json:"user_id"`
	Amount           int64  `json:"amount"`
	CreditsRemaining int64  `json:"credits_remaining"`
}

// RefundCreditsResponse represents the result of a credit refund
type RefundCreditsResponse struct {
	UserID           string `json:"user_id"`
	Amount           int64  `json:"amount"`
	CreditsRemaining int64  `json:"credits_remaining"`
}

// AuthorizeResponse represents an authorization decision
type AuthorizeResponse struct {
	Allowed       bool     `json:"allowed"`
	Reason        string   `json:"reason,omitempty"`
	UnmetFeatures []string `json:"unmet_features,omitempty"`
}
