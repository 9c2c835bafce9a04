package models

import (
	"time"
)

// LicenseTier represents a purchasable license tier: a bundle of feature
// overrides, credit grants, and seat pricing.
type LicenseTier struct {
	ID          string `json:"id" db:"id"`
	TierName    string `json:"tier_name" db:"tier_name"`
	DisplayName string `json:"display_name" db:"display_name"`
	Description string `json:"description" db:"description"`

	// Credit grants
	DefaultCredits  int64  `json:"default_credits" db:"default_credits"`
	CreditsPerMonth *int64 `json:"credits_per_month,omitempty" db:"credits_per_month"`

	// Seat pricing
	BasePriceCents int64  `json:"base_price_cents" db:"base_price_cents"`
	Currency       string `json:"currency" db:"currency"`

	// Hard limits (nil = unlimited)
	MaxSeatsPerTenant *int `json:"max_seats_per_tenant,omitempty" db:"max_seats_per_tenant"`

	IsActive  bool `json:"is_active" db:"is_active"`
	SortOrder int  `json:"sort_order" db:"sort_order"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TierFeatureOverride is one (tier, feature) value layered over the registry
// default. An override past its ExpiresAt is treated as absent at resolution
// time.
type TierFeatureOverride struct {
	ID         string       `json:"id" db:"id"`
	TierID     string       `json:"tier_id" db:"tier_id"`
	FeatureKey string       `json:"feature_key" db:"feature_key"`
	Value      FeatureValue `json:"value" db:"value"`
	ExpiresAt  *time.Time   `json:"expires_at,omitempty" db:"expires_at"`
	UpdatedBy  *string      `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}

// TierSummary is the compact tier shape embedded in credit status responses.
type TierSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DefaultCredits int64  `json:"default_credits"`
}
