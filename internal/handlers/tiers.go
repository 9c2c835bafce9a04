package handlers

import (
	"errors"
	"net/http"

	"frameworks/api_licensing/internal/tiers"
	stewardapi "frameworks/api_licensing/pkg/api/steward"
	"frameworks/api_licensing/pkg/logging"
	"frameworks/api_licensing/pkg/middleware"
	"frameworks/api_licensing/pkg/models"
)

// GetFeatureRegistry returns the feature catalogue, optionally filtered by
// category
func GetFeatureRegistry(c middleware.Context) {
	category := c.Query("category")

	definitions, err := catalogue.ListFeatures(c.Request.Context(), category)
	if err != nil {
		writeLedgerError(c, "feature_registry", err)
		return
	}

	c.JSON(http.StatusOK, stewardapi.RegistryResponse{
		Features: definitions,
		Count:    len(definitions),
	})
}

// GetTiers returns all license tiers
func GetTiers(c middleware.Context) {
	includeInactive := c.Query("include_inactive") == "true"

	all, err := tierStore.ListTiers(c.Request.Context(), includeInactive)
	if err != nil {
		writeLedgerError(c, "list_tiers", err)
		return
	}

	c.JSON(http.StatusOK, stewardapi.TiersResponse{
		Tiers: all,
		Count: len(all),
	})
}

// GetTier returns one tier with its configured feature overrides
func GetTier(c middleware.Context) {
	tierID := c.Param("id")

	tier, err := tierStore.GetTier(c.Request.Context(), tierID)
	if errors.Is(err, tiers.ErrNotFound) {
		c.JSON(http.StatusNotFound, stewardapi.ErrorResponse{Error: "Tier not found", Code: CodeNotFound})
		return
	}
	if err != nil {
		writeLedgerError(c, "get_tier", err)
		return
	}

	overrides, err := tierStore.ListOverrides(c.Request.Context(), tierID)
	if err != nil {
		writeLedgerError(c, "get_tier", err)
		return
	}

	c.JSON(http.StatusOK, stewardapi.TierResponse{
		Tier:     *tier,
		Features: overrideMap(overrides),
	})
}

// CreateTier creates a new license tier (superadmin)
func CreateTier(c middleware.Context) {
	if !requireSuperAdmin(c) {
		return
	}

	var req stewardapi.CreateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, stewardapi.ErrorResponse{Error: err.Error(), Code: CodeInvalidRequest})
		return
	}

	tier := models.LicenseTier{
		TierName:          req.TierName,
		DisplayName:       req.DisplayName,
		Description:       req.Description,
		DefaultCredits:    req.DefaultCredits,
		CreditsPerMonth:   req.CreditsPerMonth,
		BasePriceCents:    req.BasePriceCents,
		Currency:          req.Currency,
		MaxSeatsPerTenant: req.MaxSeatsPerTenant,
		SortOrder:         req.SortOrder,
	}

	err := tierStore.CreateTier(c.Request.Context(), &tier)
	if errors.Is(err, tiers.ErrDuplicateName) {
		c.JSON(http.StatusConflict, stewardapi.ErrorResponse{Error: "Tier name already exists", Code: CodeInvalidRequest})
		return
	}
	if err != nil {
		writeLedgerError(c, "create_tier", err)
		return
	}

	c.JSON(http.StatusCreated, stewardapi.TierResponse{
		Tier:     tier,
		Features: map[string]models.FeatureValue{},
	})
}

// UpdateTier applies a partial update to a tier (superadmin)
func UpdateTier(c middleware.Context) {
	if !requireSuperAdmin(c) {
		return
	}

	tierID := c.Param("id")
	var req stewardapi.UpdateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, stewardapi.ErrorResponse{Error: err.Error(), Code: CodeInvalidRequest})
		return
	}

	err := tierStore.UpdateTier(c.Request.Context(), tierID, tiers.TierUpdate{
		DisplayName:       req.DisplayName,
		Description:       req.Description,
		DefaultCredits:    req.DefaultCredits,
		CreditsPerMonth:   req.CreditsPerMonth,
		BasePriceCents:    req.BasePriceCents,
		Currency:          req.Currency,
		MaxSeatsPerTenant: req.MaxSeatsPerTenant,
		SortOrder:         req.SortOrder,
		IsActive:          req.IsActive,
	})
	switch {
	case errors.Is(err, tiers.ErrNoFields):
		c.JSON(http.StatusBadRequest, stewardapi.ErrorResponse{Error: "No fields to update", Code: CodeInvalidRequest})
		return
	case errors.Is(err, tiers.ErrNotFound):
		c.JSON(http.StatusNotFound, stewardapi.ErrorResponse{Error: "Tier not found", Code: CodeNotFound})
		return
	case errors.Is(err, tiers.ErrDuplicateName):
		c.JSON(http.StatusConflict, stewardapi.ErrorResponse{Error: "Tier name already exists", Code: CodeInvalidRequest})
		return
	case err != nil:
		writeLedgerError(c, "update_tier", err)
		return
	}

	// Tier metadata feeds cached feature sets; drop them.
	events.TierChanged(tierID)

	tier, err := tierStore.GetTier(c.Request.Context(), tierID)
	if err != nil {
		writeLedgerError(c, "update_tier", err)
		return
	}
	overrides, err := tierStore.ListOverrides(c.Request.Context(), tierID)
	if err != nil {
		writeLedgerError(c, "update_tier", err)
		return
	}

	c.JSON(http.StatusOK, stewardapi.TierResponse{
		Tier:     *tier,
		Features: overrideMap(overrides),
	})
}

// GetTierFeatures returns the override map configured for a tier
func GetTierFeatures(c middleware.Context) {
	tierID := c.Param("id")

	if _, err := tierStore.GetTier(c.Request.Context(), tierID); err != nil {
		if errors.Is(err, tiers.ErrNotFound) {
			c.JSON(http.StatusNotFound, stewardapi.ErrorResponse{Error: "Tier not found", Code: CodeNotFound})
			return
		}
		writeLedgerError(c, "tier_features", err)
		return
	}

	overrides, err := tierStore.ListOverrides(c.Request.Context(), tierID)
	if err != nil {
		writeLedgerError(c, "tier_features", err)
		return
	}

	c.JSON(http.StatusOK, stewardapi.TierFeaturesResponse{
		TierID:   tierID,
		Features: overrideMap(overrides),
	})
}

// SetTierFeatures replaces feature overrides for a tier in bulk (superadmin).
// Every key is validated against the registry before anything is written; one
// unknown key rejects the whole request.
func SetTierFeatures(c middleware.Context) {
	if !requireSuperAdmin(c) {
		return
	}

	tierID := c.Param("id")
	var req stewardapi.SetTierFeaturesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, stewardapi.ErrorResponse{Error: err.Error(), Code: CodeInvalidRequest})
		return
	}
	if len(req.Features) == 0 {
		c.JSON(http.StatusBadRequest, stewardapi.ErrorResponse{Error: "No features to set", Code: CodeInvalidRequest})
		return
	}

	if _, err := tierStore.GetTier(c.Request.Context(), tierID); err != nil {
		if errors.Is(err, tiers.ErrNotFound) {
			c.JSON(http.StatusNotFound, stewardapi.ErrorResponse{Error: "Tier not found", Code: CodeNotFound})
			return
		}
		writeLedgerError(c, "set_tier_features", err)
		return
	}

	keys := make([]string, 0, len(req.Features))
	for key := range req.Features {
		keys = append(keys, key)
	}
	known, err := catalogue.KnownKeys(c.Request.Context(), keys)
	if err != nil {
		writeLedgerError(c, "set_tier_features", err)
		return
	}
	var unknown []string
	for _, key := range keys {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		c.JSON(http.StatusUnprocessableEntity, stewardapi.UnknownFeatureKeysResponse{
			Error:       "Unknown feature keys",
			Code:        CodeUnknownFeatureKey,
			UnknownKeys: unknown,
		})
		return
	}

	adminID, _, _ := identity(c)
	updated, err := tierStore.SetOverrides(c.Request.Context(), tierID, req.Features, adminID)
	if err != nil {
		writeLedgerError(c, "set_tier_features", err)
		return
	}

	events.TierChanged(tierID)

	logger.WithFields(logging.Fields{
		"tier_id":    tierID,
		"keys":       len(updated),
		"updated_by": adminID,
	}).Info("Updated tier feature overrides")

	c.JSON(http.StatusOK, stewardapi.SetTierFeaturesResponse{
		TierID:      tierID,
		UpdatedKeys: updated,
		Count:       len(updated),
	})
}

func overrideMap(overrides []models.TierFeatureOverride) map[string]models.FeatureValue {
	values := make(map[string]models.FeatureValue, len(overrides))
	for _, override := range overrides {
		values[override.FeatureKey] = override.Value
	}
	return values
}
