package handlers

import (
	"net/http"
	"time"

	stewardapi "frameworks/api_licensing/pkg/api/steward"
	"frameworks/api_licensing/pkg/ctxkeys"
	"frameworks/api_licensing/pkg/middleware"
)

// identity returns the caller identity the auth middleware stored on the
// request context.
func identity(c middleware.Context) (userID, tenantID, role string) {
	return c.GetString(string(ctxkeys.KeyUserID)),
		c.GetString(string(ctxkeys.KeyTenantID)),
		c.GetString(string(ctxkeys.KeyRole))
}

// GetFeatures returns the caller's resolved feature set
func GetFeatures(c middleware.Context) {
	userID, _, role := identity(c)
	start := time.Now()

	set, err := features.Resolve(c.Request.Context(), userID, role)
	if err != nil {
		recordResolution("error", start)
		writeResolutionError(c, userID, err)
		return
	}

	recordResolution("ok", start)
	c.JSON(http.StatusOK, set)
}

// CheckFeature returns the resolved state of a single feature key
func CheckFeature(c middleware.Context) {
	userID, _, role := identity(c)
	key := c.Param("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, stewardapi.ErrorResponse{Error: "Feature key required", Code: CodeInvalidRequest})
		return
	}
	start := time.Now()

	feature, err := features.CheckFeature(c.Request.Context(), userID, role, key)
	if err != nil {
		recordResolution("error", start)
		writeResolutionError(c, userID, err)
		return
	}

	recordResolution("ok", start)
	c.JSON(http.StatusOK, stewardapi.FeatureCheckResponse{
		FeatureKey: key,
		Enabled:    feature.Enabled,
		Source:     feature.Source,
	})
}

// GetEnabledModels returns the model descriptors the caller may use
func GetEnabledModels(c middleware.Context) {
	userID, _, role := identity(c)
	start := time.Now()

	enabled, err := features.EnabledModels(c.Request.Context(), userID, role)
	if err != nil {
		recordResolution("error", start)
		writeResolutionError(c, userID, err)
		return
	}

	recordResolution("ok", start)
	c.JSON(http.StatusOK, stewardapi.ModelsResponse{
		Models: enabled,
		Count:  len(enabled),
	})
}

// GetEnabledComponents returns the component keys the caller may use
func GetEnabledComponents(c middleware.Context) {
	userID, _, role := identity(c)
	start := time.Now()

	enabled, err := features.EnabledComponents(c.Request.Context(), userID, role)
	if err != nil {
		recordResolution("error", start)
		writeResolutionError(c, userID, err)
		return
	}

	keys := make([]string, 0, len(enabled))
	for _, component := range enabled {
		keys = append(keys, component.ComponentKey)
	}

	recordResolution("ok", start)
	c.JSON(http.StatusOK, stewardapi.ComponentsResponse{
		Components: keys,
		Count:      len(keys),
	})
}
