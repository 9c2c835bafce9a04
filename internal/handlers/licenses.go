package handlers

import (
	"net/http"

	stewardapi "frameworks/api_licensing/pkg/api/steward"
	"frameworks/api_licensing/pkg/logging"
	"frameworks/api_licensing/pkg/middleware"
	"frameworks/api_licensing/pkg/models"
)

// canManageUser authorizes a license mutation against the target user.
// Superadmins manage anyone; tenant admins only members of their own tenant.
// Returns false after writing the response.
func canManageUser(c middleware.Context, targetUserID string) bool {
	_, adminTenant, role := identity(c)

	switch role {
	case models.RoleSuperAdmin:
		return true
	case models.RoleTenantAdmin:
		state, err := licenses.UserLicense(c.Request.Context(), targetUserID)
		if err != nil {
			writeLedgerError(c, "license_admin", err)
			return false
		}
		if state.TenantID != adminTenant {
			c.JSON(http.StatusForbidden, stewardapi.ErrorResponse{Error: "User belongs to another tenant", Code: CodeForbidden})
			return false
		}
		return true
	default:
		c.JSON(http.StatusForbidden, stewardapi.ErrorResponse{Error: "Administrator role required", Code: CodeForbidden})
		return false
	}
}

// AssignLicense grants the user a seat from the tenant's pool
func AssignLicense(c middleware.Context) {
	var req stewardapi.AssignLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, stewardapi.ErrorResponse{Error: err.Error(), Code: CodeInvalidRequest})
		return
	}
	if !canManageUser(c, req.UserID) {
		return
	}

	adminID, _, _ := identity(c)
	result, err := licenses.Assign(c.Request.Context(), req.UserID, req.TierID, adminID, req.ExpiresAt)
	if err != nil {
		recordTransaction(models.TxAssign, "error")
		writeLedgerError(c, "assign_license", err)
		return
	}

	recordTransaction(models.TxAssign, "success")
	recordPoolAvailable(result.TenantID, result.TierID, result.SeatsAvailable)
	events.LicenseAssigned(result)

	logger.WithFields(logging.Fields{
		"user_id":     req.UserID,
		"tier_id":     req.TierID,
		"assigned_by": adminID,
	}).Info("Assigned license")

	c.JSON(http.StatusOK, stewardapi.AssignLicenseResponse{
		UserID:           result.UserID,
		TierID:           result.TierID,
		CreditsAllocated: result.CreditsAllocated,
		ExpiresAt:        result.ExpiresAt,
		SeatsAvailable:   result.SeatsAvailable,
	})
}

// UnassignLicense releases the user's seat back to the pool
func UnassignLicense(c middleware.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, stewardapi.ErrorResponse{Error: "User ID required", Code: CodeInvalidRequest})
		return
	}
	if !canManageUser(c, userID) {
		return
	}

	result, err := licenses.Unassign(c.Request.Context(), userID, "admin_unassign")
	if err != nil {
		recordTransaction(models.TxUnassign, "error")
		writeLedgerError(c, "unassign_license", err)
		return
	}

	recordTransaction(models.TxUnassign, "success")
	recordPoolAvailable(result.TenantID, result.ReleasedTierID, result.SeatsAvailable)
	events.LicenseUnassigned(result)

	c.JSON(http.StatusOK, stewardapi.UnassignLicenseResponse{
		UserID:         result.UserID,
		ReleasedTierID: result.ReleasedTierID,
		SeatsAvailable: result.SeatsAvailable,
	})
}

// UpgradeLicense moves the user to a different tier in one step
func UpgradeLicense(c middleware.Context) {
	var req stewardapi.UpgradeLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, stewardapi.ErrorResponse{Error: err.Error(), Code: CodeInvalidRequest})
		return
	}
	if !canManageUser(c, req.UserID) {
		return
	}

	adminID, _, _ := identity(c)
	result, err := licenses.Upgrade(c.Request.Context(), req.UserID, req.NewTierID, req.PreserveCredits, adminID)
	if err != nil {
		recordTransaction(models.TxUpgrade, "error")
		writeLedgerError(c, "upgrade_license", err)
		return
	}

	txType := models.TxUpgrade
	if result.Downgrade {
		txType = models.TxDowngrade
	}
	recordTransaction(txType, "success")
	events.LicenseUpgraded(result)

	logger.WithFields(logging.Fields{
		"user_id":     req.UserID,
		"old_tier_id": result.OldTierID,
		"new_tier_id": result.NewTierID,
		"changed_by":  adminID,
	}).Info("Changed license tier")

	c.JSON(http.StatusOK, stewardapi.UpgradeLicenseResponse{
		UserID:           result.UserID,
		OldTierID:        result.OldTierID,
		NewTierID:        result.NewTierID,
		CreditsAllocated: result.CreditsAllocated,
	})
}
