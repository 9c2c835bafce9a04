package handlers

import (
	"net/http"

	stewardapi "frameworks/api_licensing/pkg/api/steward"
	"frameworks/api_licensing/pkg/logging"
	"frameworks/api_licensing/pkg/middleware"
	"frameworks/api_licensing/pkg/models"
)

// requireSuperAdmin rejects callers without the superadmin role. Returns
// false after writing the response.
func requireSuperAdmin(c middleware.Context) bool {
	_, _, role := identity(c)
	if role != models.RoleSuperAdmin {
		c.JSON(http.StatusForbidden, stewardapi.ErrorResponse{Error: "Superadmin role required", Code: CodeForbidden})
		return false
	}
	return true
}

// GetCreditStatus returns the caller's credit balance and execution flags
func GetCreditStatus(c middleware.Context) {
	userID, _, _ := identity(c)

	status, err := licenses.CreditStatus(c.Request.Context(), userID)
	if err != nil {
		writeLedgerError(c, "credit_status", err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// GrantCredits adds credits to a user outside the billing cycle (superadmin)
func GrantCredits(c middleware.Context) {
	if !requireSuperAdmin(c) {
		return
	}

	var req stewardapi.GrantCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, stewardapi.ErrorResponse{Error: err.Error(), Code: CodeInvalidRequest})
		return
	}

	adminID, _, _ := identity(c)
	result, err := licenses.AdminGrant(c.Request.Context(), req.UserID, req.Amount, req.Reason, adminID)
	if err != nil {
		recordTransaction(models.TxAdminGrant, "error")
		writeLedgerError(c, "grant_credits", err)
		return
	}

	recordTransaction(models.TxAdminGrant, "success")
	events.CreditsGranted(result)

	logger.WithFields(logging.Fields{
		"user_id":    req.UserID,
		"amount":     req.Amount,
		"granted_by": adminID,
	}).Info("Granted credits")

	c.JSON(http.StatusOK, stewardapi.GrantCreditsResponse{
		UserID:           result.UserID,
		Amount:           result.Amount,
		CreditsRemaining: result.CreditsRemaining,
	})
}

// RefundCredits returns previously spent credits to a user (superadmin)
func RefundCredits(c middleware.Context) {
	if !requireSuperAdmin(c) {
		return
	}

	var req stewardapi.RefundCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, stewardapi.ErrorResponse{Error: err.Error(), Code: CodeInvalidRequest})
		return
	}

	result, err := licenses.Refund(c.Request.Context(), req.UserID, req.Amount, req.Reason)
	if err != nil {
		recordTransaction(models.TxRefund, "error")
		writeLedgerError(c, "refund_credits", err)
		return
	}

	recordTransaction(models.TxRefund, "success")
	events.CreditsRefunded(result)

	logger.WithFields(logging.Fields{
		"user_id": req.UserID,
		"amount":  result.Amount,
	}).Info("Refunded credits")

	c.JSON(http.StatusOK, stewardapi.RefundCreditsResponse{
		UserID:           result.UserID,
		Amount:           result.Amount,
		CreditsRemaining: result.CreditsRemaining,
	})
}
