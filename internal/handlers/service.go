package handlers

import (
	"errors"
	"net/http"

	"frameworks/api_licensing/internal/enforcement"
	"frameworks/api_licensing/internal/tiers"
	stewardapi "frameworks/api_licensing/pkg/api/steward"
	"frameworks/api_licensing/pkg/config"
	"frameworks/api_licensing/pkg/logging"
	"frameworks/api_licensing/pkg/middleware"
	"frameworks/api_licensing/pkg/models"
)

// DebitCredits spends a user's credits for metered work. Called by the
// execution engine before running billable workloads; all or nothing.
func DebitCredits(c middleware.Context) {
	var req stewardapi.DebitCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, stewardapi.ErrorResponse{Error: err.Error(), Code: CodeInvalidRequest})
		return
	}

	result, err := licenses.Debit(c.Request.Context(), req.UserID, req.Amount, req.Reference)
	if err != nil {
		recordTransaction(models.TxDebit, "error")
		writeLedgerError(c, "debit_credits", err)
		return
	}

	recordTransaction(models.TxDebit, "success")
	events.CreditsDebited(result)

	c.JSON(http.StatusOK, stewardapi.DebitCreditsResponse{
		UserID:           result.UserID,
		Amount:           result.Amount,
		CreditsRemaining: result.CreditsRemaining,
		TransactionID:    result.TransactionID,
	})
}

// ReplenishCredits applies the billing-cycle credit grant for one period.
// Replays of the same period are acknowledged without changing the balance.
func ReplenishCredits(c middleware.Context) {
	var req stewardapi.ReplenishCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, stewardapi.ErrorResponse{Error: err.Error(), Code: CodeInvalidRequest})
		return
	}

	result, err := licenses.Replenish(c.Request.Context(), req.UserID, req.Amount, req.BillingPeriod)
	if err != nil {
		recordTransaction(models.TxReplenish, "error")
		writeLedgerError(c, "replenish_credits", err)
		return
	}

	if result.Applied {
		recordTransaction(models.TxReplenish, "success")
		recordReplenish("applied")
		events.CreditsReplenished(result)
	} else {
		recordReplenish("duplicate")
	}

	c.JSON(http.StatusOK, stewardapi.ReplenishCreditsResponse{
		UserID:           result.UserID,
		Amount:           result.Amount,
		BillingPeriod:    result.BillingPeriod,
		Applied:          result.Applied,
		CreditsRemaining: result.CreditsRemaining,
	})
}

// Authorize answers a feature authorization question for another service.
// Denials carry the full unmet key list; storage failures are a retryable
// 503, never an allow.
func Authorize(c middleware.Context) {
	var req stewardapi.AuthorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, stewardapi.ErrorResponse{Error: err.Error(), Code: CodeInvalidRequest})
		return
	}

	var (
		surface  string
		decision *enforcement.Decision
		err      error
	)
	ctx := c.Request.Context()
	switch {
	case req.Path != "":
		surface = "route"
		decision, err = enforcer.AuthorizeRoute(ctx, req.UserID, req.Role, req.Path)
	case req.Operation != "":
		surface = "operation"
		decision, err = enforcer.AuthorizeOperation(ctx, req.UserID, req.Role, req.Operation)
	case len(req.Resources) > 0:
		surface = "resources"
		decision, err = enforcer.AuthorizeResources(ctx, req.UserID, req.Role, req.Resources)
	default:
		c.JSON(http.StatusBadRequest, stewardapi.ErrorResponse{Error: "One of path, operation or resources is required", Code: CodeInvalidRequest})
		return
	}
	if err != nil {
		recordDecision(surface, "error")
		logger.WithFields(logging.Fields{
			"error":   err,
			"user_id": req.UserID,
			"surface": surface,
		}).Error("Authorization check failed")
		c.JSON(http.StatusServiceUnavailable, stewardapi.ErrorResponse{Error: "Feature resolution unavailable", Code: CodeStorageUnavailable})
		return
	}

	if decision.Allowed {
		recordDecision(surface, "allow")
	} else {
		recordDecision(surface, "deny")
	}

	c.JSON(http.StatusOK, stewardapi.AuthorizeResponse{
		Allowed:       decision.Allowed,
		Reason:        decision.Reason,
		UnmetFeatures: decision.UnmetFeatures,
	})
}

// AssignDefaultLicense puts a newly provisioned user on the platform default
// tier. Replays surface ALREADY_LICENSED; callers treat that as provisioned.
func AssignDefaultLicense(c middleware.Context) {
	var req stewardapi.AssignDefaultLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, stewardapi.ErrorResponse{Error: err.Error(), Code: CodeInvalidRequest})
		return
	}

	tierName := config.GetEnv("DEFAULT_TIER_NAME", "starter")
	tier, err := tierStore.GetTierByName(c.Request.Context(), tierName)
	if errors.Is(err, tiers.ErrNotFound) {
		logger.WithFields(logging.Fields{"tier": tierName}).Error("Default tier missing")
		c.JSON(http.StatusNotFound, stewardapi.ErrorResponse{Error: "Default tier not configured", Code: CodeNotFound})
		return
	}
	if err != nil {
		writeLedgerError(c, "assign_default", err)
		return
	}

	result, err := licenses.Assign(c.Request.Context(), req.UserID, tier.ID, "system", nil)
	if err != nil {
		recordTransaction(models.TxAssign, "error")
		writeLedgerError(c, "assign_default", err)
		return
	}

	recordTransaction(models.TxAssign, "success")
	recordPoolAvailable(result.TenantID, result.TierID, result.SeatsAvailable)
	events.LicenseAssigned(result)

	logger.WithFields(logging.Fields{
		"user_id": req.UserID,
		"tier":    tierName,
	}).Info("Assigned default license")

	c.JSON(http.StatusOK, stewardapi.AssignLicenseResponse{
		UserID:           result.UserID,
		TierID:           result.TierID,
		CreditsAllocated: result.CreditsAllocated,
		ExpiresAt:        result.ExpiresAt,
		SeatsAvailable:   result.SeatsAvailable,
	})
}
