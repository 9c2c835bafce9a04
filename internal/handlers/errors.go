package handlers

import (
	"errors"
	"net/http"

	"frameworks/api_licensing/internal/ledger"
	stewardapi "frameworks/api_licensing/pkg/api/steward"
	"frameworks/api_licensing/pkg/logging"
	"frameworks/api_licensing/pkg/middleware"
)

// Stable error codes carried in the error envelope. Callers branch on these,
// never on the message text.
const (
	CodePoolExhausted          = "POOL_EXHAUSTED"
	CodeAlreadyLicensed        = "ALREADY_LICENSED"
	CodeNotLicensed            = "NOT_LICENSED"
	CodeInsufficientCredits    = "INSUFFICIENT_CREDITS"
	CodeUnknownFeatureKey      = "UNKNOWN_FEATURE_KEY"
	CodeStorageUnavailable     = "STORAGE_UNAVAILABLE"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeFeatureNotEnabled      = "FEATURE_NOT_ENABLED"
	CodeNotFound               = "NOT_FOUND"
	CodeInvalidRequest         = "INVALID_REQUEST"
	CodeForbidden              = "FORBIDDEN"
)

// writeLedgerError maps ledger error kinds onto the error envelope. Anything
// unrecognized is reported as a retryable storage failure; the underlying
// error stays in the logs.
func writeLedgerError(c middleware.Context, op string, err error) {
	switch {
	case errors.Is(err, ledger.ErrPoolExhausted):
		c.JSON(http.StatusConflict, stewardapi.ErrorResponse{Error: "No license seats available for this tier", Code: CodePoolExhausted})
	case errors.Is(err, ledger.ErrAlreadyLicensed):
		c.JSON(http.StatusConflict, stewardapi.ErrorResponse{Error: "User already holds an active license", Code: CodeAlreadyLicensed})
	case errors.Is(err, ledger.ErrNotLicensed):
		c.JSON(http.StatusConflict, stewardapi.ErrorResponse{Error: "User holds no active license", Code: CodeNotLicensed})
	case errors.Is(err, ledger.ErrInsufficientCredits):
		c.JSON(http.StatusPaymentRequired, stewardapi.ErrorResponse{Error: "Insufficient credits", Code: CodeInsufficientCredits})
	case errors.Is(err, ledger.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, stewardapi.ErrorResponse{Error: "Amount must be positive", Code: CodeInvalidRequest})
	case errors.Is(err, ledger.ErrInvalidPoolSize):
		c.JSON(http.StatusUnprocessableEntity, stewardapi.ErrorResponse{Error: "Pool size cannot drop below assigned seats", Code: CodeInvalidRequest})
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, stewardapi.ErrorResponse{Error: "Not found", Code: CodeNotFound})
	case errors.Is(err, ledger.ErrConcurrentModification):
		c.JSON(http.StatusServiceUnavailable, stewardapi.ErrorResponse{Error: "Concurrent modification, please retry", Code: CodeConcurrentModification})
	default:
		logger.WithFields(logging.Fields{
			"error":     err,
			"operation": op,
		}).Error("Storage failure")
		c.JSON(http.StatusServiceUnavailable, stewardapi.ErrorResponse{Error: "Storage unavailable", Code: CodeStorageUnavailable})
	}
}

func writeResolutionError(c middleware.Context, userID string, err error) {
	logger.WithFields(logging.Fields{
		"error":   err,
		"user_id": userID,
	}).Error("Feature resolution failed")
	c.JSON(http.StatusServiceUnavailable, stewardapi.ErrorResponse{Error: "Feature resolution unavailable", Code: CodeStorageUnavailable})
}
