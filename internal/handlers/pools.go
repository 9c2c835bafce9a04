package handlers

import (
	"net/http"

	stewardapi "frameworks/api_licensing/pkg/api/steward"
	"frameworks/api_licensing/pkg/logging"
	"frameworks/api_licensing/pkg/middleware"
)

// GetTenantPools returns the license pools of a tenant (superadmin)
func GetTenantPools(c middleware.Context) {
	if !requireSuperAdmin(c) {
		return
	}

	tenantID := c.Param("tenant_id")
	pools, err := licenses.ListPools(c.Request.Context(), tenantID)
	if err != nil {
		writeLedgerError(c, "list_pools", err)
		return
	}

	summaries := make([]stewardapi.PoolSummary, 0, len(pools))
	for _, pool := range pools {
		summaries = append(summaries, stewardapi.PoolSummary{
			TenantLicensePool: pool.TenantLicensePool,
			TierName:          pool.TierName,
			TierDisplayName:   pool.TierDisplayName,
		})
	}

	c.JSON(http.StatusOK, stewardapi.PoolsResponse{
		TenantID: tenantID,
		Pools:    summaries,
		Count:    len(summaries),
	})
}

// CreateOrResizePool sets the seat count of a tenant's pool, creating the
// pool if it does not exist (superadmin). Shrinking below the assigned seat
// count is rejected.
func CreateOrResizePool(c middleware.Context) {
	if !requireSuperAdmin(c) {
		return
	}

	tenantID := c.Param("tenant_id")
	var req stewardapi.CreatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, stewardapi.ErrorResponse{Error: err.Error(), Code: CodeInvalidRequest})
		return
	}

	pool, err := licenses.SetPoolSize(c.Request.Context(), tenantID, req.TierID, req.TotalCount)
	if err != nil {
		writeLedgerError(c, "resize_pool", err)
		return
	}

	recordPoolSeats(pool.TenantID, pool.TierID, pool.TotalCount, pool.AssignedCount, pool.AvailableCount)

	logger.WithFields(logging.Fields{
		"tenant_id":   tenantID,
		"tier_id":     req.TierID,
		"total_count": pool.TotalCount,
	}).Info("Resized license pool")

	c.JSON(http.StatusOK, stewardapi.PoolResponse{Pool: *pool})
}
