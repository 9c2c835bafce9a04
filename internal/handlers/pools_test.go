package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	stewardapi "frameworks/api_licensing/pkg/api/steward"
	"frameworks/api_licensing/pkg/models"
)

func TestGetTenantPoolsRequiresSuperadmin(t *testing.T) {
	mock := setupHandlers(t)

	router := routerAs(caller{userID: "admin-1", tenantID: "tenant-a", role: models.RoleTenantAdmin})
	router.GET("/admin/tenants/:tenant_id/pools", GetTenantPools)

	resp := doRequest(t, router, http.MethodGet, "/admin/tenants/tenant-a/pools", nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", resp.Code, resp.Body.String())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetTenantPools(t *testing.T) {
	mock := setupHandlers(t)

	now := time.Now()
	mock.ExpectQuery("FROM steward.tenant_license_pools p").
		WithArgs("tenant-a").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "tier_id", "total_count", "assigned_count", "available_count",
			"created_at", "updated_at", "tier_name", "display_name",
		}).
			AddRow("pool-1", "tenant-a", "tier-basic", 10, 4, 6, now, now, "basic", "Basic").
			AddRow("pool-2", "tenant-a", "tier-pro", 5, 5, 0, now, now, "pro", "Pro"))

	router := routerAs(caller{userID: "root-1", tenantID: "tenant-root", role: models.RoleSuperAdmin})
	router.GET("/admin/tenants/:tenant_id/pools", GetTenantPools)

	resp := doRequest(t, router, http.MethodGet, "/admin/tenants/tenant-a/pools", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var pools stewardapi.PoolsResponse
	decodeBody(t, resp, &pools)
	if pools.Count != 2 {
		t.Fatalf("expected 2 pools, got %d", pools.Count)
	}
	if pools.Pools[0].TierName != "basic" || pools.Pools[0].AvailableCount != 6 {
		t.Fatalf("unexpected first pool: %+v", pools.Pools[0])
	}
	if pools.Pools[1].TierDisplayName != "Pro" || pools.Pools[1].AvailableCount != 0 {
		t.Fatalf("unexpected second pool: %+v", pools.Pools[1])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
