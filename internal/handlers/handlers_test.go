package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"frameworks/api_licensing/pkg/ctxkeys"
	"frameworks/api_licensing/pkg/logging"
)

// setupHandlers wires the package against a mock database. Init rebuilds the
// resolver each time, so cached feature sets never leak between tests.
func setupHandlers(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	Init(mockDB, logging.NewLogger(), nil, nil)
	return mock
}

type caller struct {
	userID   string
	tenantID string
	role     string
}

// routerAs builds a router that stores the caller identity on the request
// context the way the auth middleware does.
func routerAs(id caller) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if id.userID != "" {
			c.Set(string(ctxkeys.KeyUserID), id.userID)
		}
		if id.tenantID != "" {
			c.Set(string(ctxkeys.KeyTenantID), id.tenantID)
		}
		if id.role != "" {
			c.Set(string(ctxkeys.KeyRole), id.role)
		}
		c.Next()
	})
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(resp.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", resp.Body.String(), err)
	}
}

// Column sets matching the store scan order.
var (
	userLicenseCols = []string{"id", "tenant_id", "license_tier_id", "license_is_active", "credits_allocated", "credits_used", "credits_per_month", "license_assigned_at", "license_assigned_by", "license_expires_at"}
	featureCols     = []string{"id", "feature_key", "name", "description", "category", "subcategory", "kind", "default_value", "is_premium", "depends_on", "display_order", "is_active", "created_at", "updated_at"}
	tierCols        = []string{"id", "tier_name", "display_name", "description", "default_credits", "credits_per_month", "base_price_cents", "currency", "max_seats_per_tenant", "is_active", "sort_order", "created_at", "updated_at"}
)

func licensedUserRow(userID, tenantID, tierID string, allocated, used int64) *sqlmock.Rows {
	return sqlmock.NewRows(userLicenseCols).
		AddRow(userID, tenantID, tierID, true, allocated, used, nil, time.Now(), nil, nil)
}

func unlicensedUserRow(userID, tenantID string) *sqlmock.Rows {
	return sqlmock.NewRows(userLicenseCols).
		AddRow(userID, tenantID, nil, false, 0, 0, nil, nil, nil, nil)
}

func booleanFeatureRows(defaults map[string]bool, keys ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows(featureCols)
	now := time.Now()
	for i, key := range keys {
		enabled := "false"
		if defaults[key] {
			enabled = "true"
		}
		rows.AddRow("feat-"+key, key, key, "", "test", nil, "boolean",
			[]byte(`{"enabled": `+enabled+`}`), false, nil, i, true, now, now)
	}
	return rows
}

func tierRow(id, name, displayName string, defaultCredits int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(tierCols).
		AddRow(id, name, displayName, "", defaultCredits, nil, 0, "EUR", nil, true, 0, now, now)
}
