package enforcement

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"frameworks/api_licensing/pkg/ctxkeys"
	"frameworks/api_licensing/pkg/logging"
	"frameworks/api_licensing/pkg/models"

	"github.com/gin-gonic/gin"
)

func middlewareRouter(source *fakeFeatureSource, userID, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if userID != "" {
		r.Use(func(c *gin.Context) {
			c.Set(string(ctxkeys.KeyUserID), userID)
			c.Set(string(ctxkeys.KeyRole), role)
			c.Next()
		})
	}
	r.Use(Middleware(New(source, logging.NewLogger()), logging.NewLogger()))
	r.GET("/api/v1/mcp/servers", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/api/v1/features", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/api/v1/plain", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func doRequest(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, path, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware_ExemptRoutePasses(t *testing.T) {
	source := &fakeFeatureSource{err: errors.New("store is down")}
	r := middlewareRouter(source, "user-1", models.RoleMember)

	if w := doRequest(t, r, "/api/v1/features"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 on an exempt route, got %d", w.Code)
	}
	if source.calls != 0 {
		t.Fatalf("expected no resolution on exempt routes, got %d calls", source.calls)
	}
}

func TestMiddleware_UnmappedRoutePasses(t *testing.T) {
	source := &fakeFeatureSource{}
	r := middlewareRouter(source, "user-1", models.RoleMember)

	if w := doRequest(t, r, "/api/v1/plain"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 on an unmapped route, got %d", w.Code)
	}
}

func TestMiddleware_UnauthenticatedPassesThrough(t *testing.T) {
	source := &fakeFeatureSource{}
	r := middlewareRouter(source, "", "")

	// The auth middleware owns rejecting anonymous requests.
	if w := doRequest(t, r, "/api/v1/mcp/servers"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for unauthenticated passthrough, got %d", w.Code)
	}
	if source.calls != 0 {
		t.Fatalf("expected no resolution for anonymous requests, got %d calls", source.calls)
	}
}

func TestMiddleware_SuperadminPasses(t *testing.T) {
	source := &fakeFeatureSource{err: errors.New("store is down")}
	r := middlewareRouter(source, "admin-1", models.RoleSuperAdmin)

	if w := doRequest(t, r, "/api/v1/mcp/servers"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for a superadmin, got %d", w.Code)
	}
}

func TestMiddleware_AllowsWithFeature(t *testing.T) {
	source := &fakeFeatureSource{sets: map[string]*models.ResolvedFeatureSet{
		"user-1": enabledSet("user-1", "integrations.mcp"),
	}}
	r := middlewareRouter(source, "user-1", models.RoleMember)

	if w := doRequest(t, r, "/api/v1/mcp/servers"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with the feature enabled, got %d", w.Code)
	}
}

func TestMiddleware_DeniesWithUpgradeBody(t *testing.T) {
	source := &fakeFeatureSource{}
	r := middlewareRouter(source, "user-1", models.RoleMember)

	w := doRequest(t, r, "/api/v1/mcp/servers")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	var body struct {
		Detail           string   `json:"detail"`
		ErrorCode        string   `json:"error_code"`
		RequiredFeatures []string `json:"required_features"`
		UpgradeURL       string   `json:"upgrade_url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.ErrorCode != "FEATURE_NOT_ENABLED" {
		t.Fatalf("expected FEATURE_NOT_ENABLED, got %q", body.ErrorCode)
	}
	if len(body.RequiredFeatures) != 2 {
		t.Fatalf("expected both required keys in the body, got %v", body.RequiredFeatures)
	}
	if body.UpgradeURL != "/settings/subscription" {
		t.Fatalf("expected an upgrade url, got %q", body.UpgradeURL)
	}
}

func TestMiddleware_FailsClosedOnResolverError(t *testing.T) {
	source := &fakeFeatureSource{err: errors.New("store is down")}
	r := middlewareRouter(source, "user-1", models.RoleMember)

	w := doRequest(t, r, "/api/v1/mcp/servers")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when resolution fails, got %d", w.Code)
	}

	var body struct {
		ErrorCode string `json:"error_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.ErrorCode != "FEATURE_SERVICE_ERROR" {
		t.Fatalf("expected FEATURE_SERVICE_ERROR, got %q", body.ErrorCode)
	}
}
