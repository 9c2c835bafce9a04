package enforcement

import (
	"net/http"
	"strings"

	"frameworks/api_licensing/pkg/ctxkeys"
	"frameworks/api_licensing/pkg/logging"
	"frameworks/api_licensing/pkg/models"

	"github.com/gin-gonic/gin"
)

// Middleware enforces the route protection table on every request. Exempt
// and unmapped routes pass, unauthenticated requests pass (the auth
// middleware owns rejection), superadmins pass, then any one enabled
// feature from the matched rule grants access. Resolution failures deny
// with 503 rather than failing open.
func Middleware(enforcer *Enforcer, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if IsExemptRoute(path) {
			c.Next()
			return
		}

		required := RequiredRouteFeatures(path)
		if len(required) == 0 {
			c.Next()
			return
		}

		userID := c.GetString(string(ctxkeys.KeyUserID))
		if userID == "" {
			c.Next()
			return
		}
		role := c.GetString(string(ctxkeys.KeyRole))
		if role == models.RoleSuperAdmin {
			c.Next()
			return
		}

		decision, err := enforcer.anyEnabled(c.Request.Context(), userID, role, required)
		if err != nil {
			logger.WithError(err).WithFields(logging.Fields{
				"user_id": userID,
				"path":    path,
			}).Error("Feature resolution unavailable, denying request")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"detail":     "Feature verification service unavailable.",
				"error_code": "FEATURE_SERVICE_ERROR",
			})
			return
		}
		if decision.Allowed {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"detail":            "This feature is not available in your current plan.",
			"error_code":        "FEATURE_NOT_ENABLED",
			"required_features": required,
			"message":           "Access requires one of: " + strings.Join(required, ", "),
			"upgrade_url":       "/settings/subscription",
		})
	}
}
