package enforcement

import "regexp"

// routeRule maps a request path pattern to the feature keys that unlock it.
// Keys are OR'd: any one enabled feature grants the route.
type routeRule struct {
	pattern  *regexp.Regexp
	features []string
}

func rule(pattern string, features ...string) routeRule {
	return routeRule{pattern: regexp.MustCompile("(?i)" + pattern), features: features}
}

// routeRules is the route protection table. To protect a new route, add it
// here; no handler changes needed. Patterns are matched in order, first hit
// wins.
var routeRules = []routeRule{
	// MCP
	rule(`^/api/v[12]/mcp/servers`, "integrations.mcp", "ui.advanced.mcp_server_config"),
	rule(`^/api/v[12]/mcp/sse`, "integrations.mcp"),

	// Custom components
	rule(`^/api/v[12]/custom-components`, "components.custom.enabled"),
	rule(`^/api/v[12]/components/.*/code$`, "components.custom.code_editing", "ui.code_view.edit_code"),
	rule(`^/api/v[12]/validate/code`, "components.custom.code_editing", "ui.code_view.edit_code"),

	// Flow operations
	rule(`^/api/v[12]/flows/.*/export$`, "ui.flow_builder.export_flow"),
	rule(`^/api/v[12]/flows/.*/import$`, "ui.flow_builder.import_flow"),
	rule(`^/api/v[12]/flows/.*/share$`, "ui.flow_builder.share_flow"),
	rule(`^/api/v[12]/flows/.*/versions`, "ui.flow_builder.version_control"),
	rule(`^/api/v[12]/flows/.*/duplicate$`, "ui.flow_builder.duplicate_flow"),

	// API access
	rule(`^/api/v[12]/api[_-]?keys`, "ui.advanced.api_keys_management"),
	rule(`^/api/v[12]/webhooks`, "api.webhooks"),
	rule(`^/api/v[12]/batch`, "api.batch_execution"),

	// Global variables
	rule(`^/api/v[12]/variables`, "ui.advanced.global_variables"),

	// Vector stores. Chroma is local and ungated; hosted stores are premium.
	rule(`^/api/v[12]/vector[_-]?stores/pinecone`, "integrations.vector_stores.pinecone"),
	rule(`^/api/v[12]/vector[_-]?stores/qdrant`, "integrations.vector_stores.qdrant"),
	rule(`^/api/v[12]/vector[_-]?stores/weaviate`, "integrations.vector_stores.weaviate"),
	rule(`^/api/v[12]/vector[_-]?stores/milvus`, "integrations.vector_stores.milvus"),

	// Component store
	rule(`^/api/v[12]/store/components/download`, "components.custom.import_external"),
	rule(`^/api/v[12]/store/components/upload`, "ui.flow_builder.share_flow"),
}

// exemptRoutes always bypass feature checks so a user can never be locked
// out of health checks, auth bootstrap, or the feature surface itself.
var exemptRoutes = compilePatterns(
	// Health and status
	`^/health`,
	`^/ready`,
	`^/metrics`,
	`^/api/v[12]/health`,

	// Authentication
	`^/api/v[12]/login`,
	`^/api/v[12]/logout`,
	`^/api/v[12]/register`,
	`^/api/v[12]/refresh`,
	`^/api/v[12]/auto[_-]?login`,
	`^/api/v[12]/token`,

	// Feature API; users need to query their own plan
	`^/features`,
	`^/api/v[12]/features`,

	// User profile
	`^/api/v[12]/users/me$`,
	`^/api/v[12]/users/whoami$`,

	// Basic flow CRUD; execution is authorized per operation
	`^/api/v[12]/flows$`,
	`^/api/v[12]/flows/[^/]+$`,
	`^/api/v[12]/run/`,
	`^/api/v[12]/build/`,

	// Folders and starter projects
	`^/api/v[12]/folders`,
	`^/api/v[12]/starter[_-]?projects`,

	// Documentation and static assets
	`^/docs`,
	`^/openapi\.json`,
	`^/redoc`,
	`^/static/`,
	`^/assets/`,

	// Admin surface carries its own role checks
	`^/api/v[12]/admin/`,
	`^/api/v[12]/superuser/`,

	// Read-only tier and tenant info
	`^/api/v[12]/license[_-]?tiers$`,
	`^/api/v[12]/tenants/me$`,
)

func compilePatterns(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile("(?i)"+p))
	}
	return compiled
}

// IsExemptRoute reports whether a path bypasses feature checks entirely.
func IsExemptRoute(path string) bool {
	for _, p := range exemptRoutes {
		if p.MatchString(path) {
			return true
		}
	}
	return false
}

// RequiredRouteFeatures returns the feature keys protecting a path. An
// empty result means the route is exempt or unmapped and carries no
// requirement.
func RequiredRouteFeatures(path string) []string {
	if IsExemptRoute(path) {
		return nil
	}
	for _, r := range routeRules {
		if r.pattern.MatchString(path) {
			return append([]string(nil), r.features...)
		}
	}
	return nil
}
