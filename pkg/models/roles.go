package models

// Roles recognized by the licensing service. Identity itself belongs to the
// tenants service; these values arrive in JWT claims.
const (
	RoleSuperAdmin  = "superadmin"
	RoleTenantAdmin = "tenant_admin"
	RoleMember      = "member"
	RoleService     = "service"
)
