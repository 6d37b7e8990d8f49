package access

// StandardPolicy is the route table used when configuration does not supply
// one. Unlisted paths stay reachable for any authenticated role.
func StandardPolicy() Policy {
	return Policy{
		PublicPaths: []string{
			"/",
			"/login",
			"/register",
			"/unauthorized",
			"/not-found",
			"/favicon.ico",
			"/health",
			"/api/auth/login",
			"/api/analyzer/callback",
		},
		PublicPrefixes: []string{"/_next/", "/static/"},
		Routes: []RouteSpec{
			{Pattern: "/dashboard", Roles: []Role{RoleLaw, RoleManagement, RoleInternal}},
			{Pattern: "/contracts", Roles: []Role{RoleLaw, RoleManagement, RoleInternal}},
			{Pattern: "/upload", Roles: []Role{RoleLaw, RoleInternal}},
			{Pattern: "/drafting", Roles: []Role{RoleLaw}},
			{Pattern: "/validation", Roles: []Role{RoleLaw, RoleManagement}},
			{Pattern: "/users", Roles: []Role{RoleManagement}},
			{Pattern: "/api/auth", Roles: []Role{RoleLaw, RoleManagement, RoleInternal, RoleGuest}},
			{Pattern: "/api/contracts", Roles: []Role{RoleLaw, RoleManagement, RoleInternal}},
			{Pattern: "/api/contracts/upload", Roles: []Role{RoleLaw, RoleInternal}},
		},
		Default: DefaultAllow,
	}
}
