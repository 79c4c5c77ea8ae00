package carbonview

import "strings"

// Role is the marketplace account role
type Role string

const (
	// RoleAdmin moderates users, disputes, and reports
	RoleAdmin Role = "ADMIN"
	// RoleBuyer browses the marketplace and purchases credits
	RoleBuyer Role = "BUYER"
	// RoleOwner is an EV owner: uploads journeys, generates and sells credits
	RoleOwner Role = "OWNER"
	// RoleCVA is a Certified Verification Auditor: approves or rejects
	// submitted journeys and the credits they yield
	RoleCVA Role = "CVA"
)

// IsValid checks if the role is one of the predefined marketplace roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleBuyer, RoleOwner, RoleCVA:
		return true
	default:
		return false
	}
}

// HomePath is the role's default dashboard, used as the landing page after
// login and as the redirect target when a user strays into another role's
// route group.
func (r Role) HomePath() string {
	switch r {
	case RoleAdmin:
		return "/admin/dashboard"
	case RoleBuyer:
		return "/buyer/dashboard"
	case RoleOwner:
		return "/owner/dashboard"
	case RoleCVA:
		return "/cva/dashboard"
	default:
		return "/forbidden"
	}
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{RoleAdmin, RoleBuyer, RoleOwner, RoleCVA}
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(roleStr)))
	return role, role.IsValid()
}

// RouteRule maps a URL path prefix to the single role permitted to view it.
type RouteRule struct {
	Prefix string
	Role   Role
}

// RouteRules is the console's whole authorization policy. Every protected
// prefix maps to exactly one role; prefixes not listed here are public.
var RouteRules = []RouteRule{
	{Prefix: "/admin", Role: RoleAdmin},
	{Prefix: "/buyer", Role: RoleBuyer},
	{Prefix: "/owner", Role: RoleOwner},
	{Prefix: "/cva", Role: RoleCVA},
}

// RequiredRole resolves the role a path demands. ok is false for public
// paths. Matching respects segment boundaries: /cva-help is not /cva.
func RequiredRole(path string) (Role, bool) {
	for _, rule := range RouteRules {
		if path == rule.Prefix {
			return rule.Role, true
		}
		if strings.HasPrefix(path, rule.Prefix+"/") {
			return rule.Role, true
		}
	}
	return "", false
}
