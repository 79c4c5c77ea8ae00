package carbonview

import (
	"github.com/goliatone/go-router"
)

// TemplateUserKey is the view-context key pages use for the signed-in user.
var TemplateUserKey = "current_user"

// TemplateHelpers returns globals for the view engine so every template can
// interrogate the session without the handler passing it explicitly.
//
// In templates:
//
//	{% if is_authenticated() %}
//	{% if has_role("ADMIN") %}
//	<a href="{{ role_home() }}">My dashboard</a>
func TemplateHelpers(manager *Manager) map[string]any {
	return map[string]any{
		"is_authenticated": func() bool {
			return manager.Current().Authenticated()
		},
		"has_role": func(role string) bool {
			sess := manager.Current()
			return sess.User != nil && string(sess.User.Role) == role
		},
		"role_home": func() string {
			sess := manager.Current()
			if sess.User == nil {
				return "/"
			}
			return sess.User.Role.HomePath()
		},
		"roles": map[string]string{
			"admin": string(RoleAdmin),
			"buyer": string(RoleBuyer),
			"owner": string(RoleOwner),
			"cva":   string(RoleCVA),
		},
	}
}

// MergeTemplateData layers the session user into a view context.
func MergeTemplateData(manager *Manager, data router.ViewContext) router.ViewContext {
	if data == nil {
		data = router.ViewContext{}
	}
	if sess := manager.Current(); sess.User != nil {
		data[TemplateUserKey] = sess.User
	}
	return data
}
