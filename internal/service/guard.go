package service

import "github.com/msomdec/pyq-archive/internal/domain"

// GuardDecision is the outcome of an access check.
type GuardDecision int

const (
	RenderChildren GuardDecision = iota
	RedirectToLogin
	RedirectToRoleHome
)

// LoginPath is where unauthenticated requests are sent.
const LoginPath = "/login"

// GuardResult carries the decision and, for redirects, its target.
type GuardResult struct {
	Decision GuardDecision
	Location string
}

// Guard decides whether a view may render for the given principal and role.
// required is RoleUnknown when the view only needs a signed-in principal. A
// principal whose role could not be resolved is treated as signed out.
func Guard(p *domain.Principal, role, required domain.Role) GuardResult {
	if p == nil || role == domain.RoleUnknown {
		return GuardResult{Decision: RedirectToLogin, Location: LoginPath}
	}
	if required != domain.RoleUnknown && role != required {
		return GuardResult{Decision: RedirectToRoleHome, Location: role.Home()}
	}
	return GuardResult{Decision: RenderChildren}
}
