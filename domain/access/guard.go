// Package access provides role and authorization types for the portal.
package access

// Role represents a user role in the system.
type Role string

const (
	RoleCitizen Role = "citizen" // files and tracks own cases
	RoleOfficer Role = "officer" // works the full case queue
	RoleAdmin   Role = "admin"   // manages officers, reviews the audit trail
)

// ValidRole reports whether the given role is one of the known values.
func ValidRole(r Role) bool {
	switch r {
	case RoleCitizen, RoleOfficer, RoleAdmin:
		return true
	}
	return false
}

// Session is a read-only snapshot of the authenticated caller, materialized
// from validated token claims. A nil *Session means unauthenticated.
type Session struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
}

// Verdict is the outcome of an authorization check.
type Verdict int

const (
	// VerdictPending means the session is still being resolved. Callers must
	// wait, not redirect, or an unauthenticated flash occurs on load.
	VerdictPending Verdict = iota
	// VerdictAllow grants access.
	VerdictAllow
	// VerdictRedirect means no session exists; send the caller to login.
	VerdictRedirect
	// VerdictDeny means the session's role does not satisfy the requirement.
	VerdictDeny
)

func (v Verdict) String() string {
	switch v {
	case VerdictPending:
		return "pending"
	case VerdictAllow:
		return "allow"
	case VerdictRedirect:
		return "redirect"
	case VerdictDeny:
		return "deny"
	}
	return "unknown"
}

// Decision carries the verdict together with the roles involved, so a denied
// caller can be shown their actual role against the required ones.
type Decision struct {
	Verdict       Verdict
	ActualRole    Role
	RequiredRoles []Role
}

// Authorize decides whether a session may access a resource guarded by the
// given roles. It is a pure function of its inputs: no side effects, no
// retries. An empty required set means any authenticated caller is allowed.
func Authorize(session *Session, loading bool, required ...Role) Decision {
	if loading {
		return Decision{Verdict: VerdictPending, RequiredRoles: required}
	}
	if session == nil {
		return Decision{Verdict: VerdictRedirect, RequiredRoles: required}
	}
	if len(required) == 0 {
		return Decision{Verdict: VerdictAllow, ActualRole: session.Role}
	}
	for _, r := range required {
		if session.Role == r {
			return Decision{Verdict: VerdictAllow, ActualRole: session.Role, RequiredRoles: required}
		}
	}
	return Decision{Verdict: VerdictDeny, ActualRole: session.Role, RequiredRoles: required}
}
