// Package authz implements the console's authorization rules as pure
// predicates over the session principal. Nothing here performs I/O or
// returns errors: denial is a false return, presentation is the caller's
// concern.
package authz

// IsDeveloper reports whether the principal carries the developer role.
func IsDeveloper(p *Principal) bool {
	return p != nil && p.Role.Slug == RoleDeveloper
}

// IsSuperAdmin reports whether the principal carries the super_admin role.
func IsSuperAdmin(p *Principal) bool {
	return p != nil && p.Role.Slug == RoleSuperAdmin
}

func isPrivileged(p *Principal) bool {
	return IsDeveloper(p) || IsSuperAdmin(p)
}

// HasPermission reports whether the principal may exercise the given
// permission. An absent principal always denies. Privileged roles always
// pass regardless of their declared permission set. An empty permission
// means "no requirement declared" and passes for any authenticated
// principal; see the note on Requirement for why that asymmetry exists.
func HasPermission(p *Principal, perm Permission) bool {
	if p == nil {
		return false
	}
	if isPrivileged(p) {
		return true
	}
	if perm == "" {
		return true
	}
	return p.Role.Permissions.Has(perm)
}

// HasAnyPermission is the logical OR of HasPermission over perms. OR over an
// empty list is false.
func HasAnyPermission(p *Principal, perms []Permission) bool {
	for _, perm := range perms {
		if HasPermission(p, perm) {
			return true
		}
	}
	return false
}

// HasAllPermissions is the logical AND of HasPermission over perms. AND over
// an empty list is vacuously true, even without a principal.
func HasAllPermissions(p *Principal, perms []Permission) bool {
	if len(perms) == 0 {
		return true
	}
	if p == nil {
		return false
	}
	for _, perm := range perms {
		if !HasPermission(p, perm) {
			return false
		}
	}
	return true
}

// HasMinLevel reports whether the principal's role level is at least min.
// Privileged roles always pass. An absent principal passes here: level
// gating assumes an authenticated caller, and pre-authentication denial is
// the session guard's job, not this check's.
func HasMinLevel(p *Principal, min int) bool {
	if p == nil {
		return true
	}
	if isPrivileged(p) {
		return true
	}
	return p.Role.Level >= min
}

// CanManage reports whether actor may manage a subject at targetLevel.
// Privileged roles always may; otherwise the actor's level must meet the
// target's.
func CanManage(actor *Principal, targetLevel int) bool {
	if actor == nil {
		return false
	}
	if isPrivileged(actor) {
		return true
	}
	return actor.Role.Level >= targetLevel
}

// Requirement declares what an action demands of the acting principal.
// Unset fields trivially pass; set fields are ANDed together.
//
// Note the inherited asymmetry: a Requirement with every field unset allows
// any authenticated principal, while an absent principal is denied by each
// individual check. Guards that mean "authenticated only" rely on the first
// half; guards that forget to declare a permission silently get it too.
type Requirement struct {
	Permission    Permission
	AnyOf         []Permission
	AllOf         []Permission
	MinLevel      *int
	DeveloperOnly bool
}

// Allows evaluates the requirement against the principal.
func (r Requirement) Allows(p *Principal) bool {
	if p == nil {
		return false
	}
	if r.DeveloperOnly && !IsDeveloper(p) {
		return false
	}
	if r.Permission != "" && !HasPermission(p, r.Permission) {
		return false
	}
	if len(r.AnyOf) > 0 && !HasAnyPermission(p, r.AnyOf) {
		return false
	}
	if len(r.AllOf) > 0 && !HasAllPermissions(p, r.AllOf) {
		return false
	}
	if r.MinLevel != nil && !HasMinLevel(p, *r.MinLevel) {
		return false
	}
	return true
}

// MinLevel is a convenience for building Requirement literals.
func MinLevel(level int) *int {
	return &level
}
