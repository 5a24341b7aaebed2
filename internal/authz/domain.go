package authz

import (
	"encoding/json"
	"sort"
	"strings"
)

// RoleSlug is a short machine-readable role identifier.
type RoleSlug string

const (
	// RoleDeveloper is the elevated platform role with unrestricted access
	// and free tenant switching.
	RoleDeveloper RoleSlug = "developer"
	// RoleSuperAdmin is the unrestricted administrative role, scoped to its
	// own tenant.
	RoleSuperAdmin RoleSlug = "super_admin"
)

// Permission is a dotted capability slug such as "users.create". It is
// opaque beyond equality.
type Permission string

// PermissionSet holds a role's granted permissions for membership tests.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given slugs, normalising case and
// dropping empty entries.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		p = Permission(strings.TrimSpace(strings.ToLower(string(p))))
		if p == "" {
			continue
		}
		set[p] = struct{}{}
	}
	return set
}

// Has reports membership of the given permission.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[Permission(strings.ToLower(string(p)))]
	return ok
}

// Slugs returns the permissions in sorted order.
func (s PermissionSet) Slugs() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MarshalJSON encodes the set as a sorted string array.
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slugs())
}

// UnmarshalJSON decodes a string array into the set.
func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var perms []Permission
	if err := json.Unmarshal(data, &perms); err != nil {
		return err
	}
	*s = NewPermissionSet(perms...)
	return nil
}

// Role groups a slug, an ordering level and a permission set. Higher level
// means broader capability.
type Role struct {
	Slug        RoleSlug      `json:"slug"`
	Level       int           `json:"level"`
	Permissions PermissionSet `json:"permissions"`
}

// Principal is the authenticated identity for the current session. It is an
// immutable snapshot: replaced wholesale on login, refresh or role change and
// destroyed at logout.
type Principal struct {
	ID       int64 `json:"id"`
	Role     Role  `json:"role"`
	TenantID int64 `json:"tenant_id"`
}
