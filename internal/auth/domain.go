package auth

import (
	"github.com/atrium-console/atrium/internal/authz"
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// identityPayload is the upstream identity wire shape. The upstream calls
// the tenant a company.
type identityPayload struct {
	User struct {
		ID        int64 `json:"id"`
		CompanyID int64 `json:"company_id"`
		Role      struct {
			Slug        string   `json:"slug"`
			Level       int      `json:"level"`
			Permissions []string `json:"permissions"`
		} `json:"role"`
	} `json:"user"`
}

func (p identityPayload) principal() *authz.Principal {
	perms := make([]authz.Permission, 0, len(p.User.Role.Permissions))
	for _, s := range p.User.Role.Permissions {
		perms = append(perms, authz.Permission(s))
	}
	return &authz.Principal{
		ID:       p.User.ID,
		TenantID: p.User.CompanyID,
		Role: authz.Role{
			Slug:        authz.RoleSlug(p.User.Role.Slug),
			Level:       p.User.Role.Level,
			Permissions: authz.NewPermissionSet(perms...),
		},
	}
}
