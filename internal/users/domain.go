// Package users serves the user management screens, proxied to the
// upstream platform API.
package users

import "time"

// User is one console-managed account.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	RoleID    int64     `json:"role_id"`
	RoleSlug  string    `json:"role_slug"`
	RoleLevel int       `json:"role_level"`
	TenantID  int64     `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateUserRequest is the create form body.
type CreateUserRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Name   string `json:"name" validate:"required,min=2,max=128"`
	RoleID int64  `json:"role_id" validate:"required,gt=0"`
}

// UpdateUserRequest is the edit form body.
type UpdateUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=128"`
	IsActive *bool  `json:"is_active" validate:"required"`
}

// AssignRoleRequest changes a user's role.
type AssignRoleRequest struct {
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}
