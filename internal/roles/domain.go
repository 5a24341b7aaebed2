// Package roles serves the role management screens, proxying CRUD to the
// upstream platform API through the dispatcher so tenant scoping and
// approval interception apply.
package roles

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role is one role as served to the console.
type Role struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	Level       int       `json:"level"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission is one assignable capability as served to the console.
type Permission struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// CreateRoleRequest is the create form body.
type CreateRoleRequest struct {
	Slug        string   `json:"slug" validate:"required,min=2,max=64"`
	Description string   `json:"description" validate:"max=255"`
	Level       int      `json:"level" validate:"gte=0,lte=1000"`
	Permissions []string `json:"permissions" validate:"dive,min=3"`
}

// UpdateRoleRequest is the edit form body.
type UpdateRoleRequest struct {
	Description string   `json:"description" validate:"max=255"`
	Level       int      `json:"level" validate:"gte=0,lte=1000"`
	Permissions []string `json:"permissions" validate:"dive,min=3"`
}

var titleCaser = cases.Title(language.English)

// displayName humanizes a role slug for listing screens, e.g.
// "super_admin" becomes "Super Admin".
func displayName(slug string) string {
	cleaned := strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(slug)
	return titleCaser.String(cleaned)
}
