package authz

// Core console permissions.
const (
	PermUsersView Permission = "users.view"
	PermUsersEdit Permission = "users.edit"

	PermRolesView Permission = "roles.view"
	PermRolesEdit Permission = "roles.edit"

	PermPermissionsView Permission = "permissions.view"

	PermApprovalsView Permission = "approvals.view"
)
