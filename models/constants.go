package models

// Roles
const (
	RoleAdmin     = "admin"
	RoleManager   = "manager"
	RoleOperation = "operation"
	RoleModerator = "moderator"
	RoleEmployee  = "employee"
)

// Roles lists every role a user may hold
var Roles = []string{RoleAdmin, RoleManager, RoleOperation, RoleModerator, RoleEmployee}

// Pagination defaults
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// UnassignedDepartment labels aggregates whose project has no department
const UnassignedDepartment = "Unassigned"
