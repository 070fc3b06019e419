package services

import "agencyops/backend/models"

// RoleHierarchy defines the hierarchy of roles in the system.
// Higher numbers have more permissions; operation and manager share a level.
var RoleHierarchy = map[string]int{
	models.RoleEmployee:  1,
	models.RoleModerator: 2,
	models.RoleOperation: 3,
	models.RoleManager:   3,
	models.RoleAdmin:     4,
}

// IsRoleAtLeast checks if a role is at least at the specified level
func IsRoleAtLeast(userRole, requiredRole string) bool {
	userLevel, userExists := RoleHierarchy[userRole]
	requiredLevel, requiredExists := RoleHierarchy[requiredRole]

	// Unknown roles only match themselves
	if !userExists || !requiredExists {
		return userRole == requiredRole
	}

	return userLevel >= requiredLevel
}

// HasAnyRole reports whether role is one of allowed
func HasAnyRole(role string, allowed ...string) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// ValidRole reports whether role is a known role
func ValidRole(role string) bool {
	_, ok := RoleHierarchy[role]
	return ok
}
