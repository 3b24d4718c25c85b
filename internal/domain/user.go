package domain

import (
	"github.com/google/uuid"
)

// User is the read-only view of an account owned by the main application.
type User struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Email    string    `json:"email" db:"email"`
	FullName string    `json:"full_name" db:"full_name"`
	Role     string    `json:"role" db:"role"`
	IsActive bool      `json:"is_active" db:"is_active"`
}

type UserRole string

const (
	RoleMember  UserRole = "member"
	RoleService UserRole = "service"
	RoleAdmin   UserRole = "admin"
)

// HasRole reports whether role satisfies required. Admin satisfies everything.
func HasRole(role string, required UserRole) bool {
	switch required {
	case RoleAdmin:
		return role == string(RoleAdmin)
	case RoleService:
		return role == string(RoleService) || role == string(RoleAdmin)
	case RoleMember:
		return role == string(RoleMember) || role == string(RoleService) || role == string(RoleAdmin)
	default:
		return false
	}
}
