package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the roles recognised by route guards.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleScheduler UserRole = "SCHEDULER"
	RoleApprover  UserRole = "APPROVER"
	RoleTeacher   UserRole = "TEACHER"
	RoleStaff     UserRole = "STAFF"
)

// JWTClaims represents the access token payload issued by the identity collaborator.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
