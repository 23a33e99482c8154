package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for route protection.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// JWTClaims carries the authenticated identity extracted from the bearer
// token. Token issuance lives in the auth system, not here; this service
// only validates and threads the identity through explicitly.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
