package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the roles carried in access tokens minted by the auth service.
type UserRole string

const (
	RoleAdmin UserRole = "ADMIN"
	RoleTutor UserRole = "TUTOR"
)

// JWTClaims represents the JWT payload of an access token.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
