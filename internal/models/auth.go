package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates actor roles.
type UserRole string

const (
	RoleSubmitter UserRole = "SUBMITTER"
	RoleOfficer   UserRole = "OFFICER"
	RoleAdmin     UserRole = "ADMIN"
)

// CanReview reports whether the role may approve, reject or send back
// badge requests.
func (r UserRole) CanReview() bool {
	return r == RoleOfficer || r == RoleAdmin
}

// JWTClaims is the payload carried in access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Pagination describes list metadata in responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
