package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the identity handed to us by the external session layer.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Actor converts claims into a workflow actor. The email is the identity
// assignments are keyed on; UserID is the fallback.
func (c *JWTClaims) Actor() Actor {
	if c == nil {
		return Actor{Role: RoleViewer}
	}
	id := c.Email
	if id == "" {
		id = c.UserID
	}
	return Actor{UserID: NormalizeUserID(id), Role: ParseRole(string(c.Role))}
}
