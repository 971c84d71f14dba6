package domain

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the JWT payload issued by the platform's auth layer.
type SessionClaims struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	jwt.RegisteredClaims
}
