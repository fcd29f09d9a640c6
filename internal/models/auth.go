package models

import "github.com/golang-jwt/jwt/v5"

// AuthClaims is the access token payload issued by the hosted auth provider.
// The subject carries the user id.
type AuthClaims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
