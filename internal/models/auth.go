package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims carries the caller identity extracted at the HTTP boundary. The
// engine itself treats TenantID and UserID as opaque inputs.
type JWTClaims struct {
	UserID   string `json:"uid"`
	TenantID string `json:"tid"`
	jwt.RegisteredClaims
}
