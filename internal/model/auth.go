package model

import "github.com/golang-jwt/jwt/v5"

// UserClaims are JWT claims identifying a connected user
type UserClaims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenResponse is returned when a token is issued
type TokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}
