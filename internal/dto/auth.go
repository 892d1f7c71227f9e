package dto

import "github.com/golang-jwt/jwt/v5"

// ==================== Auth DTOs ====================

// AuthRequest Authentication request structure
type AuthRequest struct {
	UserAddress string `json:"user_address" binding:"required"` // user wallet address
	Message     string `json:"message" binding:"required"`      // message that was signed
	Signature   string `json:"signature" binding:"required"`    // personal_sign signature, hex
}

// AuthResponse Authentication response structure
type AuthResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

// JWTClaims JWT Claims structure
type JWTClaims struct {
	UserAddress string `json:"user_address"` // wallet address, lowercase 0x form
	jwt.RegisteredClaims
}

// AdminAuthRequest carries the admin TOTP login.
type AdminAuthRequest struct {
	Password string `json:"password" binding:"required"`
	TOTPCode string `json:"totp_code" binding:"required"`
}
