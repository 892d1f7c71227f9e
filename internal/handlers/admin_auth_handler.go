package handlers

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuthHandler guards the operational endpoints with password + TOTP
type AdminAuthHandler struct {
	jwtSecret []byte
	// TOTP secret key (must come from environment)
	totpSecret string
}

// AdminLoginRequest admin login request
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	TOTPCode string `json:"totp_code" binding:"required"`
}

// AdminLoginResponse admin login response
type AdminLoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

// AdminJWTClaims admin JWT Claims
type AdminJWTClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// NewAdminAuthHandler creates the admin auth handler
func NewAdminAuthHandler() *AdminAuthHandler {
	totpSecret := os.Getenv("ADMIN_TOTP_SECRET")
	passwordHash := os.Getenv("ADMIN_PASSWORD_HASH")

	if totpSecret == "" || passwordHash == "" {
		logrus.Warn("⚠️ ADMIN_TOTP_SECRET or ADMIN_PASSWORD_HASH not set, admin login will be rejected")
	}

	jwtSecretStr := os.Getenv("ADMIN_JWT_SECRET")
	var jwtSecret []byte
	if jwtSecretStr != "" {
		jwtSecret = []byte(jwtSecretStr)
	} else {
		jwtSecret = []byte("quiz-admin-jwt-secret-key-2026-default-change-me")
		logrus.Warn("⚠️ Using default ADMIN_JWT_SECRET, set the environment variable in production")
	}

	return &AdminAuthHandler{
		jwtSecret:  jwtSecret,
		totpSecret: totpSecret,
	}
}

// AdminLoginHandler exchanges username + password + TOTP for an admin JWT
func (h *AdminAuthHandler) AdminLoginHandler(c *gin.Context) {
	if h.totpSecret == "" {
		c.JSON(http.StatusInternalServerError, AdminLoginResponse{
			Success: false,
			Message: "Server misconfiguration: ADMIN_TOTP_SECRET not set",
		})
		return
	}

	passwordHash := os.Getenv("ADMIN_PASSWORD_HASH")
	if passwordHash == "" {
		c.JSON(http.StatusInternalServerError, AdminLoginResponse{
			Success: false,
			Message: "Server misconfiguration: ADMIN_PASSWORD_HASH not set",
		})
		return
	}

	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, AdminLoginResponse{
			Success: false,
			Message: fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	expectedUsername := os.Getenv("ADMIN_USERNAME")
	if expectedUsername == "" {
		expectedUsername = "admin"
	}

	// Generic error message regardless of which credential failed
	if req.Username != expectedUsername {
		c.JSON(http.StatusUnauthorized, AdminLoginResponse{
			Success: false,
			Message: "Invalid credentials",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, AdminLoginResponse{
			Success: false,
			Message: "Invalid credentials",
		})
		return
	}

	if !totp.Validate(req.TOTPCode, h.totpSecret) {
		c.JSON(http.StatusUnauthorized, AdminLoginResponse{
			Success: false,
			Message: "Invalid TOTP code",
		})
		return
	}

	token, err := h.generateAdminJWTToken(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, AdminLoginResponse{
			Success: false,
			Message: "Failed to generate token",
		})
		return
	}

	c.JSON(http.StatusOK, AdminLoginResponse{
		Success: true,
		Token:   token,
		Message: "Login successful",
	})
}

// GenerateTOTPSecretHandler generates a TOTP secret for initial setup.
// Disabled once ADMIN_TOTP_SECRET is configured.
func (h *AdminAuthHandler) GenerateTOTPSecretHandler(c *gin.Context) {
	if os.Getenv("ADMIN_TOTP_SECRET") != "" {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "TOTP secret already configured in environment",
		})
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Quiz Admin",
		AccountName: "admin@quiz-backend",
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to generate TOTP secret",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"secret":  key.Secret(),
		"url":     key.URL(),
		"message": "Save this secret securely to ADMIN_TOTP_SECRET env var. Use it to generate TOTP codes.",
	})
}

func (h *AdminAuthHandler) generateAdminJWTToken(username string) (string, error) {
	claims := AdminJWTClaims{
		Username: username,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "quiz-backend-admin",
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(h.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateAdminJWTToken verifies an admin JWT token
func ValidateAdminJWTToken(tokenString string) (*AdminJWTClaims, error) {
	jwtSecretStr := os.Getenv("ADMIN_JWT_SECRET")
	var jwtSecret []byte
	if jwtSecretStr != "" {
		jwtSecret = []byte(jwtSecretStr)
	} else {
		jwtSecret = []byte("quiz-admin-jwt-secret-key-2026-default-change-me")
	}

	token, err := jwt.ParseWithClaims(tokenString, &AdminJWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*AdminJWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
