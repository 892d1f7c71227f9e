package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"log"

	"quiz-backend/internal/dto"
	"quiz-backend/internal/utils"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// JWT - configuration
var jwtSecret = resolveJWTSecret()

func resolveJWTSecret() []byte {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return []byte(secret)
	}
	return []byte("quiz-jwt-secret-key-2026")
}

// AuthHandler issues JWT tokens against wallet signatures
type AuthHandler struct{}

// use dto
type AuthRequest = dto.AuthRequest
type AuthResponse = dto.AuthResponse
type JWTClaims = dto.JWTClaims

// NewAuthHandler creates the auth handler
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// AuthenticateHandler exchanges a personal_sign signature for a JWT
func (h *AuthHandler) AuthenticateHandler(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, AuthResponse{
			Success: false,
			Message: fmt.Sprintf("invalid request: %v", err),
		})
		return
	}

	if !utils.IsValidAddress(req.UserAddress) {
		c.JSON(http.StatusBadRequest, AuthResponse{
			Success: false,
			Message: "invalid wallet address",
		})
		return
	}

	recovered, err := recoverSigner(req.Message, req.Signature)
	if err != nil || !strings.EqualFold(recovered, req.UserAddress) {
		log.Printf("⚠️ Signature verification failed: user=%s, err=%v", req.UserAddress, err)
		c.JSON(http.StatusUnauthorized, AuthResponse{
			Success: false,
			Message: "signature verification failed",
		})
		return
	}

	address := utils.NormalizeAddress(req.UserAddress)
	token, err := h.generateJWTToken(address)
	if err != nil {
		log.Printf("❌ JWT generation failed: %v", err)
		c.JSON(http.StatusInternalServerError, AuthResponse{
			Success: false,
			Message: "token generation failed",
		})
		return
	}

	log.Printf("✅ Wallet authenticated: user=%s", address)

	c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		Token:   token,
		Message: "authenticated",
	})
}

// recoverSigner recovers the wallet address from an eth personal_sign
// signature over message.
func recoverSigner(message, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}

	// personal_sign produces V as 27/28, SigToPub wants 0/1
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	digest := crypto.Keccak256([]byte(prefixed))

	pubKey, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey).Hex(), nil
}

// JWT Token
func (h *AuthHandler) generateJWTToken(userAddress string) (string, error) {
	claims := JWTClaims{
		UserAddress: userAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "quiz-backend",
			Subject:   userAddress,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token failed: %w", err)
	}
	return tokenString, nil
}

// ValidateJWTToken verifies a JWT and returns its claims
func ValidateJWTToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// GenerateNonceHandler returns a fresh login nonce and the message to sign
func (h *AuthHandler) GenerateNonceHandler(c *gin.Context) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "nonce generation failed",
		})
		return
	}

	nonceStr := hex.EncodeToString(nonce)
	timestamp := time.Now().Unix()

	message := fmt.Sprintf("Quiz Platform Authentication\nNonce: %s\nTimestamp: %d", nonceStr, timestamp)

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"nonce":     nonceStr,
		"message":   message,
		"timestamp": timestamp,
	})
}
