package main

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents JWT claims issued by quiz-backend
type JWTClaims struct {
	UserAddress string `json:"user_address"`
	jwt.RegisteredClaims
}

func main() {
	// Must match the secret resolution in the auth handler
	jwtSecret := []byte("quiz-jwt-secret-key-2026")
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		jwtSecret = []byte(secret)
	}

	// Test user configuration
	userAddress := "0x742d35cc6634c0532925a3b0f26750c66d78eb66"
	if len(os.Args) > 1 {
		userAddress = os.Args[1]
	}

	now := time.Now()
	claims := JWTClaims{
		UserAddress: userAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "quiz-backend",
			Subject:   userAddress,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		fmt.Printf("Error generating token: %v\n", err)
		return
	}

	fmt.Println("============================================================")
	fmt.Println("JWT Token Generated for Testing")
	fmt.Println("============================================================")
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(tokenString)
	fmt.Println()
	fmt.Println("Claims:")
	fmt.Printf("  User Address: %s\n", userAddress)
	fmt.Printf("  Expires: %s\n", claims.ExpiresAt.Time)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println()
	fmt.Printf("curl -H \"Authorization: Bearer %s\" http://localhost:8080/api/registry/deployments/mine\n", tokenString)
	fmt.Println()
}
