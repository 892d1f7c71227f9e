package handlers

import (
	"net/http"

	"quiz-backend/internal/db"

	"github.com/gin-gonic/gin"
)

// HealthCheckHandler reports service and database health
// GET /api/health
func HealthCheckHandler(c *gin.Context) {
	dbStatus := "healthy"
	if sqlDB, err := db.DB.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "unhealthy"
	}

	status := http.StatusOK
	if dbStatus != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   dbStatus,
		"service":  "quiz-backend",
		"version":  "v1.0",
		"database": dbStatus,
	})
}

// PingHandler is the liveness probe
// GET /ping
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
