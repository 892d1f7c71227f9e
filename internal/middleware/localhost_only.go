package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LocalhostOnly middleware - only allow localhost or whitelisted IPs access
type LocalhostOnly struct {
	logger     *logrus.Logger
	allowedIPs []string // List of allowed IP addresses or CIDR ranges
}

// NewLocalhostOnly creates the access restriction middleware
func NewLocalhostOnly(logger *logrus.Logger, allowedIPs []string) *LocalhostOnly {
	return &LocalhostOnly{
		logger:     logger,
		allowedIPs: allowedIPs,
	}
}

// Restrict rejects requests whose client IP is neither loopback nor in the
// configured whitelist.
func (l *LocalhostOnly) Restrict() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		remoteIP, _, _ := net.SplitHostPort(c.Request.RemoteAddr)

		if !l.isAllowedIP(clientIP) {
			// Direct loopback connections pass even when a proxy header
			// produced a different clientIP.
			if remoteIP != clientIP && isLocalhost(remoteIP) {
				l.logger.WithFields(logrus.Fields{
					"client_ip": clientIP,
					"remote_ip": remoteIP,
					"path":      c.Request.URL.Path,
				}).Warn("ClientIP denied but RemoteIP is localhost - allowing direct local connection")
			} else {
				l.logger.WithFields(logrus.Fields{
					"client_ip":  clientIP,
					"remote_ip":  remoteIP,
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
					"user_agent": c.GetHeader("User-Agent"),
				}).Warn("Reject non-whitelisted access to sensitive API")

				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"success": false,
					"error":   "This API is only accessible from allowed IP addresses",
					"code":    "IP_NOT_ALLOWED",
				})
				return
			}
		}

		c.Next()
	}
}

// isLocalhost Check if IP is localhost
func isLocalhost(ip string) bool {
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return ip == "localhost" || ip == "::1"
	}
	return parsedIP.IsLoopback()
}

// isAllowedIP Check if IP is in the whitelist (supports CIDR)
func (l *LocalhostOnly) isAllowedIP(ip string) bool {
	if isLocalhost(ip) {
		return true
	}
	if len(l.allowedIPs) == 0 {
		return false
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		for _, allowed := range l.allowedIPs {
			if ip == strings.TrimSpace(allowed) {
				return true
			}
		}
		return false
	}

	for _, allowed := range l.allowedIPs {
		allowed = strings.TrimSpace(allowed)

		if strings.Contains(allowed, "/") {
			_, ipNet, err := net.ParseCIDR(allowed)
			if err != nil {
				l.logger.WithFields(logrus.Fields{
					"allowed": allowed,
					"error":   err.Error(),
				}).Warn("Invalid CIDR in allowedIPs")
				continue
			}
			if ipNet.Contains(parsedIP) {
				return true
			}
		} else if allowedIP := net.ParseIP(allowed); allowedIP != nil && allowedIP.Equal(parsedIP) {
			return true
		}
	}

	l.logger.WithFields(logrus.Fields{
		"ip":         ip,
		"allowedIPs": l.allowedIPs,
	}).Warn("❌ IP not found in whitelist - rejecting access")
	return false
}
