// internal/middleware/logging.go
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/car-marketplace-backend/internal/models"
	"github.com/javajoker/car-marketplace-backend/internal/utils"
)

// Request fields that never reach the audit table.
var redactedFields = map[string]bool{
	"password":      true,
	"refresh_token": true,
	"image_data":    true,
}

// AuditLogMiddleware stores one audit row per mutating request. Writes are
// asynchronous so a slow audit insert never delays the response.
func AuditLogMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for reads
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		// Read request body
		var requestBody []byte
		if c.Request.Body != nil {
			var err error
			requestBody, err = io.ReadAll(c.Request.Body)
			if err != nil {
				if IsBodyTooLarge(err) {
					abortTooLarge(c)
				} else {
					utils.BadRequestResponse(c, "", err.Error())
					c.Abort()
				}
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		c.Next()

		auditLog := buildAuditLog(c, requestBody)

		go func() {
			if err := db.Create(auditLog).Error; err != nil {
				logrus.WithError(err).Error("Failed to create audit log")
			}
		}()
	}
}

func buildAuditLog(c *gin.Context, requestBody []byte) *models.AuditLog {
	auditLog := &models.AuditLog{
		Action:       c.Request.Method + " " + c.FullPath(),
		ResourceType: extractResourceType(c.Request.URL.Path),
		StatusCode:   c.Writer.Status(),
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	}
	if c.FullPath() == "" {
		auditLog.Action = c.Request.Method + " " + c.Request.URL.Path
	}

	if userID, ok := c.Get("user_id"); ok {
		if uid, ok := userID.(string); ok {
			if parsed, err := uuid.Parse(uid); err == nil {
				auditLog.UserID = &parsed
			}
		}
	}

	if resourceID := extractResourceID(c.Request.URL.Path); resourceID != "" {
		if parsed, err := uuid.Parse(resourceID); err == nil {
			auditLog.ResourceID = &parsed
		}
	}

	var requestData map[string]interface{}
	if len(requestBody) > 0 && json.Unmarshal(requestBody, &requestData) == nil {
		for field := range requestData {
			if redactedFields[field] {
				delete(requestData, field)
			}
		}
		auditLog.NewValues = models.JSONB(requestData)
	}

	return auditLog
}

func extractResourceType(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "v1" {
		return parts[1]
	}
	if len(parts) >= 1 && parts[0] != "" {
		return parts[0]
	}
	return "unknown"
}

func extractResourceID(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for _, part := range parts {
		if _, err := uuid.Parse(part); err == nil {
			return part
		}
	}
	return ""
}

// RequestLogger writes one structured log line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}
		if userID, ok := c.Get("user_id"); ok {
			fields["user_id"] = userID
		}

		entry := logrus.WithFields(fields)
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request processed")
		}
	}
}
