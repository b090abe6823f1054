package middleware

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/taskpulse/backend/pkg/logger"
)

const auditBodyLimit = 2000

var sensitiveField = regexp.MustCompile(`(?i)("(?:password|secret|token|access_token)"\s*:\s*")[^"]*(")`)

// AuditLog writes one structured log line per mutating request.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPut && method != http.MethodDelete {
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil {
			raw, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))
			body = maskSensitiveFields(string(raw))
			if len(body) > auditBodyLimit {
				body = body[:auditBodyLimit] + "...[truncated]"
			}
		}

		c.Next()

		module, action := parseRouteInfo(c.FullPath(), method)
		status := c.Writer.Status()
		event := logger.Info()
		if status >= 400 {
			event = logger.Warn()
		}
		event.
			Bool("audit", true).
			Str("caller", GetCallerEmail(c)).
			Str("module", module).
			Str("action", action).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Str("body", body).
			Msg("audit")
	}
}

// parseRouteInfo maps a route pattern to the audited resource and verb,
// e.g. "/api/projects/:projectId/tasks/:taskId" + PUT → "tasks", "update".
func parseRouteInfo(fullPath, method string) (module, action string) {
	module = "unknown"
	for _, seg := range strings.Split(strings.TrimPrefix(fullPath, "/api/"), "/") {
		if seg != "" && !strings.HasPrefix(seg, ":") {
			module = seg
		}
	}

	switch method {
	case http.MethodPost:
		action = "create"
	case http.MethodPut:
		action = "update"
	case http.MethodDelete:
		action = "delete"
	default:
		action = strings.ToLower(method)
	}
	return module, action
}

func maskSensitiveFields(body string) string {
	return sensitiveField.ReplaceAllString(body, "${1}***${2}")
}
