package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestParseRouteInfo(t *testing.T) {
	tests := []struct {
		path, method   string
		module, action string
	}{
		{"/api/projects", "POST", "projects", "create"},
		{"/api/projects/:projectId", "PUT", "projects", "update"},
		{"/api/projects/:projectId/members/:email", "DELETE", "members", "delete"},
		{"/api/projects/:projectId/tasks/:taskId", "PUT", "tasks", "update"},
		{"", "POST", "unknown", "create"},
	}

	for _, tt := range tests {
		module, action := parseRouteInfo(tt.path, tt.method)
		if module != tt.module || action != tt.action {
			t.Errorf("parseRouteInfo(%q, %q) = %q, %q, expected %q, %q",
				tt.path, tt.method, module, action, tt.module, tt.action)
		}
	}
}

func TestMaskSensitiveFields(t *testing.T) {
	in := `{"email":"ana@x.io","password": "hunter22","name":"Ana"}`
	out := maskSensitiveFields(in)

	if strings.Contains(out, "hunter22") {
		t.Errorf("password leaked: %s", out)
	}
	if !strings.Contains(out, `"password": "***"`) {
		t.Errorf("unexpected masking: %s", out)
	}
	if !strings.Contains(out, `"email":"ana@x.io"`) {
		t.Errorf("non-sensitive field changed: %s", out)
	}
}

func TestAuditLog_PreservesBody(t *testing.T) {
	router := gin.New()
	router.Use(AuditLog())
	var seen string
	router.POST("/api/users", func(c *gin.Context) {
		raw, _ := io.ReadAll(c.Request.Body)
		seen = string(raw)
		c.Status(http.StatusCreated)
	})

	body := `{"email":"bo@x.io","password":"secret1"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/users", strings.NewReader(body))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
	if seen != body {
		t.Errorf("handler saw %q, expected %q", seen, body)
	}
}
