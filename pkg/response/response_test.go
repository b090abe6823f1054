package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)
	handler(c)
	return w
}

func parseError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return body
}

func TestSuccess(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Success(c, map[string]string{"name": "test"})
	})

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body["name"] != "test" {
		t.Errorf("name = %q, expected %q", body["name"], "test")
	}
}

func TestCreated(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Created(c, map[string]int{"id": 1})
	})

	if w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
}

func TestError_Taxonomy(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{NewBadRequest("Name is required"), http.StatusBadRequest, "Name is required"},
		{NewUnauthorized("Invalid token"), http.StatusUnauthorized, "Invalid token"},
		{NewForbidden("Access denied"), http.StatusForbidden, "Access denied"},
		{NewNotFound("Project not found"), http.StatusNotFound, "Project not found"},
		{fmt.Errorf("load project: %w", NewNotFound("Project not found")), http.StatusNotFound, "Project not found"},
		{errors.New("dial tcp: connection refused"), http.StatusInternalServerError, InternalMessage},
	}

	for _, tt := range tests {
		w := performRequest(func(c *gin.Context) {
			Error(c, tt.err)
		})
		if w.Code != tt.status {
			t.Errorf("Error(%v) status = %d, expected %d", tt.err, w.Code, tt.status)
		}
		if body := parseError(t, w); body.Error != tt.msg {
			t.Errorf("Error(%v) body = %q, expected %q", tt.err, body.Error, tt.msg)
		}
	}
}

func TestError_DoesNotLeakInternalDetails(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, errors.New("password=hunter2"))
	})

	if body := parseError(t, w); body.Error != InternalMessage {
		t.Errorf("body = %q, expected %q", body.Error, InternalMessage)
	}
}

func TestConvenienceHelpers(t *testing.T) {
	tests := []struct {
		name    string
		handler gin.HandlerFunc
		status  int
	}{
		{"BadRequest", func(c *gin.Context) { BadRequest(c, "bad") }, http.StatusBadRequest},
		{"Unauthorized", func(c *gin.Context) { Unauthorized(c, "no") }, http.StatusUnauthorized},
		{"NotFound", func(c *gin.Context) { NotFound(c, "gone") }, http.StatusNotFound},
	}

	for _, tt := range tests {
		w := performRequest(tt.handler)
		if w.Code != tt.status {
			t.Errorf("%s status = %d, expected %d", tt.name, w.Code, tt.status)
		}
	}
}

func TestStatusOf(t *testing.T) {
	if !IsForbidden(NewForbidden("x")) {
		t.Error("IsForbidden should be true for NewForbidden")
	}
	if IsNotFound(NewForbidden("x")) {
		t.Error("IsNotFound should be false for NewForbidden")
	}
	if !IsBadRequest(fmt.Errorf("wrap: %w", NewBadRequest("x"))) {
		t.Error("IsBadRequest should see through wrapping")
	}
	if StatusOf(errors.New("boom")) != http.StatusInternalServerError {
		t.Error("unclassified errors should map to 500")
	}
}

func TestAppError_ErrorInterface(t *testing.T) {
	err := NewNotFound("User not found")
	if err.Error() != "User not found" {
		t.Errorf("expected 'User not found', got %q", err.Error())
	}
}
