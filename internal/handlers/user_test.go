package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huangang/taskpulse/backend/internal/models"
	"github.com/huangang/taskpulse/backend/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserHandler_List(t *testing.T) {
	ts := newTestServer(t)
	ana := ts.seedUser(t, "ana@x.io", "Ana", models.RoleMember)
	ts.seedUser(t, "pat@x.io", "Pat", models.RoleProjectManager)
	ts.seedUser(t, "root@x.io", "Root", models.RoleAdmin)

	var body struct {
		Users []models.UserProfile `json:"users"`
	}

	w := ts.do(t, "GET", "/api/users", ana, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &body)
	assert.Len(t, body.Users, 2)

	w = ts.do(t, "GET", "/api/users?all=true", ana, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &body)
	assert.Len(t, body.Users, 3)
	assert.NotContains(t, w.Body.String(), "passwordHash")
}

func TestUserHandler_AdminOnly(t *testing.T) {
	ts := newTestServer(t)
	ana := ts.seedUser(t, "ana@x.io", "Ana", models.RoleMember)
	root := ts.seedUser(t, "root@x.io", "Root", models.RoleAdmin)

	newUser := gin.H{"email": "cy@x.io", "name": "Cy", "password": "secret1"}

	w := ts.do(t, "POST", "/api/users", ana, newUser)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// the stored role decides, not the token claim
	forged, err := utils.GenerateToken("ana@x.io", "Ana", "admin", 1)
	require.NoError(t, err)
	w = ts.do(t, "POST", "/api/users", forged, newUser)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, "POST", "/api/users", root, gin.H{"email": "cy@x.io", "name": "Cy", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, "POST", "/api/users", root, newUser)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, "PUT", "/api/users/cy@x.io", root, gin.H{"role": "project_manager"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var profile models.UserProfile
	decode(t, w, &profile)
	assert.Equal(t, models.RoleProjectManager, profile.Role)

	w = ts.do(t, "DELETE", "/api/users/root@x.io", root, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cannot delete your own account", errorOf(t, w))

	w = ts.do(t, "DELETE", "/api/users/cy@x.io", root, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, "DELETE", "/api/users/cy@x.io", root, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
