package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huangang/taskpulse/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectHandler_Lifecycle(t *testing.T) {
	ts := newTestServer(t)
	ana := ts.seedUser(t, "ana@x.io", "Ana", models.RoleMember)
	bo := ts.seedUser(t, "bo@x.io", "Bo", models.RoleMember)

	id := ts.createProject(t, ana, "Launch")

	w := ts.do(t, "GET", "/api/projects/"+id, ana, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Project struct {
			Name       string `json:"name"`
			MemberRole string `json:"memberRole"`
			Health     string `json:"health"`
		} `json:"project"`
		Tasks []models.Task `json:"tasks"`
	}
	decode(t, w, &detail)
	assert.Equal(t, "Launch", detail.Project.Name)
	assert.Equal(t, "owner", detail.Project.MemberRole)
	assert.Equal(t, "delayed", detail.Project.Health)
	assert.Empty(t, detail.Tasks)

	w = ts.do(t, "GET", "/api/projects/"+id, bo, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, "PUT", "/api/projects/"+id, ana, gin.H{"name": "Launch v2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, "GET", "/api/projects", ana, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Projects []struct {
			Name string `json:"name"`
		} `json:"projects"`
	}
	decode(t, w, &list)
	require.Len(t, list.Projects, 1)
	assert.Equal(t, "Launch v2", list.Projects[0].Name)

	w = ts.do(t, "DELETE", "/api/projects/"+id, ana, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// memberships are purged with the project
	w = ts.do(t, "GET", "/api/projects/"+id, ana, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, "GET", "/api/projects", ana, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	assert.Empty(t, list.Projects)
}

func TestProjectHandler_Validation(t *testing.T) {
	ts := newTestServer(t)
	ana := ts.seedUser(t, "ana@x.io", "Ana", models.RoleMember)

	w := ts.do(t, "POST", "/api/projects", ana, gin.H{"dueDate": "2030-01-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, "POST", "/api/projects", ana, gin.H{"name": "x", "dueDate": "someday"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, "GET", "/api/projects?nextKey=!!!!", ana, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectHandler_OnlyOwnerDeletes(t *testing.T) {
	ts := newTestServer(t)
	ana := ts.seedUser(t, "ana@x.io", "Ana", models.RoleMember)
	pat := ts.seedUser(t, "pat@x.io", "Pat", models.RoleProjectManager)
	id := ts.createProject(t, ana, "Launch")

	w := ts.do(t, "POST", "/api/projects/"+id+"/members", ana, gin.H{"email": "pat@x.io", "role": "project_manager"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, "DELETE", "/api/projects/"+id, pat, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, "PUT", "/api/projects/"+id, pat, gin.H{"description": "pm edit"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProjectHandler_Members(t *testing.T) {
	ts := newTestServer(t)
	ana := ts.seedUser(t, "ana@x.io", "Ana", models.RoleMember)
	bo := ts.seedUser(t, "bo@x.io", "Bo", models.RoleMember)
	id := ts.createProject(t, ana, "Launch")
	base := "/api/projects/" + id + "/members"

	w := ts.do(t, "POST", base, ana, gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, "POST", base, ana, gin.H{"email": "bo@x.io"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, "GET", base, bo, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var members struct {
		Members []models.Membership `json:"members"`
	}
	decode(t, w, &members)
	assert.Len(t, members.Members, 2)

	w = ts.do(t, "POST", base, bo, gin.H{"email": "ana@x.io"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, "PUT", base+"/bo@x.io", ana, gin.H{"role": "project_manager"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, "DELETE", base+"/ana@x.io", bo, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, "DELETE", base+"/bo@x.io", ana, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, "GET", "/api/projects/"+id, bo, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
