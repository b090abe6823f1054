package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huangang/taskpulse/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardHandler_Endpoints(t *testing.T) {
	ts := newTestServer(t)
	ana := ts.seedUser(t, "ana@x.io", "Ana", models.RoleMember)
	id := ts.createProject(t, ana, "Launch")
	w := ts.do(t, "POST", "/api/projects/"+id+"/tasks", ana, gin.H{"title": "x", "assigneeId": "ana@x.io", "estimatedHours": 40})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	for _, path := range []string{
		"/api/dashboard/overview",
		"/api/dashboard/progress",
		"/api/dashboard/projects-summary",
		"/api/dashboard/today-tasks",
		"/api/dashboard/workload",
		"/api/dashboard/team-resources",
	} {
		w := ts.do(t, "GET", path, ana, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestDashboardHandler_Period(t *testing.T) {
	ts := newTestServer(t)
	ana := ts.seedUser(t, "ana@x.io", "Ana", models.RoleMember)
	id := ts.createProject(t, ana, "Launch")
	w := ts.do(t, "POST", "/api/projects/"+id+"/tasks", ana, gin.H{"title": "x", "assigneeId": "ana@x.io", "estimatedHours": 40})
	require.Equal(t, http.StatusCreated, w.Code)

	var resources struct {
		Period    string  `json:"period"`
		Capacity  float64 `json:"capacity"`
		Resources []struct {
			AssigneeID string `json:"assigneeId"`
		} `json:"resources"`
	}
	w = ts.do(t, "GET", "/api/dashboard/team-resources?period=3months", ana, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resources)
	assert.Equal(t, "3months", resources.Period)
	assert.Equal(t, float64(480), resources.Capacity)
	assert.Len(t, resources.Resources, 1)

	var overview struct {
		Period        string `json:"period"`
		TotalProjects int    `json:"totalProjects"`
	}
	w = ts.do(t, "GET", "/api/dashboard/overview?period=decade", ana, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &overview)
	assert.Equal(t, "1month", overview.Period)
	assert.Equal(t, 1, overview.TotalProjects)
}
