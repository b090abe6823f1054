package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/taskpulse/backend/internal/authz"
	"github.com/huangang/taskpulse/backend/internal/middleware"
	"github.com/huangang/taskpulse/backend/internal/services"
	"github.com/huangang/taskpulse/backend/internal/store"
	"github.com/huangang/taskpulse/backend/pkg/response"
)

// caller returns the authenticated identity or answers 401.
func caller(c *gin.Context) (authz.Identity, bool) {
	identity, ok := middleware.GetIdentity(c)
	if !ok || identity.Email == "" {
		response.Unauthorized(c, "Authentication required")
		return authz.Identity{}, false
	}
	return identity, true
}

// pageRequest reads ?limit and ?nextKey.
func pageRequest(c *gin.Context) services.PageRequest {
	return services.PageRequest{
		Limit:   store.ParseLimit(c.Query("limit")),
		NextKey: c.Query("nextKey"),
	}
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.BadRequest(c, err.Error())
		return false
	}
	return true
}

// NoRoute answers unknown paths with the standard error body.
func NoRoute(c *gin.Context) {
	response.NotFound(c, "Route not found")
}
