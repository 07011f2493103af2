package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/pulseloop-backend/internal/http/response"
	"github.com/yungbote/pulseloop-backend/internal/services"
)

type UserHandler struct {
	users services.UserService
}

func NewUserHandler(users services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// GET /api/user/stats
func (h *UserHandler) GetStats(c *gin.Context) {
	rd, ok := requestData(c)
	if !ok {
		return
	}
	stats, err := h.users.GetStats(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, stats)
}

// GET /api/user/dashboard
func (h *UserHandler) GetDashboard(c *gin.Context) {
	rd, ok := requestData(c)
	if !ok {
		return
	}
	dash, err := h.users.GetDashboard(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, dash)
}

// GET /api/user/leaderboard?limit=10
func (h *UserHandler) GetLeaderboard(c *gin.Context) {
	rd, ok := requestData(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		return
	}
	lb, err := h.users.GetLeaderboard(c.Request.Context(), rd.UserID, rd.OrganizationID, limit)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, lb)
}
