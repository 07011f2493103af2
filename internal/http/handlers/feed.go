package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/pulseloop-backend/internal/http/response"
	"github.com/yungbote/pulseloop-backend/internal/services"
)

type FeedHandler struct {
	feed services.FeedService
}

func NewFeedHandler(feed services.FeedService) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// GET /api/feed?limit=20
func (h *FeedHandler) GetFeed(c *gin.Context) {
	rd, ok := requestData(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		return
	}
	items, err := h.feed.GetFeed(c.Request.Context(), rd.UserID, limit)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"feed": items})
}

// GET /api/feed/today
func (h *FeedHandler) GetToday(c *gin.Context) {
	rd, ok := requestData(c)
	if !ok {
		return
	}
	item, err := h.feed.GetToday(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if item == nil {
		response.RespondOK(c, gin.H{"content": nil, "message": "No content available for today"})
		return
	}
	response.RespondOK(c, gin.H{"content": item})
}

// GET /api/feed/daily-options
func (h *FeedHandler) GetDailyOptions(c *gin.Context) {
	rd, ok := requestData(c)
	if !ok {
		return
	}
	opts, err := h.feed.GetDailyOptions(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, opts)
}
