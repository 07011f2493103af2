package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/pulseloop-backend/internal/http/response"
	"github.com/yungbote/pulseloop-backend/internal/services"
)

type ContentHandler struct {
	content services.ContentService
}

func NewContentHandler(content services.ContentService) *ContentHandler {
	return &ContentHandler{content: content}
}

// GET /api/content/:id
func (h *ContentHandler) GetContent(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	item, err := h.content.GetContent(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, item)
}

// POST /api/content/:id/complete
// Records a view only. Streaks move on quiz passes.
func (h *ContentHandler) MarkComplete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	rd, ok := requestData(c)
	if !ok {
		return
	}
	if err := h.content.MarkComplete(c.Request.Context(), rd.UserID, id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"status": "completed"})
}

// GET /api/content/:id/summary
func (h *ContentHandler) GetSummary(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	s, err := h.content.GetSummary(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, s)
}

// POST /api/content/:id/transcribe
// body (optional): { "audio_url": "gs://...", "language_code": "en-US" }
func (h *ContentHandler) Transcribe(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		AudioURL     string `json:"audio_url"`
		LanguageCode string `json:"language_code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	item, err := h.content.Transcribe(c.Request.Context(), services.TranscribeInput{
		ContentID:    id,
		AudioURL:     req.AudioURL,
		LanguageCode: req.LanguageCode,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"content_id": item.ID,
		"transcript": item.Transcript,
		"segments":   item.TranscriptSegments,
		"blob_uri":   item.BlobURI,
	})
}
