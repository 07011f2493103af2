package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/pulseloop-backend/internal/http/response"
	"github.com/yungbote/pulseloop-backend/internal/services"
)

type QuizHandler struct {
	quizzes services.QuizService
}

func NewQuizHandler(quizzes services.QuizService) *QuizHandler {
	return &QuizHandler{quizzes: quizzes}
}

// GET /api/quiz/content/:content_id?version=1
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	contentID, ok := uuidParam(c, "content_id")
	if !ok {
		return
	}
	version, ok := intQuery(c, "version", 1)
	if !ok {
		return
	}
	q, err := h.quizzes.GetQuiz(c.Request.Context(), contentID, version)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, q)
}

type submitRequest struct {
	Answers []int   `json:"answers" binding:"required"`
	QuizID  *string `json:"quiz_id"`
}

// POST /api/quiz/content/:content_id/submit
// body: { "answers": [0, 2, 1, 3, 0], "quiz_id": "..." }
func (h *QuizHandler) Submit(c *gin.Context) {
	contentID, ok := uuidParam(c, "content_id")
	if !ok {
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var quizID *uuid.UUID
	if req.QuizID != nil && *req.QuizID != "" {
		id, err := uuid.Parse(*req.QuizID)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_quiz_id", err)
			return
		}
		quizID = &id
	}
	res, err := h.quizzes.Submit(c.Request.Context(), contentID, quizID, req.Answers)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/quiz/content/:content_id/retry
func (h *QuizHandler) GetRetry(c *gin.Context) {
	contentID, ok := uuidParam(c, "content_id")
	if !ok {
		return
	}
	q, err := h.quizzes.GetRetry(c.Request.Context(), contentID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, q)
}
