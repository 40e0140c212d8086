package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/askbook/internal/model"
	"github.com/xxxsen/askbook/internal/pkg/errcode"
	"github.com/xxxsen/askbook/internal/pkg/response"
	"github.com/xxxsen/askbook/internal/service"
)

type questionService interface {
	Ask(ctx context.Context, raw string) (*service.AskResult, error)
	Get(ctx context.Context, id string) (*model.QARecord, error)
}

type QuestionHandler struct {
	questions questionService
}

func NewQuestionHandler(questions questionService) *QuestionHandler {
	return &QuestionHandler{questions: questions}
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask answers a question. A cache hit echoes the stored question next to the
// answer; a fresh answer carries only answer and id.
func (h *QuestionHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	res, err := h.questions.Ask(c.Request.Context(), req.Question)
	if err != nil {
		handleError(c, err)
		return
	}
	if res.Cached {
		response.Success(c, gin.H{"question": res.Question, "answer": res.Answer, "id": res.ID})
		return
	}
	response.Success(c, gin.H{"answer": res.Answer, "id": res.ID})
}

func (h *QuestionHandler) Get(c *gin.Context) {
	rec, err := h.questions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"question": rec.Question, "answer": rec.Answer})
}
