package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/askbook/internal/ai"
	"github.com/xxxsen/askbook/internal/middleware"
	"github.com/xxxsen/askbook/internal/pkg/errcode"
	appErr "github.com/xxxsen/askbook/internal/pkg/errors"
	"github.com/xxxsen/askbook/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("request_id", c.GetString(middleware.RequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	if verr, ok := appErr.AsValidation(err); ok {
		response.ErrorWithData(c, errcode.ErrValidation, "validation failed", gin.H{"errors": verr.Fields})
		return
	}
	switch {
	case errors.Is(err, appErr.ErrInput), errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, errcode.ErrTooMany, "too many requests")
	case errors.Is(err, ai.ErrUnavailable):
		response.Error(c, errcode.ErrAIUnavailable, "ai not configured")
	case errors.Is(err, appErr.ErrDataUnavailable):
		response.Error(c, errcode.ErrCorpusUnavailable, "corpus unavailable")
	case errors.Is(err, appErr.ErrDimensionMismatch):
		response.Error(c, errcode.ErrDimensionMismatch, "embedding dimension mismatch")
	case errors.Is(err, appErr.ErrService):
		response.Error(c, errcode.ErrAIUnavailable, "inference service failed")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
