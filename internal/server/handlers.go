package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xaenox/bni-assistant/internal/assistant"
	"github.com/xaenox/bni-assistant/internal/models"
	"github.com/xaenox/bni-assistant/internal/sqlgen"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleAsk(c *gin.Context) {
	var req models.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body: " + err.Error()})
		return
	}

	answer, err := s.assistant.Ask(c.Request.Context(), req)
	if err != nil {
		s.logger.Error("Failed to answer question",
			zap.Error(err),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Int64("user_id", req.User()))
		c.JSON(statusFor(err), gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, answer)
}

func (s *Server) handleResetMemory(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "user_id must be an integer"})
		return
	}

	if err := s.assistant.ResetMemory(c.Request.Context(), userID); err != nil {
		s.logger.Error("Failed to reset memory", zap.Error(err), zap.Int64("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "memory_reset", "user_id": userID})
}

func (s *Server) handleReload(c *gin.Context) {
	n, err := s.directory.Load(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to reload member directory", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reloaded", "members": n})
}

// statusFor maps assistant errors to HTTP statuses. Guard rejections,
// store failures and memory failures are all server errors.
func statusFor(err error) int {
	switch {
	case errors.Is(err, assistant.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, sqlgen.ErrUnsafeQuery):
		return http.StatusInternalServerError
	case errors.Is(err, assistant.ErrCompletion):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
