package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/propertyscope/propertyscope-api/auth"
)

type normalizer interface {
	Normalize() error
}

// requireUser resolves the caller or answers 401.
func requireUser(c *gin.Context) (string, bool) {
	userID, err := auth.RequireUser(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return userID, true
}

// bindInput decodes and normalizes a JSON body, answering 400 on failure.
func bindInput(c *gin.Context, in normalizer) bool {
	if err := c.ShouldBindJSON(in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return false
	}
	if err := in.Normalize(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return false
	}
	return true
}

func (s *Server) fail(c *gin.Context, status int, message string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("path", c.FullPath()), zap.Error(err))
	if status >= http.StatusInternalServerError {
		s.logger.Error(message, fields...)
	} else {
		s.logger.Warn(message, fields...)
	}
	c.JSON(status, gin.H{"error": message})
}
