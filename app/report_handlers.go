package app

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/propertyscope/propertyscope-api/app/models"
	"github.com/propertyscope/propertyscope-api/app/store"
)

const maxListedAnalyses = 50

// ListAnalyses returns the caller's most recent analyses, optionally of one type.
func (s *Server) ListAnalyses(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	kind := models.AnalysisType(strings.TrimSpace(c.Query("type")))
	if kind != "" && !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid analysis type"})
		return
	}

	analyses, err := s.store.ListAnalyses(c.Request.Context(), userID, kind, maxListedAnalyses)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to fetch analyses", err, zap.String("user_id", userID))
		return
	}
	c.JSON(http.StatusOK, analyses)
}

func (s *Server) ListReports(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	reports, err := s.store.ListReports(c.Request.Context(), userID)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to fetch reports", err, zap.String("user_id", userID))
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (s *Server) CreateReport(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var in models.CreateReportInput
	if !bindInput(c, &in) {
		return
	}

	report := &models.Report{
		UserID:  userID,
		Title:   in.Title,
		Type:    in.Type,
		Content: in.Content,
	}
	if in.PropertyID != "" {
		propertyID := in.PropertyID
		report.PropertyID = &propertyID
	}

	err := s.store.CreateReport(c.Request.Context(), report)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown property"})
		return
	}
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to create report", err, zap.String("user_id", userID))
		return
	}
	c.JSON(http.StatusOK, report)
}
