package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/propertyscope/propertyscope-api/app/generation"
	"github.com/propertyscope/propertyscope-api/app/models"
)

const (
	generationTimeout = 2 * time.Minute
	publishTimeout    = 5 * time.Second
)

// CreateValuation generates a valuation and stores the property and analysis together.
func (s *Server) CreateValuation(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var in models.ValuationInput
	if !bindInput(c, &in) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), generationTimeout)
	defer cancel()

	text, err := s.generator.Complete(ctx, generation.ValuationPrompt(in))
	if err != nil {
		s.failAnalysis(c, userID, models.AnalysisValuation, err)
		return
	}

	data, err := json.Marshal(in)
	if err != nil {
		s.failAnalysis(c, userID, models.AnalysisValuation, err)
		return
	}

	prop := &models.Property{
		UserID:       userID,
		Address:      in.Address,
		City:         in.City,
		State:        in.State,
		PropertyType: in.PropertyType,
		Bedrooms:     in.Bedrooms.IntPtr(),
		Bathrooms:    in.Bathrooms.FloatPtr(),
		Sqft:         in.Sqft.IntPtr(),
		YearBuilt:    in.YearBuilt.IntPtr(),
		ListPrice:    in.ListPrice.FloatPtr(),
	}
	if in.ZipCode != "" {
		zip := in.ZipCode
		prop.ZipCode = &zip
	}
	analysis := &models.Analysis{
		UserID:     userID,
		Type:       models.AnalysisValuation,
		Data:       data,
		AIInsights: text,
	}
	if err := s.store.CreateValuation(ctx, prop, analysis); err != nil {
		s.failAnalysis(c, userID, models.AnalysisValuation, err)
		return
	}
	s.publishAnalysis(ctx, analysis)

	// Property is already returned at the top level.
	analysis.Property = nil
	c.JSON(http.StatusOK, gin.H{
		"property":  prop,
		"analysis":  analysis,
		"valuation": text,
	})
}

func (s *Server) CreateMarketAnalysis(c *gin.Context) {
	var in models.MarketInput
	s.handleAnalysis(c, &in, "insights", func() generation.Prompt {
		return generation.MarketPrompt(in)
	})
}

func (s *Server) CreateInvestmentAnalysis(c *gin.Context) {
	var in models.InvestmentInput
	s.handleAnalysis(c, &in, "insights", func() generation.Prompt {
		return generation.InvestmentPrompt(in)
	})
}

func (s *Server) CreateComparables(c *gin.Context) {
	var in models.ComparablesInput
	s.handleAnalysis(c, &in, "comparables", func() generation.Prompt {
		return generation.ComparablesPrompt(in)
	})
}

func (s *Server) CreateNeighborhoodInsights(c *gin.Context) {
	var in models.NeighborhoodInput
	s.handleAnalysis(c, &in, "insights", func() generation.Prompt {
		return generation.NeighborhoodPrompt(in)
	})
}

// handleAnalysis runs the shared lifecycle for kinds that store a single
// analysis row: bind, generate once, persist, publish, respond.
// prompt is called after in has been bound and normalized.
func (s *Server) handleAnalysis(c *gin.Context, in normalizer, textKey string, prompt func() generation.Prompt) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if !bindInput(c, in) {
		return
	}

	p := prompt()
	ctx, cancel := context.WithTimeout(c.Request.Context(), generationTimeout)
	defer cancel()

	text, err := s.generator.Complete(ctx, p)
	if err != nil {
		s.failAnalysis(c, userID, p.Kind, err)
		return
	}

	data, err := json.Marshal(in)
	if err != nil {
		s.failAnalysis(c, userID, p.Kind, err)
		return
	}
	analysis := &models.Analysis{
		UserID:     userID,
		Type:       p.Kind,
		Data:       data,
		AIInsights: text,
	}
	if err := s.store.CreateAnalysis(ctx, analysis); err != nil {
		s.failAnalysis(c, userID, p.Kind, err)
		return
	}
	s.publishAnalysis(ctx, analysis)

	c.JSON(http.StatusOK, gin.H{
		"analysis": analysis,
		textKey:    text,
	})
}

func (s *Server) failAnalysis(c *gin.Context, userID string, kind models.AnalysisType, err error) {
	s.fail(c, http.StatusInternalServerError, fmt.Sprintf("failed to generate %s analysis", kind), err,
		zap.String("user_id", userID),
		zap.String("kind", string(kind)),
	)
}

// publishAnalysis notifies downstream consumers. Failures never reach the client.
func (s *Server) publishAnalysis(ctx context.Context, a *models.Analysis) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := s.publisher.PublishAnalysis(ctx, models.AnalysisEvent{
		Event:      models.EventAnalysisCreated,
		AnalysisID: a.ID,
		UserID:     a.UserID,
		Type:       a.Type,
		PropertyID: a.PropertyID,
		CreatedAt:  a.CreatedAt,
	})
	if err != nil {
		s.metrics.EventsPublished.WithLabelValues("error").Inc()
		s.logger.Warn("publish analysis event failed",
			zap.String("analysis_id", a.ID),
			zap.String("kind", string(a.Type)),
			zap.Error(err),
		)
		return
	}
	s.metrics.EventsPublished.WithLabelValues("sent").Inc()
}
