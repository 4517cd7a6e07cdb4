package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/propertyscope/propertyscope-api/app/models"
	"github.com/propertyscope/propertyscope-api/app/store"
	"github.com/propertyscope/propertyscope-api/auth"
)

const readyTimeout = 2 * time.Second

// syncUser creates or refreshes the users row for the verified subject.
// It runs as the auth middleware's post-authentication hook.
func (s *Server) syncUser(c *gin.Context, claims *auth.Claims) error {
	if claims == nil || strings.TrimSpace(claims.Subject) == "" {
		return nil
	}
	return s.store.UpsertUser(c.Request.Context(), strings.TrimSpace(claims.Subject), claims.Email, claims.Name)
}

type subscriptionView struct {
	Status           models.SubscriptionStatus `json:"status"`
	Active           bool                      `json:"active"`
	PriceID          *string                   `json:"priceId"`
	CurrentPeriodEnd *time.Time                `json:"currentPeriodEnd"`
}

func newSubscriptionView(sub *models.Subscription, now time.Time) subscriptionView {
	if sub == nil {
		return subscriptionView{Status: models.SubscriptionNone}
	}
	status := sub.Status
	if status == "" {
		status = models.SubscriptionNone
	}
	return subscriptionView{
		Status:           status,
		Active:           sub.IsActive(now),
		PriceID:          sub.StripePriceID,
		CurrentPeriodEnd: sub.StripeCurrentPeriodEnd,
	}
}

// loadSubscription returns nil when the user has never started checkout.
func (s *Server) loadSubscription(c *gin.Context, userID string) (*models.Subscription, error) {
	sub, err := s.store.GetSubscriptionByUser(c.Request.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Health is a public health check endpoint.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready reports whether the database is reachable.
func (s *Server) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Me returns the caller's profile and subscription state.
func (s *Server) Me(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	user, err := s.store.GetUser(c.Request.Context(), userID)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to load user", err, zap.String("user_id", userID))
		return
	}
	sub, err := s.loadSubscription(c, userID)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to load subscription", err, zap.String("user_id", userID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":         user,
		"subscription": newSubscriptionView(sub, s.now()),
	})
}
