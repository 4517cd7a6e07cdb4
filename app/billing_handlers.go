package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/propertyscope/propertyscope-api/app/billing"
	"github.com/propertyscope/propertyscope-api/app/models"
	"github.com/propertyscope/propertyscope-api/app/store"
	"github.com/propertyscope/propertyscope-api/auth"
)

const (
	maxWebhookBytes = int64(65536)
	webhookTimeout  = 15 * time.Second
)

// CreateCheckoutSession starts a Stripe Checkout Session for the caller,
// creating the Stripe customer on first use.
func (s *Server) CreateCheckoutSession(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var in models.CheckoutInput
	if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	priceID := strings.TrimSpace(in.PriceID)
	if priceID == "" {
		priceID = s.cfg.Stripe.PriceID
	}
	frontendURL := s.cfg.Stripe.FrontendURL
	if priceID == "" || frontendURL == "" {
		s.logger.Error("missing Stripe config",
			zap.Bool("price_id", priceID != ""),
			zap.Bool("frontend_url", frontendURL != ""),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	ctx := c.Request.Context()
	sub, err := s.loadSubscription(c, userID)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to prepare billing", err, zap.String("user_id", userID))
		return
	}

	customerID := ""
	if sub != nil {
		customerID = sub.StripeCustomerID
	}
	if customerID == "" {
		email := ""
		if claims, ok := auth.ClaimsFromContext(ctx); ok {
			email = claims.Email
		}
		customerID, err = s.billing.CreateCustomer(ctx, email, userID)
		if err != nil {
			s.fail(c, http.StatusInternalServerError, "failed to prepare billing", err, zap.String("user_id", userID))
			return
		}
		row, err := s.store.UpsertSubscriptionCustomer(ctx, userID, customerID)
		if err != nil {
			s.fail(c, http.StatusInternalServerError, "failed to prepare billing", err, zap.String("user_id", userID))
			return
		}
		if row.StripeCustomerID != customerID {
			s.logger.Warn("concurrent checkout created a duplicate customer",
				zap.String("user_id", userID),
				zap.String("kept", row.StripeCustomerID),
				zap.String("dropped", customerID),
			)
		}
		customerID = row.StripeCustomerID
	}

	url, err := s.billing.CreateCheckoutSession(ctx, billing.CheckoutRequest{
		CustomerID: customerID,
		PriceID:    priceID,
		UserID:     userID,
		SuccessURL: frontendURL + "/billing?success=true",
		CancelURL:  frontendURL + "/billing?canceled=true",
	})
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to create checkout session", err, zap.String("user_id", userID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// CreatePortalSession opens the Stripe customer portal for the caller.
func (s *Server) CreatePortalSession(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	sub, err := s.loadSubscription(c, userID)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to load customer", err, zap.String("user_id", userID))
		return
	}
	if sub == nil || sub.StripeCustomerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no billing account"})
		return
	}
	if s.cfg.Stripe.FrontendURL == "" {
		s.logger.Error("missing Stripe config", zap.Bool("frontend_url", false))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	url, err := s.billing.CreatePortalSession(c.Request.Context(), sub.StripeCustomerID, s.cfg.Stripe.FrontendURL+"/billing")
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to create portal session", err, zap.String("user_id", userID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// GetSubscription reports the caller's subscription state.
func (s *Server) GetSubscription(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	sub, err := s.loadSubscription(c, userID)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to load subscription", err, zap.String("user_id", userID))
		return
	}
	c.JSON(http.StatusOK, newSubscriptionView(sub, s.now()))
}

// StripeWebhook verifies a Stripe delivery and applies its effect on the
// local subscription. Nothing is read or written before verification.
func (s *Server) StripeWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		s.webhookOutcome("unknown", "unreadable")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	event, err := s.webhooks.Verify(body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		s.webhookOutcome("unknown", "invalid_signature")
		s.logger.Warn("stripe webhook signature failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}
	eventType := string(event.Type)
	log := s.logger.With(zap.String("event_id", event.ID), zap.String("event_type", eventType))

	ctx, cancel := context.WithTimeout(c.Request.Context(), webhookTimeout)
	defer cancel()

	update, ok, err := billing.SubscriptionUpdate(ctx, s.billing, event)
	if err != nil {
		s.webhookOutcome(eventType, "failed")
		log.Error("stripe webhook processing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook handler failed"})
		return
	}
	if !ok {
		s.webhookOutcome(eventType, "ignored")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	err = s.store.ApplySubscriptionEvent(ctx, update)
	switch {
	case errors.Is(err, store.ErrStaleEvent):
		s.webhookOutcome(eventType, "stale")
		log.Info("stripe webhook older than stored state; skipped")
	case err != nil:
		s.webhookOutcome(eventType, "failed")
		log.Error("stripe webhook apply failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook handler failed"})
		return
	default:
		s.webhookOutcome(eventType, "applied")
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (s *Server) webhookOutcome(eventType, outcome string) {
	s.metrics.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
}
