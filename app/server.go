// Package app wires the HTTP handlers of the PropertyScope API.
package app

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"github.com/propertyscope/propertyscope-api/app/billing"
	"github.com/propertyscope/propertyscope-api/app/config"
	"github.com/propertyscope/propertyscope-api/app/events"
	"github.com/propertyscope/propertyscope-api/app/generation"
	"github.com/propertyscope/propertyscope-api/app/metrics"
	"github.com/propertyscope/propertyscope-api/app/models"
)

// Store is the persistence the handlers depend on.
type Store interface {
	Ping(ctx context.Context) error

	UpsertUser(ctx context.Context, id, email, name string) error
	GetUser(ctx context.Context, id string) (models.User, error)

	CreateValuation(ctx context.Context, prop *models.Property, a *models.Analysis) error
	CreateAnalysis(ctx context.Context, a *models.Analysis) error
	ListAnalyses(ctx context.Context, userID string, kind models.AnalysisType, limit int) ([]models.Analysis, error)

	CreateReport(ctx context.Context, r *models.Report) error
	ListReports(ctx context.Context, userID string) ([]models.Report, error)

	GetSubscriptionByUser(ctx context.Context, userID string) (models.Subscription, error)
	UpsertSubscriptionCustomer(ctx context.Context, userID, customerID string) (models.Subscription, error)
	ApplySubscriptionEvent(ctx context.Context, ev models.SubscriptionEvent) error
}

type Generator interface {
	Complete(ctx context.Context, p generation.Prompt) (string, error)
}

type BillingProcessor interface {
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	GetSubscription(ctx context.Context, id string) (billing.SubscriptionSnapshot, error)
}

type WebhookVerifier interface {
	Verify(payload []byte, header string) (stripe.Event, error)
}

type Publisher interface {
	PublishAnalysis(ctx context.Context, ev models.AnalysisEvent) error
}

// Deps are the process-scoped collaborators built once at startup.
type Deps struct {
	Config    *config.Config
	Store     Store
	Generator Generator
	Billing   BillingProcessor
	Webhooks  WebhookVerifier
	Publisher Publisher
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

type Server struct {
	cfg       *config.Config
	store     Store
	generator Generator
	billing   BillingProcessor
	webhooks  WebhookVerifier
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewServer(d Deps) *Server {
	s := &Server{
		cfg:       d.Config,
		store:     d.Store,
		generator: d.Generator,
		billing:   d.Billing,
		webhooks:  d.Webhooks,
		publisher: d.Publisher,
		metrics:   d.Metrics,
		logger:    d.Logger,
		now:       time.Now,
	}
	if s.cfg == nil {
		s.cfg = &config.Config{}
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}
