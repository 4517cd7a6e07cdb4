package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/propertyscope/propertyscope-api/app/billing"
	"github.com/propertyscope/propertyscope-api/app/config"
	"github.com/propertyscope/propertyscope-api/app/events"
	"github.com/propertyscope/propertyscope-api/app/generation"
	"github.com/propertyscope/propertyscope-api/app/logging"
	"github.com/propertyscope/propertyscope-api/app/metrics"
	"github.com/propertyscope/propertyscope-api/app/store"
	"github.com/propertyscope/propertyscope-api/auth"
)

// Runtime holds everything a process entry point needs to serve requests.
type Runtime struct {
	Config *config.Config
	Logger *zap.Logger
	Store  *store.Postgres
	Router *gin.Engine
}

// Bootstrap loads configuration and builds every process-scoped client once.
func Bootstrap(ctx context.Context) (*Runtime, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logs)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := store.Open(ctx, cfg.DB.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	logger.Info("Connected to Postgres")

	if cfg.AutoMigrate {
		if err := store.Migrate(db.DB()); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("database migrations applied")
	}

	m := metrics.New()

	var publisher Publisher = events.NopPublisher{}
	if cfg.QueueURL != "" {
		publisher, err = events.NewSQSPublisher(ctx, cfg.QueueURL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
	} else {
		logger.Info("QUEUE_URL not set; analysis events disabled")
	}

	verifier, err := auth.NewVerifier(cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.JWKSURL)
	if err != nil {
		if !auth.AuthDisabled() {
			_ = db.Close()
			return nil, fmt.Errorf("init auth verifier: %w", err)
		}
		logger.Warn("auth disabled for local development")
	}

	if cfg.Stripe.SecretKey == "" || cfg.Stripe.WebhookSecret == "" {
		logger.Warn("Stripe is not fully configured; billing endpoints will fail")
	}

	server := NewServer(Deps{
		Config:    cfg,
		Store:     db,
		Generator: generation.NewClient(cfg.OpenAI, m, logger),
		Billing:   billing.NewStripeProcessor(cfg.Stripe.SecretKey),
		Webhooks:  billing.NewWebhookVerifier(cfg.Stripe.WebhookSecret),
		Publisher: publisher,
		Metrics:   m,
		Logger:    logger,
	})

	return &Runtime{
		Config: cfg,
		Logger: logger,
		Store:  db,
		Router: NewRouter(server, verifier),
	}, nil
}

// Close releases the database pool and flushes the logger.
func (r *Runtime) Close() error {
	err := r.Store.Close()
	_ = r.Logger.Sync()
	return err
}
