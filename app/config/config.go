package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
)

const (
	defaultHTTPAddr    = "0.0.0.0:8080"
	defaultOpenAIModel = "gpt-4o"
)

type Config struct {
	Logs        LogConfig
	DB          PostgresConfig
	Auth        AuthConfig
	OpenAI      OpenAIConfig
	Stripe      StripeConfig
	Billing     BillingConfig
	QueueURL    string
	HTTPAddr    string
	AutoMigrate bool
}

type LogConfig struct {
	Style string
	Level string
}

type PostgresConfig struct {
	Username string
	Password string
	URL      string
	Port     string
	Name     string
	SSLMode  string
	// DatabaseURL overrides the discrete fields when set.
	DatabaseURL string
}

type AuthConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string
	FrontendURL   string
}

type BillingConfig struct {
	// Enforce gates generation endpoints behind an active subscription.
	Enforce bool
}

// DSN builds the lib/pq connection string.
func (p PostgresConfig) DSN() string {
	if p.DatabaseURL != "" {
		return p.DatabaseURL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.Username, p.Password),
		Host:   p.URL,
		Path:   "/" + p.Name,
	}
	if p.Port != "" {
		u.Host = p.URL + ":" + p.Port
	}
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	u.RawQuery = q.Encode()
	return u.String()
}

func LoadConfig() (*Config, error) {
	autoMigrate, err := envBool("DB_AUTO_MIGRATE", false)
	if err != nil {
		return nil, err
	}
	enforce, err := envBool("BILLING_ENFORCE", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		QueueURL:    env("QUEUE_URL"),
		HTTPAddr:    envDefault("HTTP_ADDR", defaultHTTPAddr),
		AutoMigrate: autoMigrate,
		Logs: LogConfig{
			Style: env("LOG_STYLE"),
			Level: env("LOG_LEVEL"),
		},
		DB: PostgresConfig{
			Username:    env("POSTGRES_USER"),
			Password:    os.Getenv("POSTGRES_PWD"),
			URL:         env("POSTGRES_URL"),
			Port:        env("POSTGRES_PORT"),
			Name:        env("POSTGRES_DB"),
			SSLMode:     env("POSTGRES_SSLMODE"),
			DatabaseURL: env("DATABASE_URL"),
		},
		Auth: AuthConfig{
			Issuer:   env("AUTH0_ISSUER"),
			Audience: env("AUTH0_AUDIENCE"),
			JWKSURL:  env("AUTH0_JWKS_URL"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  env("OPENAI_API_KEY"),
			Model:   envDefault("OPENAI_MODEL", defaultOpenAIModel),
			BaseURL: env("OPENAI_BASE_URL"),
		},
		Stripe: StripeConfig{
			SecretKey:     env("STRIPE_SECRET_KEY"),
			WebhookSecret: env("STRIPE_WEBHOOK_SECRET"),
			PriceID:       env("STRIPE_PRICE_ID"),
			FrontendURL:   strings.TrimRight(env("FRONTEND_URL"), "/"),
		},
		Billing: BillingConfig{
			Enforce: enforce,
		},
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envDefault(key, fallback string) string {
	if v := env(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	v := env(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}
