package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/propertyscope/propertyscope-api/app/models"
)

const subscriptionColumns = `
	id, user_id, stripe_customer_id, stripe_subscription_id, stripe_price_id,
	stripe_current_period_end, status, last_event_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (models.Subscription, error) {
	var (
		s              models.Subscription
		subscriptionID sql.NullString
		priceID        sql.NullString
		periodEnd      sql.NullTime
		status         string
		lastEventAt    sql.NullTime
	)
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.StripeCustomerID,
		&subscriptionID,
		&priceID,
		&periodEnd,
		&status,
		&lastEventAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Subscription{}, ErrNotFound
	}
	if err != nil {
		return models.Subscription{}, err
	}
	s.StripeSubscriptionID = stringPtr(subscriptionID)
	s.StripePriceID = stringPtr(priceID)
	s.StripeCurrentPeriodEnd = timePtr(periodEnd)
	s.Status = models.SubscriptionStatus(status)
	s.LastEventAt = timePtr(lastEventAt)
	return s, nil
}

func (p *Postgres) GetSubscriptionByUser(ctx context.Context, userID string) (models.Subscription, error) {
	row := p.db.QueryRowContext(ctx, `SELECT`+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1;
	`, userID)
	return scanSubscription(row)
}

// UpsertSubscriptionCustomer attaches a processor customer to the user's
// subscription row, creating the row when needed. A customer already on the
// row is kept; the returned row carries the customer id in effect.
func (p *Postgres) UpsertSubscriptionCustomer(ctx context.Context, userID, customerID string) (models.Subscription, error) {
	now := p.timestamp()
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO subscriptions (id, user_id, stripe_customer_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			stripe_customer_id = COALESCE(NULLIF(subscriptions.stripe_customer_id, ''), EXCLUDED.stripe_customer_id),
			updated_at = EXCLUDED.updated_at
		RETURNING`+subscriptionColumns+`;
	`, p.newID(), userID, customerID, string(models.SubscriptionNone), now)
	return scanSubscription(row)
}

// ApplySubscriptionEvent applies one verified billing event under a row lock.
// Events older than the last applied one are rejected with ErrStaleEvent;
// replaying the same event leaves the row unchanged.
func (p *Postgres) ApplySubscriptionEvent(ctx context.Context, ev models.SubscriptionEvent) error {
	var (
		column string
		key    string
	)
	switch ev.Match {
	case models.MatchByCustomer:
		column, key = "stripe_customer_id", ev.CustomerID
	case models.MatchBySubscription:
		column, key = "stripe_subscription_id", ev.SubscriptionID
	default:
		return fmt.Errorf("unknown subscription match %d", ev.Match)
	}
	if key == "" {
		return ErrNotFound
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var (
		id          string
		lastEventAt sql.NullTime
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, last_event_at
		FROM subscriptions
		WHERE `+column+` = $1
		FOR UPDATE;
	`, key).Scan(&id, &lastEventAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock subscription: %w", err)
	}
	occurred := ev.OccurredAt.UTC()
	if lastEventAt.Valid && lastEventAt.Time.After(occurred) {
		return ErrStaleEvent
	}

	var subscriptionID sql.NullString
	if ev.SetSubscription && ev.SubscriptionID != "" {
		subscriptionID = sql.NullString{String: ev.SubscriptionID, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE subscriptions SET
			stripe_subscription_id = COALESCE($1, stripe_subscription_id),
			stripe_price_id = COALESCE($2, stripe_price_id),
			stripe_current_period_end = COALESCE($3, stripe_current_period_end),
			status = $4,
			last_event_at = $5,
			updated_at = $6
		WHERE id = $7;
	`,
		subscriptionID,
		nullString(ev.PriceID),
		nullTime(ev.CurrentPeriodEnd),
		string(ev.Status),
		occurred,
		p.timestamp(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return tx.Commit()
}
