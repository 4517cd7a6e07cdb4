package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/propertyscope/propertyscope-api/app/models"
)

// ErrSignature is returned for payloads whose Stripe-Signature does not verify.
var ErrSignature = errors.New("invalid webhook signature")

const (
	EventCheckoutCompleted       = "checkout.session.completed"
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
)

type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Verify checks the signature header and decodes the event.
func (v *WebhookVerifier) Verify(payload []byte, header string) (stripe.Event, error) {
	if v.secret == "" {
		return stripe.Event{}, fmt.Errorf("%w: webhook secret not configured", ErrSignature)
	}
	event, err := webhook.ConstructEventWithOptions(
		payload,
		header,
		v.secret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	return event, nil
}

// SubscriptionGetter retrieves the current state of a subscription.
type SubscriptionGetter interface {
	GetSubscription(ctx context.Context, id string) (SubscriptionSnapshot, error)
}

// SubscriptionUpdate maps a verified event to the local change it implies.
// ok is false for events that are acknowledged without any effect.
func SubscriptionUpdate(ctx context.Context, subs SubscriptionGetter, event stripe.Event) (update models.SubscriptionEvent, ok bool, err error) {
	if event.Data == nil {
		return models.SubscriptionEvent{}, false, nil
	}
	occurred := time.Unix(event.Created, 0).UTC()

	switch string(event.Type) {
	case EventCheckoutCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return models.SubscriptionEvent{}, false, fmt.Errorf("decode checkout session: %w", err)
		}
		if sess.Subscription == nil || sess.Subscription.ID == "" {
			return models.SubscriptionEvent{}, false, nil
		}
		snap, err := subs.GetSubscription(ctx, sess.Subscription.ID)
		if err != nil {
			return models.SubscriptionEvent{}, false, err
		}
		customerID := snap.CustomerID
		if sess.Customer != nil && sess.Customer.ID != "" {
			customerID = sess.Customer.ID
		}
		return models.SubscriptionEvent{
			Match:            models.MatchByCustomer,
			CustomerID:       customerID,
			SubscriptionID:   snap.ID,
			SetSubscription:  true,
			PriceID:          optional(snap.PriceID),
			CurrentPeriodEnd: optionalTime(snap.CurrentPeriodEnd),
			Status:           models.SubscriptionActive,
			OccurredAt:       occurred,
		}, true, nil

	case EventInvoicePaymentSucceeded:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return models.SubscriptionEvent{}, false, fmt.Errorf("decode invoice: %w", err)
		}
		if inv.Subscription == nil || inv.Subscription.ID == "" {
			return models.SubscriptionEvent{}, false, nil
		}
		snap, err := subs.GetSubscription(ctx, inv.Subscription.ID)
		if err != nil {
			return models.SubscriptionEvent{}, false, err
		}
		return models.SubscriptionEvent{
			Match:            models.MatchBySubscription,
			SubscriptionID:   snap.ID,
			PriceID:          optional(snap.PriceID),
			CurrentPeriodEnd: optionalTime(snap.CurrentPeriodEnd),
			Status:           models.SubscriptionActive,
			OccurredAt:       occurred,
		}, true, nil

	case EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return models.SubscriptionEvent{}, false, fmt.Errorf("decode subscription: %w", err)
		}
		if sub.ID == "" {
			return models.SubscriptionEvent{}, false, nil
		}
		snap := snapshot(&sub)
		return models.SubscriptionEvent{
			Match:            models.MatchBySubscription,
			SubscriptionID:   sub.ID,
			CurrentPeriodEnd: optionalTime(snap.CurrentPeriodEnd),
			Status:           models.SubscriptionCanceled,
			OccurredAt:       occurred,
		}, true, nil
	}
	return models.SubscriptionEvent{}, false, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
