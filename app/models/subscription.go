package models

import "time"

type SubscriptionStatus string

const (
	SubscriptionNone     SubscriptionStatus = "none"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription mirrors the payment processor's view of a user's plan.
// Status only changes in response to verified webhook events.
type Subscription struct {
	ID                     string             `json:"id"`
	UserID                 string             `json:"userId"`
	StripeCustomerID       string             `json:"stripeCustomerId"`
	StripeSubscriptionID   *string            `json:"stripeSubscriptionId"`
	StripePriceID          *string            `json:"stripePriceId"`
	StripeCurrentPeriodEnd *time.Time         `json:"stripeCurrentPeriodEnd"`
	Status                 SubscriptionStatus `json:"status"`
	LastEventAt            *time.Time         `json:"-"`
	CreatedAt              time.Time          `json:"createdAt"`
	UpdatedAt              time.Time          `json:"updatedAt"`
}

// IsActive reports whether the subscription grants access at now.
func (s Subscription) IsActive(now time.Time) bool {
	if s.Status != SubscriptionActive {
		return false
	}
	if s.StripeCurrentPeriodEnd == nil {
		return true
	}
	return s.StripeCurrentPeriodEnd.After(now)
}

// SubscriptionMatch selects which key a webhook update is applied by.
type SubscriptionMatch int

const (
	MatchByCustomer SubscriptionMatch = iota
	MatchBySubscription
)

// SubscriptionEvent is the local effect of one verified billing webhook.
// Nil fields are left untouched.
type SubscriptionEvent struct {
	Match            SubscriptionMatch
	CustomerID       string
	SubscriptionID   string
	SetSubscription  bool
	PriceID          *string
	CurrentPeriodEnd *time.Time
	Status           SubscriptionStatus
	OccurredAt       time.Time
}
