package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertyscope/propertyscope-api/app/models"
)

const testSecret = "whsec_test"

func sign(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(typ string, created int64, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","type":%q,"created":%d,"data":{"object":%s}}`, typ, created, object))
}

type fakeSubs struct {
	snaps map[string]SubscriptionSnapshot
	calls []string
	err   error
}

func (f *fakeSubs) GetSubscription(_ context.Context, id string) (SubscriptionSnapshot, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return SubscriptionSnapshot{}, f.err
	}
	return f.snaps[id], nil
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	payload := eventPayload(EventSubscriptionDeleted, 1700000000, `{"id":"sub_1","object":"subscription"}`)
	v := NewWebhookVerifier(testSecret)

	event, err := v.Verify(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, EventSubscriptionDeleted, string(event.Type))
	assert.Equal(t, int64(1700000000), event.Created)
}

func TestVerifyRejectsBadSignatures(t *testing.T) {
	payload := eventPayload(EventSubscriptionDeleted, 1700000000, `{"id":"sub_1"}`)
	v := NewWebhookVerifier(testSecret)

	cases := map[string]string{
		"wrong secret": sign(payload, "whsec_other", time.Now()),
		"missing":      "",
		"garbage":      "t=abc,v1=zzz",
		"too old":      sign(payload, testSecret, time.Now().Add(-time.Hour)),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(payload, header)
			assert.ErrorIs(t, err, ErrSignature)
		})
	}

	_, err := NewWebhookVerifier("").Verify(payload, sign(payload, "", time.Now()))
	assert.ErrorIs(t, err, ErrSignature)
}

func TestSubscriptionUpdateCheckoutCompleted(t *testing.T) {
	end := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	subs := &fakeSubs{snaps: map[string]SubscriptionSnapshot{
		"sub_1": {ID: "sub_1", CustomerID: "cus_1", PriceID: "price_pro", Status: "active", CurrentPeriodEnd: end},
	}}
	payload := eventPayload(EventCheckoutCompleted, 1700000000,
		`{"id":"cs_1","object":"checkout.session","customer":"cus_1","subscription":"sub_1","mode":"subscription"}`)

	event, err := NewWebhookVerifier(testSecret).Verify(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)

	update, ok, err := SubscriptionUpdate(context.Background(), subs, event)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []string{"sub_1"}, subs.calls)
	assert.Equal(t, models.MatchByCustomer, update.Match)
	assert.Equal(t, "cus_1", update.CustomerID)
	assert.Equal(t, "sub_1", update.SubscriptionID)
	assert.True(t, update.SetSubscription)
	require.NotNil(t, update.PriceID)
	assert.Equal(t, "price_pro", *update.PriceID)
	require.NotNil(t, update.CurrentPeriodEnd)
	assert.True(t, end.Equal(*update.CurrentPeriodEnd))
	assert.Equal(t, models.SubscriptionActive, update.Status)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), update.OccurredAt)
}

func TestSubscriptionUpdateInvoicePaid(t *testing.T) {
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	subs := &fakeSubs{snaps: map[string]SubscriptionSnapshot{
		"sub_1": {ID: "sub_1", CustomerID: "cus_1", PriceID: "price_pro", CurrentPeriodEnd: end},
	}}
	payload := eventPayload(EventInvoicePaymentSucceeded, 1700003600,
		`{"id":"in_1","object":"invoice","customer":"cus_1","subscription":"sub_1"}`)
	event, err := NewWebhookVerifier(testSecret).Verify(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)

	update, ok, err := SubscriptionUpdate(context.Background(), subs, event)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.MatchBySubscription, update.Match)
	assert.Equal(t, "sub_1", update.SubscriptionID)
	assert.False(t, update.SetSubscription)
	assert.True(t, end.Equal(*update.CurrentPeriodEnd))
}

func TestSubscriptionUpdateInvoiceWithoutSubscriptionIsIgnored(t *testing.T) {
	subs := &fakeSubs{}
	payload := eventPayload(EventInvoicePaymentSucceeded, 1700003600, `{"id":"in_1","object":"invoice","customer":"cus_1"}`)
	event, err := NewWebhookVerifier(testSecret).Verify(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)

	_, ok, err := SubscriptionUpdate(context.Background(), subs, event)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, subs.calls)
}

func TestSubscriptionUpdateDeletedUsesEventObject(t *testing.T) {
	subs := &fakeSubs{}
	payload := eventPayload(EventSubscriptionDeleted, 1700007200,
		`{"id":"sub_1","object":"subscription","customer":"cus_1","status":"canceled","current_period_end":1700000000}`)
	event, err := NewWebhookVerifier(testSecret).Verify(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)

	update, ok, err := SubscriptionUpdate(context.Background(), subs, event)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, subs.calls)
	assert.Equal(t, models.SubscriptionCanceled, update.Status)
	assert.Equal(t, "sub_1", update.SubscriptionID)
	require.NotNil(t, update.CurrentPeriodEnd)
	assert.Equal(t, int64(1700000000), update.CurrentPeriodEnd.Unix())
}

func TestSubscriptionUpdateUnknownTypeIgnored(t *testing.T) {
	payload := eventPayload("customer.created", 1700000000, `{"id":"cus_1","object":"customer"}`)
	event, err := NewWebhookVerifier(testSecret).Verify(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)

	_, ok, err := SubscriptionUpdate(context.Background(), &fakeSubs{}, event)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubscriptionUpdateLookupFailure(t *testing.T) {
	subs := &fakeSubs{err: errors.New("stripe down")}
	payload := eventPayload(EventCheckoutCompleted, 1700000000, `{"id":"cs_1","customer":"cus_1","subscription":"sub_1"}`)
	event, err := NewWebhookVerifier(testSecret).Verify(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)

	_, _, err = SubscriptionUpdate(context.Background(), subs, event)
	assert.Error(t, err)
}
