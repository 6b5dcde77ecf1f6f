package billing_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/brokerpad/modules/billing"
	"github.com/dmitrymomot/brokerpad/pkg/subscription"
	"github.com/dmitrymomot/brokerpad/pkg/webhook"
)

const webhookSecret = "s3cr3t"

func webhookCatalog(t *testing.T) *subscription.Catalog {
	t.Helper()
	catalog, err := subscription.NewCatalog(context.Background(), subscription.StaticSource{
		{
			PlanType:       "MONTHLY",
			Name:           "Monthly Plan",
			Price:          1999,
			Interval:       subscription.IntervalMonthly,
			DurationMonths: 1,
			GatewayPlanID:  "plan_monthly",
			IsActive:       true,
		},
	})
	require.NoError(t, err)
	return catalog
}

func newWebhookHandler(t *testing.T, store *fakeStore) http.HandlerFunc {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	reconciler := subscription.NewReconciler(store, webhookCatalog(t), log)
	return billing.WebhookHandler(webhookSecret, reconciler, log)
}

func deliver(t *testing.T, handler http.HandlerFunc, payload []byte, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(billing.EventIDHeader, "evt_1")
	if sign {
		sig, err := webhook.Sign(webhookSecret, payload)
		require.NoError(t, err)
		req.Header.Set(billing.SignatureHeader, sig)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func activatedPayload(subscriptionID string) []byte {
	return fmt.Appendf(nil, `{
		"event": "subscription.activated",
		"payload": {
			"subscription": {
				"entity": {
					"id": %q,
					"plan_id": "plan_monthly",
					"customer_details": {"email": "asha@example.com"}
				}
			}
		}
	}`, subscriptionID)
}

func TestWebhookActivatesSubscription(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.records["u1"] = &subscription.Record{
		UserID:         "u1",
		Status:         subscription.StatusInactive,
		SubscriptionID: "sub_1",
	}

	rec := deliver(t, newWebhookHandler(t, store), activatedPayload("sub_1"), true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	stored := store.records["u1"]
	assert.True(t, stored.Active)
	assert.Equal(t, subscription.StatusActive, stored.Status)
	require.NotNil(t, stored.Expiry)
	assert.True(t, stored.Expiry.After(time.Now()))
	assert.True(t, stored.HasUsedTrial)
	assert.Equal(t, "asha@example.com", stored.Email)
}

func TestWebhookMissingSignature(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.records["u1"] = &subscription.Record{UserID: "u1", SubscriptionID: "sub_1"}

	rec := deliver(t, newWebhookHandler(t, store), activatedPayload("sub_1"), false)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid signature")
	assert.Nil(t, store.records["u1"].Expiry)
}

func TestWebhookTamperedBody(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.records["u1"] = &subscription.Record{UserID: "u1", SubscriptionID: "sub_1"}
	handler := newWebhookHandler(t, store)

	payload := activatedPayload("sub_1")
	sig, err := webhook.Sign(webhookSecret, payload)
	require.NoError(t, err)

	tampered := bytes.Replace(payload, []byte("sub_1"), []byte("sub_2"), 1)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", bytes.NewReader(tampered))
	req.Header.Set(billing.SignatureHeader, sig)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, store.records["u1"].Expiry)
}

func TestWebhookUnknownSubscriptionAcknowledged(t *testing.T) {
	t.Parallel()

	rec := deliver(t, newWebhookHandler(t, newFakeStore()), activatedPayload("sub_ghost"), true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestWebhookUnrecognizedEventAcknowledged(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"event":"payment.captured","payload":{}}`)
	rec := deliver(t, newWebhookHandler(t, newFakeStore()), payload, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestWebhookTerminationDeactivates(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	expiry := time.Now().Add(30 * 24 * time.Hour)
	store.records["u1"] = &subscription.Record{
		UserID:         "u1",
		Active:         true,
		Status:         subscription.StatusActive,
		Expiry:         &expiry,
		SubscriptionID: "sub_1",
	}

	payload := []byte(`{
		"event": "subscription.cancelled",
		"payload": {"subscription": {"entity": {"id": "sub_1"}}}
	}`)
	rec := deliver(t, newWebhookHandler(t, store), payload, true)

	require.Equal(t, http.StatusOK, rec.Code)
	stored := store.records["u1"]
	assert.False(t, stored.Active)
	assert.Equal(t, subscription.StatusInactive, stored.Status)
	assert.NotNil(t, stored.Expiry)
}
