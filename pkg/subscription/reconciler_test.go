package subscription_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/brokerpad/pkg/subscription"
)

func testCatalog(t *testing.T) *subscription.Catalog {
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
		{
			PlanType:       "HALF_YEARLY",
			Name:           "Half Yearly Plan",
			Price:          10000,
			Interval:       subscription.IntervalMonthly,
			DurationMonths: 6,
			GatewayPlanID:  "plan_half_yearly",
			IsActive:       true,
		},
		{
			PlanType:       "YEARLY",
			Name:           "Yearly Plan",
			Price:          20000,
			Interval:       subscription.IntervalYearly,
			DurationMonths: 12,
			GatewayPlanID:  "plan_yearly",
			IsActive:       true,
		},
	})
	require.NoError(t, err)
	return catalog
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func fixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

func TestReconcileFirstActivationGrantsTrial(t *testing.T) {
	t.Parallel()

	now := date(2024, time.March, 1)
	store := newMemStore(subscription.Record{
		UserID:         "u1",
		SubscriptionID: "sub_1",
		Status:         subscription.StatusInactive,
	})
	r := subscription.NewReconciler(store, testCatalog(t), testLogger(),
		subscription.WithReconcilerClock(fixedClock(now)))

	err := r.Reconcile(context.Background(), subscription.Event{
		Kind:           subscription.EventActivated,
		SubscriptionID: "sub_1",
		GatewayPlanID:  "plan_monthly",
		CustomerEmail:  "agent@example.com",
	})
	require.NoError(t, err)

	rec := store.get("u1")
	assert.True(t, rec.Active)
	assert.Equal(t, subscription.StatusActive, rec.Status)
	assert.True(t, rec.HasUsedTrial)
	assert.Equal(t, "agent@example.com", rec.Email)

	want := subscription.AddMonths(now.AddDate(0, 0, subscription.TrialDays), 1)
	require.NotNil(t, rec.Expiry)
	assert.Equal(t, want, *rec.Expiry)
}

func TestReconcileSecondActivationUsesNoTrial(t *testing.T) {
	t.Parallel()

	now := date(2024, time.March, 1)
	expiry := date(2024, time.April, 10)
	store := newMemStore(subscription.Record{
		UserID:         "u1",
		SubscriptionID: "sub_1",
		Status:         subscription.StatusActive,
		Active:         true,
		HasUsedTrial:   true,
		Expiry:         &expiry,
	})
	r := subscription.NewReconciler(store, testCatalog(t), testLogger(),
		subscription.WithReconcilerClock(fixedClock(now)))

	err := r.Reconcile(context.Background(), subscription.Event{
		Kind:           subscription.EventInvoicePaid,
		SubscriptionID: "sub_1",
		PaymentID:      "pay_1",
	})
	require.NoError(t, err)

	rec := store.get("u1")
	require.NotNil(t, rec.Expiry)
	// Future expiry is the base: extension stacks on remaining time.
	assert.Equal(t, subscription.AddMonths(expiry, 1), *rec.Expiry)
	assert.Equal(t, "pay_1", rec.PaymentID)
}

func TestReconcileLapsedRecordExtendsFromNow(t *testing.T) {
	t.Parallel()

	now := date(2024, time.June, 1)
	expiry := date(2024, time.January, 10)
	store := newMemStore(subscription.Record{
		UserID:         "u1",
		SubscriptionID: "sub_1",
		Status:         subscription.StatusInactive,
		HasUsedTrial:   true,
		Expiry:         &expiry,
		PlanType:       "HALF_YEARLY",
	})
	r := subscription.NewReconciler(store, testCatalog(t), testLogger(),
		subscription.WithReconcilerClock(fixedClock(now)))

	err := r.Reconcile(context.Background(), subscription.Event{
		Kind:           subscription.EventCharged,
		SubscriptionID: "sub_1",
		PaymentID:      "pay_9",
	})
	require.NoError(t, err)

	rec := store.get("u1")
	require.NotNil(t, rec.Expiry)
	// Duration resolved from the stored plan type when the event has no plan id.
	assert.Equal(t, subscription.AddMonths(now, 6), *rec.Expiry)
	assert.True(t, rec.Active)
}

func TestReconcileDefaultsToOneMonth(t *testing.T) {
	t.Parallel()

	now := date(2024, time.June, 1)
	store := newMemStore(subscription.Record{
		UserID:         "u1",
		SubscriptionID: "sub_1",
		HasUsedTrial:   true,
	})
	r := subscription.NewReconciler(store, testCatalog(t), testLogger(),
		subscription.WithReconcilerClock(fixedClock(now)))

	err := r.Reconcile(context.Background(), subscription.Event{
		Kind:           subscription.EventCharged,
		SubscriptionID: "sub_1",
		GatewayPlanID:  "plan_unknown",
	})
	require.NoError(t, err)

	rec := store.get("u1")
	require.NotNil(t, rec.Expiry)
	assert.Equal(t, subscription.AddMonths(now, 1), *rec.Expiry)
}

func TestReconcileTerminatedKeepsExpiry(t *testing.T) {
	t.Parallel()

	expiry := date(2024, time.December, 25)
	store := newMemStore(subscription.Record{
		UserID:         "u1",
		SubscriptionID: "sub_1",
		Status:         subscription.StatusActive,
		Active:         true,
		HasUsedTrial:   true,
		Expiry:         &expiry,
	})
	r := subscription.NewReconciler(store, testCatalog(t), testLogger())

	err := r.Reconcile(context.Background(), subscription.Event{
		Kind:           subscription.EventTerminated,
		SubscriptionID: "sub_1",
	})
	require.NoError(t, err)

	rec := store.get("u1")
	assert.False(t, rec.Active)
	assert.Equal(t, subscription.StatusInactive, rec.Status)
	require.NotNil(t, rec.Expiry)
	assert.Equal(t, expiry, *rec.Expiry)
	assert.Equal(t, "sub_1", rec.SubscriptionID)
}

func TestReconcileUnknownSubscriptionIsBenign(t *testing.T) {
	t.Parallel()

	store := newMemStore(subscription.Record{UserID: "u1", SubscriptionID: "sub_1"})
	r := subscription.NewReconciler(store, testCatalog(t), testLogger())

	err := r.Reconcile(context.Background(), subscription.Event{
		Kind:           subscription.EventActivated,
		SubscriptionID: "sub_superseded",
	})
	// The gateway must receive a success acknowledgement so it stops retrying.
	require.NoError(t, err)
	assert.False(t, store.get("u1").Active)
}

func TestReconcileSkipsRedeliveredPayment(t *testing.T) {
	t.Parallel()

	expiry := date(2024, time.July, 1)
	store := newMemStore(subscription.Record{
		UserID:         "u1",
		SubscriptionID: "sub_1",
		Status:         subscription.StatusActive,
		Active:         true,
		HasUsedTrial:   true,
		Expiry:         &expiry,
		PaymentID:      "pay_dup",
	})
	r := subscription.NewReconciler(store, testCatalog(t), testLogger())

	err := r.Reconcile(context.Background(), subscription.Event{
		Kind:           subscription.EventInvoicePaid,
		SubscriptionID: "sub_1",
		PaymentID:      "pay_dup",
	})
	require.NoError(t, err)

	rec := store.get("u1")
	require.NotNil(t, rec.Expiry)
	assert.Equal(t, expiry, *rec.Expiry, "redelivery must not double-extend")
}

func TestReconcileSkipsRedeliveredEventID(t *testing.T) {
	t.Parallel()

	expiry := date(2024, time.July, 1)
	store := newMemStore(subscription.Record{
		UserID:         "u1",
		SubscriptionID: "sub_1",
		Status:         subscription.StatusActive,
		Active:         true,
		HasUsedTrial:   true,
		Expiry:         &expiry,
		LastEventID:    "evt_1",
	})
	r := subscription.NewReconciler(store, testCatalog(t), testLogger())

	err := r.Reconcile(context.Background(), subscription.Event{
		Kind:           subscription.EventActivated,
		SubscriptionID: "sub_1",
		EventID:        "evt_1",
	})
	require.NoError(t, err)

	rec := store.get("u1")
	require.NotNil(t, rec.Expiry)
	assert.Equal(t, expiry, *rec.Expiry)
}

func TestReconcileRetriesOnVersionConflict(t *testing.T) {
	t.Parallel()

	now := date(2024, time.March, 1)
	store := newMemStore(subscription.Record{
		UserID:         "u1",
		SubscriptionID: "sub_1",
		HasUsedTrial:   true,
	})

	// A concurrent writer bumps the version right before the first write.
	raced := false
	store.updateHook = func() {
		if raced {
			return
		}
		raced = true
		store.mu.Lock()
		rec := store.records["u1"]
		rec.Version++
		store.records["u1"] = rec
		store.mu.Unlock()
	}

	r := subscription.NewReconciler(store, testCatalog(t), testLogger(),
		subscription.WithReconcilerClock(fixedClock(now)))

	err := r.Reconcile(context.Background(), subscription.Event{
		Kind:           subscription.EventCharged,
		SubscriptionID: "sub_1",
		GatewayPlanID:  "plan_monthly",
	})
	require.NoError(t, err)

	rec := store.get("u1")
	assert.True(t, rec.Active)
	require.NotNil(t, rec.Expiry)
	assert.Equal(t, subscription.AddMonths(now, 1), *rec.Expiry)
}
