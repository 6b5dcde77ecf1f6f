package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// reconcileAttempts bounds CAS retries when concurrent deliveries for
// the same subscription race on the record version.
const reconcileAttempts = 3

// Reconciler applies verified gateway events to subscription records.
// Events for unknown subscription ids are benign no-ops: the caller must
// still acknowledge delivery so the gateway stops retrying.
type Reconciler struct {
	store   RecordStore
	catalog *Catalog
	log     *slog.Logger
	now     func() time.Time
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithReconcilerClock overrides the time source, useful in tests.
func WithReconcilerClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// NewReconciler creates a Reconciler. Panics on nil dependencies to fail
// fast during initialization.
func NewReconciler(store RecordStore, catalog *Catalog, log *slog.Logger, opts ...ReconcilerOption) *Reconciler {
	if store == nil {
		panic("subscription: RecordStore is required")
	}
	if catalog == nil {
		panic("subscription: Catalog is required")
	}
	if log == nil {
		log = slog.Default()
	}

	r := &Reconciler{
		store:   store,
		catalog: catalog,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile applies the event to the record holding its subscription id.
// It retries on version conflicts so that concurrent deliveries for the
// same subscription cannot lose an extension.
func (r *Reconciler) Reconcile(ctx context.Context, ev Event) error {
	if ev.SubscriptionID == "" {
		r.log.WarnContext(ctx, "event without subscription id ignored", "kind", ev.Kind)
		return nil
	}

	rec, err := r.store.BySubscriptionID(ctx, ev.SubscriptionID)
	if errors.Is(err, ErrRecordNotFound) {
		// Unknown or superseded subscription; acknowledge and move on.
		r.log.WarnContext(ctx, "no record for subscription id, event ignored",
			"subscription_id", ev.SubscriptionID, "kind", ev.Kind)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load record for subscription %s: %w", ev.SubscriptionID, err)
	}

	for attempt := 0; attempt < reconcileAttempts; attempt++ {
		changed := r.apply(ctx, rec, ev)
		if !changed {
			return nil
		}

		err = r.store.Update(ctx, rec)
		if err == nil {
			r.log.InfoContext(ctx, "subscription event applied",
				"kind", ev.Kind,
				"subscription_id", ev.SubscriptionID,
				"user_id", rec.UserID,
				"expiry", rec.Expiry,
			)
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return fmt.Errorf("persist record for subscription %s: %w", ev.SubscriptionID, err)
		}

		rec, err = r.store.BySubscriptionID(ctx, ev.SubscriptionID)
		if errors.Is(err, ErrRecordNotFound) {
			r.log.WarnContext(ctx, "record disappeared during reconciliation",
				"subscription_id", ev.SubscriptionID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("reload record for subscription %s: %w", ev.SubscriptionID, err)
		}
	}

	return fmt.Errorf("reconcile subscription %s: %w", ev.SubscriptionID, ErrVersionConflict)
}

// apply mutates the record per the event and reports whether anything
// changed. No writes happen here.
func (r *Reconciler) apply(ctx context.Context, rec *Record, ev Event) bool {
	if ev.Kind == EventTerminated {
		if !rec.Active && rec.Status == StatusInactive {
			return false
		}
		// Expiry and subscription id are kept for display and history.
		rec.Active = false
		rec.Status = StatusInactive
		return true
	}

	if !ev.Extends() {
		return false
	}

	// Redelivery of an already-applied charge must not double-extend.
	if ev.EventID != "" && ev.EventID == rec.LastEventID {
		r.log.InfoContext(ctx, "duplicate event delivery skipped",
			"event_id", ev.EventID, "subscription_id", ev.SubscriptionID)
		return false
	}
	if ev.PaymentID != "" && ev.PaymentID == rec.PaymentID {
		r.log.InfoContext(ctx, "payment already applied, delivery skipped",
			"payment_id", ev.PaymentID, "subscription_id", ev.SubscriptionID)
		return false
	}

	duration := r.durationFor(rec, ev)
	now := r.now()

	var expiry time.Time
	if !rec.HasUsedTrial {
		// One-time branch per user: the first qualifying event of any
		// kind grants the trial window before the paid period.
		trialEnd := now.AddDate(0, 0, TrialDays)
		expiry = AddMonths(trialEnd, duration)
		rec.HasUsedTrial = true
	} else {
		base := now
		if rec.Expiry != nil && rec.Expiry.After(now) {
			base = *rec.Expiry
		}
		expiry = AddMonths(base, duration)
	}

	rec.Active = true
	rec.Status = StatusActive
	rec.Expiry = &expiry

	if ev.PaymentID != "" {
		rec.PaymentID = ev.PaymentID
	}
	if ev.EventID != "" {
		rec.LastEventID = ev.EventID
	}
	if ev.CustomerEmail != "" && rec.Email == "" {
		rec.Email = ev.CustomerEmail
	}
	if plan, ok := r.catalog.FindByGatewayPlanID(ev.GatewayPlanID); ok && rec.PlanType == "" {
		rec.PlanType = plan.PlanType
		rec.PlanName = plan.Name
		rec.PlanPrice = plan.Price
	}

	return true
}

// durationFor resolves the extension length in months: the event's plan,
// then the plan the user last subscribed to, then a single month.
func (r *Reconciler) durationFor(rec *Record, ev Event) int {
	if plan, ok := r.catalog.FindByGatewayPlanID(ev.GatewayPlanID); ok {
		return plan.DurationMonths
	}
	if plan, ok := r.catalog.FindByType(rec.PlanType); ok {
		return plan.DurationMonths
	}
	return 1
}
