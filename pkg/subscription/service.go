package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Service orchestrates user-initiated subscribe, upgrade and downgrade
// flows. It never grants access itself: the new subscription is stored
// Inactive and activation waits for the gateway's confirmation event.
type Service struct {
	store    RecordStore
	profiles ProfileSource
	catalog  *Catalog
	gateway  Gateway
	log      *slog.Logger
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceClock overrides the time source, useful in tests.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service. Panics on nil dependencies to fail fast
// during initialization.
func NewService(store RecordStore, profiles ProfileSource, catalog *Catalog, gateway Gateway, log *slog.Logger, opts ...ServiceOption) *Service {
	if store == nil {
		panic("subscription: RecordStore is required")
	}
	if profiles == nil {
		panic("subscription: ProfileSource is required")
	}
	if catalog == nil {
		panic("subscription: Catalog is required")
	}
	if gateway == nil {
		panic("subscription: Gateway is required")
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		store:    store,
		profiles: profiles,
		catalog:  catalog,
		gateway:  gateway,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe creates a gateway subscription for the user on the requested
// plan and records its id. When the user already has an active
// subscription on a different plan, the old one is cancelled best-effort
// before the switch. The local record is written only after the gateway
// call succeeds, so a gateway failure leaves no partial state behind.
func (s *Service) Subscribe(ctx context.Context, mobile, planType string) (string, error) {
	profile, err := s.profiles.ProfileByMobile(ctx, mobile)
	if err != nil {
		return "", err
	}

	plan, ok := s.catalog.FindByType(planType)
	if !ok {
		return "", ErrPlanNotFound
	}

	rec, err := s.store.ByUser(ctx, profile.UserID)
	if err != nil {
		return "", err
	}

	if rec.Status == StatusActive && rec.PlanType == plan.PlanType {
		return "", ErrAlreadySubscribed
	}

	// Plan switch: ask the gateway to cancel the superseded subscription.
	// Failure here (already cancelled upstream, transient error) must not
	// abort the switch.
	if rec.Status == StatusActive && rec.SubscriptionID != "" {
		if err := s.gateway.CancelSubscription(ctx, rec.SubscriptionID); err != nil {
			s.log.WarnContext(ctx, "cancel of superseded subscription failed",
				"subscription_id", rec.SubscriptionID, "error", err)
		}
	}

	customer, err := s.findOrCreateCustomer(ctx, profile)
	if err != nil {
		return "", err
	}

	sub, err := s.gateway.CreateSubscription(ctx, CreateSubscriptionParams{
		GatewayPlanID:  plan.GatewayPlanID,
		CustomerID:     customer.ID,
		TotalCycles:    plan.TotalBillingCycles(),
		NotifyCustomer: true,
	})
	if err != nil {
		return "", errors.Join(ErrGateway, err)
	}

	if _, err := s.updateWithRetry(ctx, profile.UserID, func(rec *Record) bool {
		rec.SubscriptionID = sub.ID
		rec.Active = false
		rec.Status = StatusInactive
		rec.PlanType = plan.PlanType
		rec.PlanName = plan.Name
		rec.PlanPrice = plan.Price
		return true
	}); err != nil {
		return "", fmt.Errorf("persist subscription id %s: %w", sub.ID, err)
	}

	s.log.InfoContext(ctx, "subscription created, awaiting gateway confirmation",
		"user_id", profile.UserID, "plan_type", plan.PlanType, "subscription_id", sub.ID)

	return sub.ID, nil
}

// Status returns the record with its cached validity lazily recomputed.
// A stale active flag is corrected and written back before returning.
func (s *Service) Status(ctx context.Context, userID string) (*Record, error) {
	return s.updateWithRetry(ctx, userID, func(rec *Record) bool {
		return rec.RefreshActive(s.now())
	})
}

// findOrCreateCustomer keys the gateway customer by the user's contact
// number. Creation failures fall back to searching existing customers
// for the same contact before giving up.
func (s *Service) findOrCreateCustomer(ctx context.Context, profile *Profile) (*Customer, error) {
	name := profile.FullName
	if name == "" && len(profile.Mobile) >= 4 {
		name = "User " + profile.Mobile[len(profile.Mobile)-4:]
	}

	customer, err := s.gateway.CreateCustomer(ctx, CreateCustomerParams{
		Name:    name,
		Contact: profile.Mobile,
		Email:   profile.Email,
	})
	if err == nil {
		return customer, nil
	}

	s.log.WarnContext(ctx, "customer creation failed, searching existing customers",
		"mobile", profile.Mobile, "error", err)

	customer, lookupErr := s.gateway.FindCustomerByContact(ctx, profile.Mobile)
	if lookupErr == nil && customer != nil {
		return customer, nil
	}

	return nil, errors.Join(ErrGateway, err)
}

// updateWithRetry loads the user's record, applies mutate and performs
// the version-guarded write, re-reading and re-applying when another
// writer raced us. A mutate returning false skips the write.
func (s *Service) updateWithRetry(ctx context.Context, userID string, mutate func(*Record) bool) (*Record, error) {
	var lastErr error
	for attempt := 0; attempt < reconcileAttempts; attempt++ {
		rec, err := s.store.ByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !mutate(rec) {
			return rec, nil
		}
		if err := s.store.Update(ctx, rec); err == nil {
			return rec, nil
		} else if !errors.Is(err, ErrVersionConflict) {
			return nil, err
		} else {
			lastErr = err
		}
	}
	return nil, lastErr
}
