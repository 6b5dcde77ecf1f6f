package subscription

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Interval is the billing cadence of a plan.
type Interval string

const (
	IntervalMonthly Interval = "monthly"
	IntervalYearly  Interval = "yearly"
)

// Plan describes a purchasable subscription plan. GatewayPlanID is the
// payment gateway's plan identifier and must never be exposed to clients.
type Plan struct {
	PlanType       string   `bson:"planType" yaml:"plan_type"`
	Name           string   `bson:"name" yaml:"name"`
	Price          int64    `bson:"price" yaml:"price"`
	Interval       Interval `bson:"interval" yaml:"interval"`
	DurationMonths int      `bson:"duration" yaml:"duration_months"`
	GatewayPlanID  string   `bson:"razorpayPlanId" yaml:"gateway_plan_id"`
	IsActive       bool     `bson:"isActive" yaml:"is_active"`
}

// TotalBillingCycles derives the gateway billing-cycle count from the
// plan's cadence: yearly plans bill once per cycle, monthly-cadence
// plans bill once per covered month.
func (p Plan) TotalBillingCycles() int {
	if p.Interval == IntervalYearly {
		return 1
	}
	return p.DurationMonths
}

// PlansSource loads plan definitions into the Catalog.
type PlansSource interface {
	Load(ctx context.Context) ([]Plan, error)
}

// Catalog is a read-only plan lookup. It is loaded once at startup and
// safe for unsynchronized concurrent reads.
type Catalog struct {
	byType      map[string]Plan
	byGatewayID map[string]Plan
}

// NewCatalog loads plans from the source, filters out inactive entries
// and validates the remainder. Returns an error when the source fails or
// the configuration is inconsistent.
func NewCatalog(ctx context.Context, src PlansSource) (*Catalog, error) {
	if src == nil {
		panic("subscription: PlansSource is required")
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	c := &Catalog{
		byType:      make(map[string]Plan, len(plans)),
		byGatewayID: make(map[string]Plan, len(plans)),
	}

	for _, p := range plans {
		if !p.IsActive {
			continue
		}
		if err := validatePlan(p); err != nil {
			return nil, err
		}
		if _, dup := c.byType[p.PlanType]; dup {
			return nil, errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("duplicate plan type %q", p.PlanType))
		}
		c.byType[p.PlanType] = p
		c.byGatewayID[p.GatewayPlanID] = p
	}

	return c, nil
}

// FindByType returns the active plan with the given plan type.
func (c *Catalog) FindByType(planType string) (Plan, bool) {
	p, ok := c.byType[planType]
	return p, ok
}

// FindByGatewayPlanID returns the active plan with the given gateway
// plan identifier.
func (c *Catalog) FindByGatewayPlanID(id string) (Plan, bool) {
	p, ok := c.byGatewayID[id]
	return p, ok
}

// Plans returns all active plans ordered by price.
func (c *Catalog) Plans() []Plan {
	plans := make([]Plan, 0, len(c.byType))
	for _, p := range c.byType {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Price < plans[j].Price })
	return plans
}

func validatePlan(p Plan) error {
	switch {
	case p.PlanType == "":
		return errors.Join(ErrInvalidPlanConfiguration, errors.New("plan type is required"))
	case p.GatewayPlanID == "":
		return errors.Join(ErrInvalidPlanConfiguration,
			fmt.Errorf("plan %s has no gateway plan id", p.PlanType))
	case p.DurationMonths <= 0:
		return errors.Join(ErrInvalidPlanConfiguration,
			fmt.Errorf("plan %s has non-positive duration: %d", p.PlanType, p.DurationMonths))
	case p.Interval != IntervalMonthly && p.Interval != IntervalYearly:
		return errors.Join(ErrInvalidPlanConfiguration,
			fmt.Errorf("plan %s has unknown interval %q", p.PlanType, p.Interval))
	}
	return nil
}

// StaticSource is a PlansSource backed by a fixed slice of plans,
// useful for tests and bootstrap tooling.
type StaticSource []Plan

func (s StaticSource) Load(context.Context) ([]Plan, error) {
	plans := make([]Plan, len(s))
	copy(plans, s)
	return plans, nil
}
