package subscription

import "context"

// Gateway is the outbound payment-gateway client. Implementations wrap
// the provider SDK and translate its responses into neutral types so the
// engine stays provider-agnostic.
type Gateway interface {
	// CreateCustomer registers a customer keyed by contact number.
	CreateCustomer(ctx context.Context, params CreateCustomerParams) (*Customer, error)

	// FindCustomerByContact searches existing customers by contact number
	// and returns the first match. Used as the idempotent fallback when
	// creation fails on a duplicate.
	FindCustomerByContact(ctx context.Context, contact string) (*Customer, error)

	// CreateSubscription creates a subscription against a gateway plan.
	// The returned subscription starts unconfirmed; activation arrives
	// later via webhook.
	CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*GatewaySubscription, error)

	// CancelSubscription requests cancellation of a subscription by id.
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// CreateCustomerParams identifies a customer at the gateway.
type CreateCustomerParams struct {
	Name    string
	Contact string
	Email   string
}

// Customer is a gateway customer reference.
type Customer struct {
	ID      string
	Name    string
	Contact string
	Email   string
}

// CreateSubscriptionParams describes a new gateway subscription.
type CreateSubscriptionParams struct {
	GatewayPlanID  string
	CustomerID     string
	TotalCycles    int
	NotifyCustomer bool
}

// GatewaySubscription is the gateway's view of a created subscription.
type GatewaySubscription struct {
	ID       string
	Status   string
	ShortURL string
}
