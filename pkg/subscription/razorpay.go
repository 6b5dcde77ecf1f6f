package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	razorpay "github.com/razorpay/razorpay-go"
)

// RazorpayConfig holds credentials for the Razorpay gateway.
type RazorpayConfig struct {
	KeyID         string `env:"RAZORPAY_KEY_ID,required"`
	KeySecret     string `env:"RAZORPAY_KEY_SECRET,required"`
	WebhookSecret string `env:"RAZORPAY_WEBHOOK_SECRET,required"`
}

// RazorpayGateway implements Gateway on top of the official Razorpay SDK.
type RazorpayGateway struct {
	client *razorpay.Client
}

// NewRazorpayGateway creates a Razorpay-backed Gateway.
func NewRazorpayGateway(cfg RazorpayConfig) (*RazorpayGateway, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, errors.New("razorpay key id and secret are required")
	}
	return &RazorpayGateway{
		client: razorpay.NewClient(cfg.KeyID, cfg.KeySecret),
	}, nil
}

// CreateCustomer registers a gateway customer keyed by contact number.
// The SDK is synchronous and does not take a context; cancellation is
// bounded by its HTTP client timeout.
func (g *RazorpayGateway) CreateCustomer(_ context.Context, params CreateCustomerParams) (*Customer, error) {
	data := map[string]any{
		"name":    params.Name,
		"contact": params.Contact,
	}
	if params.Email != "" {
		data["email"] = params.Email
	}

	resp, err := g.client.Customer.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay customer create: %w", err)
	}
	return customerFromResponse(resp)
}

// FindCustomerByContact lists customers filtered by contact and returns
// the first match.
func (g *RazorpayGateway) FindCustomerByContact(_ context.Context, contact string) (*Customer, error) {
	resp, err := g.client.Customer.All(map[string]any{
		"contact": contact,
		"count":   5,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay customer list: %w", err)
	}

	items, ok := resp["items"].([]any)
	if !ok || len(items) == 0 {
		return nil, ErrRecordNotFound
	}
	first, ok := items[0].(map[string]any)
	if !ok {
		return nil, errors.New("razorpay customer list: unexpected item shape")
	}
	return customerFromResponse(first)
}

// CreateSubscription creates a gateway subscription on the plan.
func (g *RazorpayGateway) CreateSubscription(_ context.Context, params CreateSubscriptionParams) (*GatewaySubscription, error) {
	notify := 0
	if params.NotifyCustomer {
		notify = 1
	}

	resp, err := g.client.Subscription.Create(map[string]any{
		"plan_id":         params.GatewayPlanID,
		"customer_id":     params.CustomerID,
		"total_count":     params.TotalCycles,
		"customer_notify": notify,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay subscription create: %w", err)
	}

	id, ok := resp["id"].(string)
	if !ok || id == "" {
		return nil, errors.New("razorpay subscription create: no id in response")
	}

	sub := &GatewaySubscription{ID: id}
	if status, ok := resp["status"].(string); ok {
		sub.Status = status
	}
	if shortURL, ok := resp["short_url"].(string); ok {
		sub.ShortURL = shortURL
	}
	return sub, nil
}

// CancelSubscription requests cancellation of a subscription by id.
func (g *RazorpayGateway) CancelSubscription(_ context.Context, subscriptionID string) error {
	if _, err := g.client.Subscription.Cancel(subscriptionID, nil, nil); err != nil {
		return fmt.Errorf("razorpay subscription cancel %s: %w", subscriptionID, err)
	}
	return nil
}

func customerFromResponse(resp map[string]any) (*Customer, error) {
	id, ok := resp["id"].(string)
	if !ok || id == "" {
		return nil, errors.New("razorpay customer: no id in response")
	}
	c := &Customer{ID: id}
	if name, ok := resp["name"].(string); ok {
		c.Name = name
	}
	if email, ok := resp["email"].(string); ok {
		c.Email = email
	}
	switch contact := resp["contact"].(type) {
	case string:
		c.Contact = contact
	case float64:
		c.Contact = strconv.FormatInt(int64(contact), 10)
	}
	return c, nil
}

// razorpayWebhook mirrors the gateway's notification envelope. Only the
// fields the Reconciler consumes are mapped.
type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Subscription struct {
			Entity struct {
				ID              string `json:"id"`
				PlanID          string `json:"plan_id"`
				CustomerDetails struct {
					Email string `json:"email"`
				} `json:"customer_details"`
			} `json:"entity"`
		} `json:"subscription"`
		Invoice struct {
			Entity struct {
				SubscriptionID string `json:"subscription_id"`
				PaymentID      string `json:"payment_id"`
				CustomerEmail  string `json:"customer_email"`
			} `json:"entity"`
		} `json:"invoice"`
		Payment struct {
			Entity struct {
				ID    string `json:"id"`
				Email string `json:"email"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// ParseRazorpayEvent maps a verified webhook payload to an Event. The
// second return value is false for event types this engine does not act
// on; such deliveries must still be acknowledged with success. The
// payload must already have passed signature verification.
func ParseRazorpayEvent(payload []byte, eventID string) (Event, bool, error) {
	var wh razorpayWebhook
	if err := json.Unmarshal(payload, &wh); err != nil {
		return Event{}, false, fmt.Errorf("decode webhook payload: %w", err)
	}

	ev := Event{EventID: eventID}

	switch wh.Event {
	case "subscription.activated":
		sub := wh.Payload.Subscription.Entity
		if sub.ID == "" {
			return Event{}, false, nil
		}
		ev.Kind = EventActivated
		ev.SubscriptionID = sub.ID
		ev.GatewayPlanID = sub.PlanID
		ev.CustomerEmail = sub.CustomerDetails.Email

	case "subscription.charged":
		sub := wh.Payload.Subscription.Entity
		if sub.ID == "" {
			return Event{}, false, nil
		}
		ev.Kind = EventCharged
		ev.SubscriptionID = sub.ID
		ev.GatewayPlanID = sub.PlanID
		ev.PaymentID = wh.Payload.Payment.Entity.ID
		ev.CustomerEmail = wh.Payload.Payment.Entity.Email

	case "invoice.paid":
		inv := wh.Payload.Invoice.Entity
		if inv.SubscriptionID == "" {
			return Event{}, false, nil
		}
		ev.Kind = EventInvoicePaid
		ev.SubscriptionID = inv.SubscriptionID
		ev.PaymentID = inv.PaymentID
		ev.CustomerEmail = inv.CustomerEmail

	case "subscription.cancelled", "subscription.halted", "subscription.paused":
		sub := wh.Payload.Subscription.Entity
		if sub.ID == "" {
			return Event{}, false, nil
		}
		ev.Kind = EventTerminated
		ev.SubscriptionID = sub.ID

	default:
		return Event{}, false, nil
	}

	return ev, true, nil
}
