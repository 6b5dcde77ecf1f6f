package subscription

// EventKind discriminates reconcilable gateway events.
type EventKind string

const (
	// EventActivated is the first confirmation of a new subscription.
	EventActivated EventKind = "activated"
	// EventCharged is a successful recurring charge on a subscription.
	EventCharged EventKind = "charged"
	// EventInvoicePaid is a paid invoice for a subscription cycle.
	EventInvoicePaid EventKind = "invoice_paid"
	// EventTerminated covers cancelled, halted and paused subscriptions;
	// all map to the same terminal transition.
	EventTerminated EventKind = "terminated"
)

// Event is a verified, normalized gateway notification. SubscriptionID
// is the reconciliation join key; the remaining fields are optional and
// used for duration lookup, deduplication and opportunistic backfill.
type Event struct {
	Kind           EventKind
	SubscriptionID string
	GatewayPlanID  string
	PaymentID      string
	CustomerEmail  string

	// EventID is the gateway's delivery identifier when the transport
	// provides one; used to skip redelivered extensions.
	EventID string
}

// Extends reports whether the event kind extends the paid period.
func (e Event) Extends() bool {
	switch e.Kind {
	case EventActivated, EventCharged, EventInvoicePaid:
		return true
	}
	return false
}
