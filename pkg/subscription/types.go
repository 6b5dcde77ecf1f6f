package subscription

import "time"

// Status is the user-facing mirror of the cached active flag.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// TrialDays is the one-time trial window granted to a user before the
// first paid period begins.
const TrialDays = 7

// Record holds a user's billing state. It is embedded in the user entity
// and mutated only by registration, login, the Service, the Reconciler
// and the RequireActive middleware.
//
// Active is a cache: it is recomputed from Expiry at every touchpoint and
// must never be treated as authoritative between touches.
type Record struct {
	UserID         string     `bson:"-"`
	Active         bool       `bson:"subscriptionActive"`
	Status         Status     `bson:"subscriptionStatus"`
	Expiry         *time.Time `bson:"subscriptionExpiry"`
	SubscriptionID string     `bson:"subscriptionId"`
	HasUsedTrial   bool       `bson:"hasUsedTrial"`
	PlanType       string     `bson:"planType,omitempty"`
	PlanName       string     `bson:"planName,omitempty"`
	PlanPrice      int64      `bson:"planPrice,omitempty"`
	PaymentID      string     `bson:"paymentId,omitempty"`
	Email          string     `bson:"email,omitempty"`

	// LastEventID is the gateway delivery id of the last applied event,
	// used to skip redelivered extensions.
	LastEventID string `bson:"lastEventId,omitempty"`

	// Version guards read-modify-write cycles; see RecordStore.Update.
	Version int64 `bson:"subscriptionVersion"`
}

// ValidAt reports whether the record grants access at the given time.
func (r *Record) ValidAt(now time.Time) bool {
	return r.Expiry != nil && r.Expiry.After(now)
}

// RefreshActive recomputes the cached Active flag from Expiry. It only
// corrects a stale true flag; it never resurrects a terminated
// subscription whose expiry is still in the future. Returns true when
// the record changed and needs to be written back.
func (r *Record) RefreshActive(now time.Time) bool {
	if r.Active && !r.ValidAt(now) {
		r.Active = false
		r.Status = StatusInactive
		return true
	}
	return false
}
