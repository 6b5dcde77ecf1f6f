package subscription

import "context"

// RecordStore persists subscription records. Records live inside the
// user entity, so implementations are typically views over the user
// collection.
type RecordStore interface {
	// ByUser retrieves the record for a user id.
	// Returns ErrRecordNotFound if the user does not exist.
	ByUser(ctx context.Context, userID string) (*Record, error)

	// BySubscriptionID retrieves the record holding the given gateway
	// subscription id. Returns ErrRecordNotFound when no user references
	// it (e.g. the subscription was superseded by a plan switch).
	BySubscriptionID(ctx context.Context, subscriptionID string) (*Record, error)

	// Update writes the record back using compare-and-set on Version:
	// the write must apply only if the stored version still matches
	// record.Version, and must bump the version on success. Returns
	// ErrVersionConflict when another writer got there first.
	Update(ctx context.Context, record *Record) error
}

// ProfileSource resolves the identity fields the billing engine needs
// when talking to the gateway about a user.
type ProfileSource interface {
	// ProfileByMobile looks a user up by normalized mobile number.
	// Returns ErrUserNotFound if no user is registered with it.
	ProfileByMobile(ctx context.Context, mobile string) (*Profile, error)
}

// Profile is the slice of the user entity exposed to billing: enough to
// create a gateway customer and join back to the record.
type Profile struct {
	UserID   string
	FullName string
	Mobile   string
	Email    string
}
