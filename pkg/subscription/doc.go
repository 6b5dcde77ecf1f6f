// Package subscription implements the billing lifecycle engine: it tracks
// whether a user's paid access is active, driven by asynchronous webhook
// events from the payment gateway combined with calendar-based expiry
// arithmetic and lazy re-evaluation at access time.
//
// # Architecture
//
// The package is built around a small set of collaborators:
//
//   - Record: the persisted billing state embedded in the user entity
//   - Catalog: read-only plan lookup, loaded once at startup
//   - Reconciler: applies verified gateway events to Records
//   - Service: user-initiated subscribe/switch orchestration
//   - Gateway: outbound payment-gateway client abstraction
//   - RecordStore: persistence with compare-and-set updates
//
// Activation is asynchronous: Service.Subscribe creates the gateway
// subscription and stores its id with status Inactive; access is granted
// only after the gateway confirms via a subscription.activated event,
// which the Reconciler turns into an expiry extension. Validity is never
// swept in the background; the cached active flag is recomputed whenever
// a record is touched (login, status query, RequireActive middleware).
//
// # Expiry arithmetic
//
// Extensions add whole calendar months via AddMonths, clamping to the end
// of shorter months (Jan 31 + 1 month = Feb 28/29). The first qualifying
// event for a user additionally grants a one-time 7-day trial window
// before the paid period begins.
//
// # Concurrency
//
// Records carry a version; RecordStore.Update must fail with
// ErrVersionConflict when the stored version differs, and the Reconciler
// retries on conflict. Concurrent reconciliations for different
// subscription ids are independent.
package subscription
