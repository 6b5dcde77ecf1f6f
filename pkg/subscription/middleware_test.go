package subscription_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/brokerpad/pkg/subscription"
)

func gateRequest(t *testing.T, gate func(http.Handler) http.Handler) (*httptest.ResponseRecorder, *bool) {
	t.Helper()

	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	gate(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/protected", nil))
	return rr, &reached
}

func staticIdentity(userID string) subscription.IdentityFunc {
	return func(*http.Request) (string, bool) { return userID, userID != "" }
}

func TestRequireActiveAllowsValidSubscription(t *testing.T) {
	t.Parallel()

	expiry := time.Now().UTC().Add(48 * time.Hour)
	store := newMemStore(subscription.Record{
		UserID: "u1",
		Status: subscription.StatusActive,
		Active: true,
		Expiry: &expiry,
	})

	gate := subscription.RequireActive(store, staticIdentity("u1"), testLogger())
	rr, reached := gateRequest(t, gate)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, *reached)
}

func TestRequireActiveCorrectsStaleFlagAndDenies(t *testing.T) {
	t.Parallel()

	expiry := time.Now().UTC().Add(-time.Hour)
	store := newMemStore(subscription.Record{
		UserID: "u1",
		Status: subscription.StatusActive,
		Active: true,
		Expiry: &expiry,
	})

	gate := subscription.RequireActive(store, staticIdentity("u1"), testLogger())
	rr, reached := gateRequest(t, gate)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.False(t, *reached)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, false, body["subscriptionActive"])
	assert.Equal(t, "Inactive", body["subscriptionStatus"])

	// Lazy expiry wrote the correction back.
	stored := store.get("u1")
	assert.False(t, stored.Active)
	assert.Equal(t, subscription.StatusInactive, stored.Status)
}

func TestRequireActiveDeniesNeverActivated(t *testing.T) {
	t.Parallel()

	store := newMemStore(subscription.Record{UserID: "u1", Status: subscription.StatusInactive})

	gate := subscription.RequireActive(store, staticIdentity("u1"), testLogger())
	rr, reached := gateRequest(t, gate)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.False(t, *reached)
}

func TestRequireActiveUnknownUser(t *testing.T) {
	t.Parallel()

	gate := subscription.RequireActive(newMemStore(), staticIdentity("ghost"), testLogger())
	rr, reached := gateRequest(t, gate)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.False(t, *reached)
}

func TestRequireActiveUnauthenticated(t *testing.T) {
	t.Parallel()

	gate := subscription.RequireActive(newMemStore(), staticIdentity(""), testLogger())
	rr, reached := gateRequest(t, gate)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, *reached)
}
