package subscription

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// IdentityFunc extracts the authenticated user id from a request. It is
// supplied by the auth layer; the gate itself performs no authentication.
type IdentityFunc func(r *http.Request) (string, bool)

// RequireActive returns middleware that denies requests from users
// without a valid subscription. Stale records are corrected on touch:
// when the stored expiry has passed while the cached active flag is
// still set, the flag is written back as inactive before the denial is
// sent. There is no background sweep; this lazy check is the only
// expiry mechanism.
func RequireActive(store RecordStore, identity IdentityFunc, log *slog.Logger) func(http.Handler) http.Handler {
	if store == nil {
		panic("subscription: RecordStore is required")
	}
	if identity == nil {
		panic("subscription: IdentityFunc is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID, ok := identity(r)
			if !ok {
				writeGateJSON(w, http.StatusUnauthorized, map[string]any{
					"message": "authentication required",
				})
				return
			}

			rec, err := store.ByUser(ctx, userID)
			if errors.Is(err, ErrRecordNotFound) || errors.Is(err, ErrUserNotFound) {
				writeGateJSON(w, http.StatusNotFound, map[string]any{
					"message": "user not found",
				})
				return
			}
			if err != nil {
				log.ErrorContext(ctx, "subscription gate load failed", "user_id", userID, "error", err)
				writeGateJSON(w, http.StatusInternalServerError, map[string]any{
					"message": "internal error",
				})
				return
			}

			if rec.RefreshActive(time.Now().UTC()) {
				if err := store.Update(ctx, rec); err != nil {
					// The denial below is still correct; the next touch
					// will retry the write-back.
					log.WarnContext(ctx, "lazy expiry write-back failed",
						"user_id", userID, "error", err)
				}
			}

			if !rec.Active {
				writeGateJSON(w, http.StatusForbidden, map[string]any{
					"message":            "subscription required",
					"subscriptionActive": false,
					"subscriptionStatus": StatusInactive,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeGateJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
