package billing

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/brokerpad/core"
	"github.com/dmitrymomot/brokerpad/pkg/subscription"
	"github.com/dmitrymomot/brokerpad/pkg/webhook"
)

const (
	// SignatureHeader carries the gateway's HMAC of the raw body.
	SignatureHeader = "X-Razorpay-Signature"

	// EventIDHeader carries the gateway's delivery identifier, used for
	// redelivery detection.
	EventIDHeader = "X-Razorpay-Event-Id"

	maxWebhookBody = 1 << 20
)

// WebhookHandler verifies and applies gateway notifications. The body
// is hashed exactly as received; signature verification happens before
// any JSON decoding and fails closed with 400. Recognized but
// non-actionable deliveries are acknowledged with 200 so the gateway
// stops retrying.
func WebhookHandler(secret string, reconciler *subscription.Reconciler, log *slog.Logger) http.HandlerFunc {
	if secret == "" {
		panic("billing: webhook secret is required")
	}
	if reconciler == nil {
		panic("billing: reconciler is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			log.WarnContext(r.Context(), "webhook body read failed", slog.Any("error", err))
			renderWebhook(w, r, log, http.StatusBadRequest, "Malformed body")
			return
		}

		if err := webhook.Verify(secret, body, r.Header.Get(SignatureHeader)); err != nil {
			log.WarnContext(r.Context(), "webhook signature rejected", slog.Any("error", err))
			renderWebhook(w, r, log, http.StatusBadRequest, "Invalid signature")
			return
		}

		event, actionable, err := subscription.ParseRazorpayEvent(body, r.Header.Get(EventIDHeader))
		if err != nil {
			log.ErrorContext(r.Context(), "webhook payload decode failed", slog.Any("error", err))
			renderWebhook(w, r, log, http.StatusInternalServerError, "Server error in webhook")
			return
		}
		if !actionable {
			renderOK(w, r, log)
			return
		}

		if err := reconciler.Reconcile(r.Context(), event); err != nil {
			log.ErrorContext(r.Context(), "webhook reconcile failed",
				slog.String("subscription_id", event.SubscriptionID), slog.Any("error", err))
			renderWebhook(w, r, log, http.StatusInternalServerError, "Server error in webhook")
			return
		}

		renderOK(w, r, log)
	}
}

func renderOK(w http.ResponseWriter, r *http.Request, log *slog.Logger) {
	resp := core.JSON(map[string]string{"status": "ok"})
	if err := resp.Render(w, r); err != nil {
		log.ErrorContext(r.Context(), "webhook response render failed", slog.Any("error", err))
	}
}

func renderWebhook(w http.ResponseWriter, r *http.Request, log *slog.Logger, status int, message string) {
	resp := core.JSONStatus(status, map[string]string{
		"status":  "failed",
		"message": message,
	})
	if err := resp.Render(w, r); err != nil {
		log.ErrorContext(r.Context(), "webhook response render failed", slog.Any("error", err))
	}
}
