// Package billing exposes the subscription HTTP surface: subscribe,
// status, the public plan list and the gateway webhook.
package billing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/brokerpad/core"
	"github.com/dmitrymomot/brokerpad/pkg/subscription"
	"github.com/dmitrymomot/brokerpad/svc/user"
)

// Deps are the collaborators the billing router needs.
type Deps struct {
	Service  *subscription.Service
	Store    subscription.RecordStore
	Catalog  *subscription.Catalog
	Identity subscription.IdentityFunc
	// Auth, when set, wraps the authenticated endpoints. Subscribe and
	// the plan list stay public.
	Auth func(http.Handler) http.Handler
	Log  *slog.Logger
}

// Router mounts the user-facing billing endpoints.
func Router(deps Deps) chi.Router {
	if deps.Service == nil || deps.Store == nil || deps.Catalog == nil || deps.Identity == nil {
		panic("billing: missing dependencies")
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	h := &handlers{deps: deps}

	r := chi.NewRouter()
	r.Post("/subscribe", h.subscribe)
	r.Get("/plans", h.plans)
	r.Group(func(r chi.Router) {
		if deps.Auth != nil {
			r.Use(deps.Auth)
		}
		r.Get("/status", h.status)
	})
	return r
}

type handlers struct {
	deps Deps
}

type subscribeRequest struct {
	MobileNumber string `json:"mobileNumber"`
	PlanType     string `json:"planType"`
}

func (h *handlers) subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.render(w, r, core.JSONError(core.NewHTTPError(http.StatusBadRequest, "Malformed request body")))
		return
	}

	valErr := core.NewValidationError()
	if req.MobileNumber == "" {
		valErr.Add("mobileNumber", "is required")
	}
	if req.PlanType == "" {
		valErr.Add("planType", "is required")
	}
	if !valErr.IsEmpty() {
		h.render(w, r, core.JSONError(valErr))
		return
	}

	mobile, err := user.NormalizeMobile(req.MobileNumber)
	if err != nil {
		valErr.Add("mobileNumber", "must be a valid 10-digit mobile number")
		h.render(w, r, core.JSONError(valErr))
		return
	}

	subscriptionID, err := h.deps.Service.Subscribe(r.Context(), mobile, req.PlanType)
	if err != nil {
		h.deps.Log.ErrorContext(r.Context(), "subscribe failed",
			slog.String("plan_type", req.PlanType), slog.Any("error", err))
		h.render(w, r, core.JSONError(mapSubscribeError(err)))
		return
	}

	h.render(w, r, core.JSON(map[string]any{
		"status":         "success",
		"subscriptionId": subscriptionID,
	}))
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.deps.Identity(r)
	if !ok {
		h.render(w, r, core.JSONError(core.ErrUnauthorized))
		return
	}

	rec, err := h.deps.Service.Status(r.Context(), userID)
	if err != nil {
		if errors.Is(err, subscription.ErrRecordNotFound) || errors.Is(err, subscription.ErrUserNotFound) {
			h.render(w, r, core.JSONError(core.NewHTTPError(http.StatusNotFound, "User not found")))
			return
		}
		h.deps.Log.ErrorContext(r.Context(), "status lookup failed",
			slog.String("user_id", userID), slog.Any("error", err))
		h.render(w, r, core.JSONError(err))
		return
	}

	h.render(w, r, core.JSON(map[string]any{
		"subscriptionActive": rec.Active,
		"subscriptionStatus": rec.Status,
		"subscriptionExpiry": rec.Expiry,
	}))
}

// planView hides gateway identifiers from the public catalog listing.
type planView struct {
	PlanType       string                `json:"planType"`
	Name           string                `json:"name"`
	Price          int64                 `json:"price"`
	Interval       subscription.Interval `json:"interval"`
	DurationMonths int                   `json:"durationMonths"`
}

func (h *handlers) plans(w http.ResponseWriter, r *http.Request) {
	plans := h.deps.Catalog.Plans()
	views := make([]planView, 0, len(plans))
	for _, p := range plans {
		views = append(views, planView{
			PlanType:       p.PlanType,
			Name:           p.Name,
			Price:          p.Price,
			Interval:       p.Interval,
			DurationMonths: p.DurationMonths,
		})
	}
	h.render(w, r, core.JSON(map[string]any{"plans": views}))
}

func (h *handlers) render(w http.ResponseWriter, r *http.Request, resp core.Response) {
	if err := resp.Render(w, r); err != nil {
		h.deps.Log.ErrorContext(r.Context(), "response render failed", slog.Any("error", err))
	}
}

func mapSubscribeError(err error) error {
	switch {
	case errors.Is(err, subscription.ErrUserNotFound),
		errors.Is(err, subscription.ErrRecordNotFound):
		return core.NewHTTPError(http.StatusNotFound, "User not found")
	case errors.Is(err, subscription.ErrPlanNotFound):
		return core.NewHTTPError(http.StatusBadRequest, "Invalid plan")
	case errors.Is(err, subscription.ErrAlreadySubscribed):
		return core.NewHTTPError(http.StatusConflict, "Already subscribed to this plan")
	case errors.Is(err, subscription.ErrGateway):
		return core.NewHTTPError(http.StatusInternalServerError, "Payment gateway error")
	default:
		return err
	}
}
