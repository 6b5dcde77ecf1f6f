// Package account exposes registration, login and the authenticated
// profile endpoint. Login and the profile gate are the two read
// touchpoints that lazily correct a stale subscription flag.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/brokerpad/core"
	"github.com/dmitrymomot/brokerpad/pkg/jwt"
	"github.com/dmitrymomot/brokerpad/pkg/subscription"
	"github.com/dmitrymomot/brokerpad/svc/user"
)

// UserStore is the slice of svc/user the account module needs.
type UserStore interface {
	Create(ctx context.Context, u *user.User) error
	ByID(ctx context.Context, id string) (*user.User, error)
	ByMobile(ctx context.Context, mobile string) (*user.User, error)
	Touch(ctx context.Context, u *user.User, now time.Time) error
}

// Deps are the collaborators the account router needs.
type Deps struct {
	Users   UserStore
	Records subscription.RecordStore
	Tokens  *jwt.Service
	Log     *slog.Logger
	Now     func() time.Time
}

// Identity extracts the authenticated user id from the JWT claims set
// by the token middleware.
func Identity(r *http.Request) (string, bool) {
	claims, ok := jwt.ClaimsFromContext(r.Context())
	if !ok {
		return "", false
	}
	return claims.UserID, true
}

// Router mounts register, login and the gated profile endpoint.
func Router(deps Deps) chi.Router {
	if deps.Users == nil || deps.Records == nil || deps.Tokens == nil {
		panic("account: missing dependencies")
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}

	h := &handlers{deps: deps}

	r := chi.NewRouter()
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Group(func(g chi.Router) {
		g.Use(jwt.Middleware(deps.Tokens))
		g.Use(subscription.RequireActive(deps.Records, Identity, deps.Log))
		g.Get("/me", h.me)
	})
	return r
}

type handlers struct {
	deps Deps
}

type registerRequest struct {
	FullName     string `json:"fullName"`
	MobileNumber string `json:"mobileNumber"`
	Password     string `json:"password"`
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.render(w, r, core.JSONError(core.NewHTTPError(http.StatusBadRequest, "Malformed request body")))
		return
	}

	valErr := core.NewValidationError()
	if req.FullName == "" {
		valErr.Add("fullName", "is required")
	}
	if req.MobileNumber == "" {
		valErr.Add("mobileNumber", "is required")
	}
	if req.Password == "" {
		valErr.Add("password", "is required")
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

	hash, err := user.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, user.ErrPasswordTooShort) {
			valErr.Add("password", "must be at least 6 characters long")
			h.render(w, r, core.JSONError(valErr))
			return
		}
		h.fail(w, r, "password hash failed", err)
		return
	}

	// The record starts inactive: access is granted only after the
	// gateway confirms payment through the webhook.
	u := user.New(req.FullName, mobile, hash, h.deps.Now())
	if err := h.deps.Users.Create(r.Context(), u); err != nil {
		if errors.Is(err, user.ErrMobileAlreadyRegistered) {
			h.render(w, r, core.JSONError(core.NewHTTPError(http.StatusConflict,
				"A user with this mobile number already exists")))
			return
		}
		h.fail(w, r, "user create failed", err)
		return
	}

	h.render(w, r, core.JSONStatus(http.StatusCreated, map[string]any{
		"status":  "success",
		"message": "User registered successfully. Complete payment to activate your subscription.",
		"data": map[string]any{
			"userId":             u.ID,
			"fullName":           u.FullName,
			"contact":            u.Mobile,
			"subscriptionStatus": u.Record.Status,
			"subscriptionExpiry": u.Record.Expiry,
		},
	}))
}

type loginRequest struct {
	MobileNumber string `json:"mobileNumber"`
	Password     string `json:"password"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.render(w, r, core.JSONError(core.NewHTTPError(http.StatusBadRequest, "Malformed request body")))
		return
	}

	valErr := core.NewValidationError()
	if req.MobileNumber == "" {
		valErr.Add("mobileNumber", "is required")
	}
	if req.Password == "" {
		valErr.Add("password", "is required")
	}
	if !valErr.IsEmpty() {
		h.render(w, r, core.JSONError(valErr))
		return
	}

	mobile, err := user.NormalizeMobile(req.MobileNumber)
	if err != nil {
		h.render(w, r, core.JSONError(core.NewHTTPError(http.StatusBadRequest, "Mobile number is not registered")))
		return
	}

	u, err := h.deps.Users.ByMobile(r.Context(), mobile)
	if err != nil {
		if errors.Is(err, subscription.ErrUserNotFound) {
			h.render(w, r, core.JSONError(core.NewHTTPError(http.StatusBadRequest, "Mobile number is not registered")))
			return
		}
		h.fail(w, r, "login lookup failed", err)
		return
	}

	if err := u.CheckPassword(req.Password); err != nil {
		h.render(w, r, core.JSONError(core.NewHTTPError(http.StatusBadRequest, "Password does not match")))
		return
	}

	// Login is a lazy expiry touchpoint: correct a stale active flag
	// before deciding whether to let the user in.
	now := h.deps.Now()
	if err := h.deps.Users.Touch(r.Context(), u, now); err != nil {
		h.deps.Log.WarnContext(r.Context(), "login expiry write-back failed",
			slog.String("user_id", u.ID), slog.Any("error", err))
	}

	if !u.Record.Active {
		h.render(w, r, core.JSONStatus(http.StatusForbidden, map[string]any{
			"message":            "Your subscription is not active or has expired. Please subscribe to continue.",
			"subscriptionActive": false,
			"subscriptionStatus": u.Record.Status,
		}))
		return
	}

	token, err := h.deps.Tokens.Issue(u.ID, u.Mobile)
	if err != nil {
		h.fail(w, r, "token issue failed", err)
		return
	}

	h.render(w, r, core.JSON(map[string]any{
		"status":  "success",
		"message": "User logged in successfully",
		"token":   token,
		"data": map[string]any{
			"userId":             u.ID,
			"fullName":           u.FullName,
			"mobileNumber":       u.Mobile,
			"subscriptionActive": u.Record.Active,
			"subscriptionStatus": u.Record.Status,
			"subscriptionExpiry": u.Record.Expiry,
		},
	}))
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	userID, _ := Identity(r)

	u, err := h.deps.Users.ByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, subscription.ErrUserNotFound) {
			h.render(w, r, core.JSONError(core.NewHTTPError(http.StatusNotFound, "User not found")))
			return
		}
		h.fail(w, r, "profile lookup failed", err)
		return
	}

	h.render(w, r, core.JSON(map[string]any{
		"userId":             u.ID,
		"fullName":           u.FullName,
		"mobileNumber":       u.Mobile,
		"email":              u.Record.Email,
		"subscriptionActive": u.Record.Active,
		"subscriptionStatus": u.Record.Status,
		"subscriptionExpiry": u.Record.Expiry,
	}))
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.deps.Log.ErrorContext(r.Context(), msg, slog.Any("error", err))
	h.render(w, r, core.JSONError(err))
}

func (h *handlers) render(w http.ResponseWriter, r *http.Request, resp core.Response) {
	if err := resp.Render(w, r); err != nil {
		h.deps.Log.ErrorContext(r.Context(), "response render failed", slog.Any("error", err))
	}
}
