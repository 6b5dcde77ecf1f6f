package subscription

import "errors"

var (
	ErrPlanNotFound             = errors.New("subscription plan not found")
	ErrInvalidPlanConfiguration = errors.New("invalid subscription plan configuration")
	ErrFailedToLoadPlans        = errors.New("failed to load subscription plans")

	ErrUserNotFound   = errors.New("user not found")
	ErrRecordNotFound = errors.New("subscription record not found")

	ErrAlreadySubscribed = errors.New("already subscribed to this plan")
	ErrVersionConflict   = errors.New("subscription record was modified concurrently")

	ErrGateway = errors.New("payment gateway request failed")
)
