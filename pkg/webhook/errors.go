package webhook

import "errors"

var (
	ErrMissingSecret     = errors.New("webhook: signing secret is required")
	ErrEmptyPayload      = errors.New("webhook: payload cannot be empty")
	ErrMissingSignature  = errors.New("webhook: signature header is missing")
	ErrSignatureMismatch = errors.New("webhook: signature mismatch")
)
