package service

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrSessionNotFound     = errors.New("checkout session not found")
	ErrTierUnknown         = errors.New("unknown pricing tier")
	ErrProviderUnsupported = errors.New("provider is not supported")
	ErrWebhookRejected     = errors.New("webhook rejected")
)
