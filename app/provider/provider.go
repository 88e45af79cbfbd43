package provider

import (
	"context"
	"net/http"
)

type CheckoutInput struct {
	TierID       string
	BillingCycle string

	AmountMinor int64
	Currency    string

	CustomerEmail        string
	CustomerName         string
	CustomerOrganization string

	Metadata map[string]string
}

type CheckoutOutput struct {
	// Reference is the provider-side id the session is tracked by: the
	// PayPal order id or the Paystack transaction reference.
	Reference      string
	ApprovalURL    string
	AccessCode     string
	ProviderStatus string
}

type CompletionResult struct {
	Reference      string
	Succeeded      bool
	ProviderStatus string
	CaptureID      string
	AmountMinor    int64
	Currency       string
	CustomerEmail  string
	Metadata       map[string]string
}

// WebhookEvent is the parsed, provider-neutral form of one inbound event.
// Known is false for event types we accept but deliberately ignore.
type WebhookEvent struct {
	ProviderEventID string
	EventType       string
	Known           bool

	Reference      string
	SubscriptionID string

	NewStatus int32
}

type Provider interface {
	Code() int32
	CreateCheckout(ctx context.Context, input *CheckoutInput) (*CheckoutOutput, error)
	CompleteCheckout(ctx context.Context, reference string) (*CompletionResult, error)
	VerifyWebhook(ctx context.Context, payload []byte, header http.Header) (*WebhookEvent, error)
	LookupStatus(ctx context.Context, reference string) (int32, error)
}
