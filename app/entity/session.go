package entity

import "time"

const (
	NotifyDeliveryNone    int32 = 0
	NotifyDeliveryPending int32 = 1
	NotifyDeliverySuccess int32 = 10
	NotifyDeliveryFailed  int32 = 20
)

// CheckoutSession tracks one checkout attempt from creation to its terminal
// outcome. Reference is the provider-side identifier (PayPal order id or
// Paystack transaction reference) and is unique across providers.
type CheckoutSession struct {
	ID uint64

	Reference      string
	IdempotencyKey string

	Provider     int32
	TierID       string
	BillingCycle string

	AmountMinor int64
	Currency    string

	CustomerEmail        string
	CustomerName         string
	CustomerOrganization *string

	Status int32

	ProviderSubscriptionID *string
	ApprovalURL            *string
	CaptureID              *string

	Metadata map[string]string

	NotifyDeliveryStatus   int32
	NotifyDeliveryAttempts int32
	NotifyDeliveryNextAt   *time.Time
	NotifyDeliveryLastErr  *string

	// Version guards concurrent writers (verify endpoint vs. webhook);
	// repository updates fail unless the stored version matches.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}
