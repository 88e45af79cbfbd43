package types

import "strings"

type ProviderType int32

const (
	ProviderType_PROVIDER_TYPE_UNSPECIFIED ProviderType = 0
	ProviderType_PROVIDER_TYPE_PAYPAL      ProviderType = 1
	ProviderType_PROVIDER_TYPE_PAYSTACK    ProviderType = 2
)

func (p ProviderType) Label() string {
	switch p {
	case ProviderType_PROVIDER_TYPE_PAYPAL:
		return "paypal"
	case ProviderType_PROVIDER_TYPE_PAYSTACK:
		return "paystack"
	default:
		return "unspecified"
	}
}

func ParseProviderType(raw string) (ProviderType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "paypal", "1":
		return ProviderType_PROVIDER_TYPE_PAYPAL, true
	case "paystack", "2":
		return ProviderType_PROVIDER_TYPE_PAYSTACK, true
	default:
		return ProviderType_PROVIDER_TYPE_UNSPECIFIED, false
	}
}

type SessionStatus int32

const (
	SessionStatus_SESSION_STATUS_UNSPECIFIED      SessionStatus = 0
	SessionStatus_SESSION_STATUS_CREATED          SessionStatus = 1
	SessionStatus_SESSION_STATUS_PENDING_APPROVAL SessionStatus = 2
	SessionStatus_SESSION_STATUS_CAPTURED         SessionStatus = 10
	SessionStatus_SESSION_STATUS_ACTIVE           SessionStatus = 11
	SessionStatus_SESSION_STATUS_PAST_DUE         SessionStatus = 12
	SessionStatus_SESSION_STATUS_FAILED           SessionStatus = 20
	SessionStatus_SESSION_STATUS_CANCELLED        SessionStatus = 30
	SessionStatus_SESSION_STATUS_EXPIRED          SessionStatus = 31
)

func (s SessionStatus) Label() string {
	switch s {
	case SessionStatus_SESSION_STATUS_CREATED:
		return "created"
	case SessionStatus_SESSION_STATUS_PENDING_APPROVAL:
		return "pending_approval"
	case SessionStatus_SESSION_STATUS_CAPTURED:
		return "captured"
	case SessionStatus_SESSION_STATUS_ACTIVE:
		return "active"
	case SessionStatus_SESSION_STATUS_PAST_DUE:
		return "past_due"
	case SessionStatus_SESSION_STATUS_FAILED:
		return "failed"
	case SessionStatus_SESSION_STATUS_CANCELLED:
		return "cancelled"
	case SessionStatus_SESSION_STATUS_EXPIRED:
		return "expired"
	default:
		return "unspecified"
	}
}

const (
	BillingCycleMonthly = "monthly"
	BillingCycleYearly  = "yearly"
)
