package mapper

import (
	"time"

	"github.com/wildventure-hub/ms-go-checkout/app/entity"
	"github.com/wildventure-hub/ms-go-checkout/app/pricing"
	"github.com/wildventure-hub/ms-go-checkout/app/types"
)

// SessionToAPI converts a stored session into its public API shape. Amounts
// go back to major units; internal bookkeeping (idempotency key, delivery
// state, version) stays internal.
func SessionToAPI(item *entity.CheckoutSession) *types.Session {
	if item == nil {
		return nil
	}

	return &types.Session{
		Reference:    item.Reference,
		Provider:     types.ProviderType(item.Provider).Label(),
		TierId:       item.TierID,
		BillingCycle: item.BillingCycle,
		Amount:       item.AmountMinor / 100,
		Currency:     item.Currency,
		Status:       types.SessionStatus(item.Status).Label(),
		Customer: types.CustomerInfo{
			Email:        item.CustomerEmail,
			Name:         item.CustomerName,
			Organization: derefString(item.CustomerOrganization),
		},
		ApprovalUrl: derefString(item.ApprovalURL),
		CaptureId:   derefString(item.CaptureID),
		Metadata:    cloneMetadata(item.Metadata),
		CreatedAt:   item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func EventToAPI(event *entity.SessionEvent) types.SessionEvent {
	out := types.SessionEvent{
		Type:      event.EventType,
		NewStatus: types.SessionStatus(event.NewStatus).Label(),
		CreatedAt: event.CreatedAt.UTC().Format(time.RFC3339),
	}
	if event.OldStatus != nil {
		out.OldStatus = types.SessionStatus(*event.OldStatus).Label()
	}
	return out
}

func EventsToAPI(events []*entity.SessionEvent) []types.SessionEvent {
	result := make([]types.SessionEvent, 0, len(events))
	for _, event := range events {
		result = append(result, EventToAPI(event))
	}
	return result
}

func TierToAPI(tier pricing.Tier) types.PricingTier {
	return types.PricingTier{
		Id:          tier.ID,
		Name:        tier.Name,
		Description: tier.Description,
		Monthly:     tier.MonthlyUSD,
		Yearly:      tier.YearlyUSD,
		Currency:    "USD",
		Features:    append([]string(nil), tier.Features...),
		Popular:     tier.Popular,
		Target:      tier.Target,
		MaxAnalyses: tier.MaxAnalyses,
		MaxUsers:    tier.MaxUsers,
	}
}

func TiersToAPI(tiers []pricing.Tier) []types.PricingTier {
	result := make([]types.PricingTier, 0, len(tiers))
	for _, tier := range tiers {
		result = append(result, TierToAPI(tier))
	}
	return result
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func cloneMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return map[string]string{}
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
