package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wildventure-hub/ms-go-checkout/app/entity"
	"github.com/wildventure-hub/ms-go-checkout/app/provider"
	"github.com/wildventure-hub/ms-go-checkout/app/repository"
	"github.com/wildventure-hub/ms-go-checkout/app/types"
)

// HandleWebhook verifies, deduplicates, and applies one inbound provider
// event. Unknown event types and events with no matching session are
// recorded and acknowledged so the provider stops redelivering them; a
// failed signature check, an unparseable payload, or a storage error
// surfaces to the caller so the provider retries.
func (s *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, header http.Header) (*entity.WebhookRecord, error) {
	providerType := detectWebhookProvider(header)
	providerClient, err := s.providerReg.Get(int32(providerType))
	if err != nil {
		return nil, ErrProviderUnsupported
	}

	event, err := providerClient.VerifyWebhook(ctx, payload, header)
	if err != nil {
		s.persistRejectedWebhook(ctx, providerType.Label(), payload, header, err)
		if errors.Is(err, provider.ErrSignatureMismatch) {
			return nil, fmt.Errorf("%w: %v", ErrWebhookRejected, err)
		}
		// Signature checked out but the payload did not parse; surface it
		// as a server error so the provider redelivers.
		return nil, err
	}

	now := time.Now().UTC()
	record := &entity.WebhookRecord{
		Provider:    providerType.Label(),
		EventKey:    webhookEventKey(event.ProviderEventID, event.Reference, event.EventType),
		EventType:   event.EventType,
		Signature:   webhookSignature(providerType, header),
		PayloadJSON: string(payload),
		Status:      entity.WebhookStatusReceived,
		ReceivedAt:  now,
	}

	if !event.Known {
		record.Status = entity.WebhookStatusIgnored
		if err := s.webhookRepo.Create(ctx, record); err != nil && !errors.Is(err, repository.ErrWebhookAlreadyRecorded) {
			return nil, err
		}
		return record, nil
	}

	session, err := s.findWebhookSession(ctx, providerType, event.Reference, event.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		record.Status = entity.WebhookStatusIgnored
		reason := "no session matches the event"
		record.Error = &reason
		if err := s.webhookRepo.Create(ctx, record); err != nil && !errors.Is(err, repository.ErrWebhookAlreadyRecorded) {
			return nil, err
		}
		return record, nil
	}

	sessionID := session.ID
	record.SessionID = &sessionID

	// The unique (provider, event_key) row is the dedup gate: whoever
	// inserts it claims the event. The claim is only settled once the row
	// leaves Received, so a redelivery after a mid-flight storage failure
	// picks the work back up instead of acking a lost event.
	if err := s.webhookRepo.Create(ctx, record); err != nil {
		if !errors.Is(err, repository.ErrWebhookAlreadyRecorded) {
			return nil, err
		}
		existing, findErr := s.webhookRepo.FindByEventKey(ctx, record.Provider, record.EventKey)
		if findErr != nil {
			return nil, findErr
		}
		if existing == nil || existing.Status != entity.WebhookStatusReceived {
			return existing, nil
		}
		record = existing
	}

	subscriptionID := strings.TrimSpace(event.SubscriptionID)
	var providerEventID *string
	if strings.TrimSpace(event.ProviderEventID) != "" {
		id := event.ProviderEventID
		providerEventID = &id
	}

	updated, err := s.applyTransition(ctx, session, event.NewStatus, "webhook_"+event.EventType, providerEventID, func(sess *entity.CheckoutSession, _ time.Time) {
		if subscriptionID != "" {
			sess.ProviderSubscriptionID = &subscriptionID
		}
	})
	if err != nil {
		// Record stays Received so the next delivery retries the apply.
		reason := truncate(err.Error(), 1024)
		record.Error = &reason
		_ = s.webhookRepo.UpdateOutcome(ctx, record)
		return nil, err
	}

	record.Status = entity.WebhookStatusProcessed
	record.Error = nil
	if updated.Status != event.NewStatus {
		record.Status = entity.WebhookStatusIgnored
		reason := fmt.Sprintf("transition to %s not applicable from %s",
			types.SessionStatus(event.NewStatus).Label(), types.SessionStatus(updated.Status).Label())
		record.Error = &reason
	}
	if err := s.webhookRepo.UpdateOutcome(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

func (s *CheckoutService) findWebhookSession(ctx context.Context, providerType types.ProviderType, reference, subscriptionID string) (*entity.CheckoutSession, error) {
	if strings.TrimSpace(reference) != "" {
		session, err := s.sessionRepo.FindByReference(ctx, strings.TrimSpace(reference))
		if err != nil {
			return nil, err
		}
		if session != nil {
			return session, nil
		}
	}
	if strings.TrimSpace(subscriptionID) != "" {
		return s.sessionRepo.FindBySubscriptionID(ctx, int32(providerType), strings.TrimSpace(subscriptionID))
	}
	return nil, nil
}

func (s *CheckoutService) persistRejectedWebhook(ctx context.Context, providerLabel string, payload []byte, header http.Header, cause error) {
	reason := truncate(cause.Error(), 1024)
	// Rejected payloads carry no trustworthy event id, so each rejection
	// gets its own row instead of competing on the dedup key.
	_ = s.webhookRepo.Create(ctx, &entity.WebhookRecord{
		Provider:    providerLabel,
		EventKey:    "rejected:" + uuid.NewString(),
		EventType:   "rejected",
		Signature:   strings.TrimSpace(header.Get("x-paystack-signature")) + strings.TrimSpace(header.Get("Paypal-Transmission-Sig")),
		PayloadJSON: string(payload),
		Status:      entity.WebhookStatusRejected,
		Error:       &reason,
		ReceivedAt:  time.Now().UTC(),
	})
}

// detectWebhookProvider keys off the signature header because both providers
// post to the same endpoint.
func detectWebhookProvider(header http.Header) types.ProviderType {
	if strings.TrimSpace(header.Get("x-paystack-signature")) != "" {
		return types.ProviderType_PROVIDER_TYPE_PAYSTACK
	}
	return types.ProviderType_PROVIDER_TYPE_PAYPAL
}

func webhookSignature(providerType types.ProviderType, header http.Header) string {
	if providerType == types.ProviderType_PROVIDER_TYPE_PAYSTACK {
		return strings.TrimSpace(header.Get("x-paystack-signature"))
	}
	return strings.TrimSpace(header.Get("Paypal-Transmission-Sig"))
}

func webhookEventKey(providerEventID, reference, eventType string) string {
	if strings.TrimSpace(providerEventID) != "" {
		return strings.TrimSpace(providerEventID)
	}
	return strings.TrimSpace(reference) + "|" + strings.TrimSpace(eventType)
}
