package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wildventure-hub/ms-go-checkout/app/entity"
	"github.com/wildventure-hub/ms-go-checkout/app/notify"
	"github.com/wildventure-hub/ms-go-checkout/app/pricing"
	"github.com/wildventure-hub/ms-go-checkout/app/types"
)

// RunReconcileBatch asks the provider for the current state of sessions that
// have been sitting in a pending status, catching outcomes whose webhook
// never arrived.
func (s *CheckoutService) RunReconcileBatch(ctx context.Context) error {
	now := time.Now().UTC()
	before := now.Add(-s.checkoutCfg.ReconcileStaleAfter)
	items, err := s.sessionRepo.ListForReconcile(ctx, before, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, session := range items {
		if session == nil || strings.TrimSpace(session.Reference) == "" {
			continue
		}

		providerClient, err := s.providerReg.Get(session.Provider)
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}

		newStatus, err := providerClient.LookupStatus(ctx, session.Reference)
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if newStatus == 0 || newStatus == session.Status {
			continue
		}

		if _, err := s.applyTransition(ctx, session, newStatus, "session_reconciled", nil, nil); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

// RunExpirePendingBatch times out sessions whose customer never finished
// approving the payment.
func (s *CheckoutService) RunExpirePendingBatch(ctx context.Context) error {
	now := time.Now().UTC()
	cutoff := now.Add(-s.checkoutCfg.PendingTimeout)
	items, err := s.sessionRepo.ListExpiredPending(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, session := range items {
		if session == nil {
			continue
		}
		expired := int32(types.SessionStatus_SESSION_STATUS_EXPIRED)
		if session.Status == expired {
			continue
		}
		if _, err := s.applyTransition(ctx, session, expired, "session_expired", nil, nil); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

// RunDispatchNotificationsBatch sends the confirmation email for captured
// sessions whose delivery is due.
func (s *CheckoutService) RunDispatchNotificationsBatch(ctx context.Context) error {
	now := time.Now().UTC()
	items, err := s.sessionRepo.ListDueNotifyDispatch(ctx, now, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, session := range items {
		if session == nil {
			continue
		}
		if err := s.dispatchConfirmation(ctx, session, now); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func (s *CheckoutService) dispatchConfirmation(ctx context.Context, session *entity.CheckoutSession, now time.Time) error {
	tierName := session.TierID
	if tier, ok := pricing.TierByID(session.TierID); ok {
		tierName = tier.Name
	}

	err := s.mailer.SendPaymentConfirmation(session.CustomerEmail, notify.PaymentConfirmationData{
		Name:         session.CustomerName,
		TierName:     tierName,
		BillingCycle: session.BillingCycle,
		Amount:       formatMinorUnits(session.AmountMinor),
		Currency:     session.Currency,
		Reference:    session.Reference,
		DashboardURL: s.frontendURL + "/dashboard",
	})
	if err != nil {
		return s.recordDispatchFailure(ctx, session, now, err)
	}

	session.NotifyDeliveryStatus = entity.NotifyDeliverySuccess
	session.NotifyDeliveryNextAt = nil
	session.NotifyDeliveryLastErr = nil
	session.UpdatedAt = now

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return err
	}

	_ = s.eventRepo.Create(ctx, &entity.SessionEvent{
		SessionID: session.ID,
		EventType: "confirmation_sent",
		NewStatus: session.Status,
		CreatedAt: now,
	})

	return nil
}

func (s *CheckoutService) recordDispatchFailure(ctx context.Context, session *entity.CheckoutSession, now time.Time, dispatchErr error) error {
	session.NotifyDeliveryAttempts++
	trimmed := truncate(dispatchErr.Error(), 1024)
	session.NotifyDeliveryLastErr = &trimmed

	maxAttempts := s.checkoutCfg.NotifyMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	if session.NotifyDeliveryAttempts >= maxAttempts {
		session.NotifyDeliveryStatus = entity.NotifyDeliveryFailed
		session.NotifyDeliveryNextAt = nil
	} else {
		retryInterval := s.checkoutCfg.NotifyRetryInterval
		if retryInterval <= 0 {
			retryInterval = 5 * time.Minute
		}
		next := now.Add(retryInterval)
		session.NotifyDeliveryStatus = entity.NotifyDeliveryPending
		session.NotifyDeliveryNextAt = &next
	}
	session.UpdatedAt = now

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return err
	}

	_ = s.eventRepo.Create(ctx, &entity.SessionEvent{
		SessionID: session.ID,
		EventType: "confirmation_dispatch_failed",
		NewStatus: session.Status,
		CreatedAt: now,
	})

	return dispatchErr
}

func formatMinorUnits(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
