package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wildventure-hub/ms-go-checkout/app/entity"
	"github.com/wildventure-hub/ms-go-checkout/app/notify"
	"github.com/wildventure-hub/ms-go-checkout/app/pricing"
	"github.com/wildventure-hub/ms-go-checkout/app/provider"
	"github.com/wildventure-hub/ms-go-checkout/app/repository"
	"github.com/wildventure-hub/ms-go-checkout/app/types"
	"github.com/wildventure-hub/ms-go-checkout/config"
)

const (
	defaultBatchSize         = int32(100)
	defaultIdempotencyBucket = 5 * time.Minute
	maxIdempotencyChain      = 5
)

type sessionRepository interface {
	Create(ctx context.Context, session *entity.CheckoutSession) error
	Update(ctx context.Context, session *entity.CheckoutSession) error
	FindByID(ctx context.Context, id uint64) (*entity.CheckoutSession, error)
	FindByReference(ctx context.Context, reference string) (*entity.CheckoutSession, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*entity.CheckoutSession, error)
	FindBySubscriptionID(ctx context.Context, provider int32, subscriptionID string) (*entity.CheckoutSession, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.CheckoutSession, error)
	ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.CheckoutSession, error)
	ListDueNotifyDispatch(ctx context.Context, now time.Time, limit int32) ([]*entity.CheckoutSession, error)
}

type sessionEventRepository interface {
	Create(ctx context.Context, event *entity.SessionEvent) error
	ListBySessionID(ctx context.Context, sessionID uint64) ([]*entity.SessionEvent, error)
}

type webhookRecordRepository interface {
	Create(ctx context.Context, record *entity.WebhookRecord) error
	FindByEventKey(ctx context.Context, provider, eventKey string) (*entity.WebhookRecord, error)
	UpdateOutcome(ctx context.Context, record *entity.WebhookRecord) error
}

type confirmationMailer interface {
	SendPaymentConfirmation(to string, data notify.PaymentConfirmationData) error
}

type CheckoutService struct {
	sessionRepo sessionRepository
	eventRepo   sessionEventRepository
	webhookRepo webhookRecordRepository
	providerReg *provider.Registry
	checkoutCfg config.CheckoutConfig
	frontendURL string
	mailer      confirmationMailer
}

func NewCheckoutService(
	sessionRepo sessionRepository,
	eventRepo sessionEventRepository,
	webhookRepo webhookRecordRepository,
	providerReg *provider.Registry,
	checkoutCfg config.CheckoutConfig,
	frontendURL string,
	mailer confirmationMailer,
) *CheckoutService {
	return &CheckoutService{
		sessionRepo: sessionRepo,
		eventRepo:   eventRepo,
		webhookRepo: webhookRepo,
		providerReg: providerReg,
		checkoutCfg: checkoutCfg,
		frontendURL: strings.TrimRight(strings.TrimSpace(frontendURL), "/"),
		mailer:      mailer,
	}
}

// CreateCheckout resolves the server-side price for the requested tier,
// opens a checkout with the provider, and persists the session. Repeated
// submissions of the same form within the idempotency window return the
// session created by the first one.
func (s *CheckoutService) CreateCheckout(ctx context.Context, providerCode int32, req *types.CreateCheckoutRequest) (*entity.CheckoutSession, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	tier, ok := pricing.TierByID(req.TierId)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTierUnknown, req.TierId)
	}

	price := pricing.Resolve(tier, req.Country)
	if req.IsYearly {
		price = pricing.ResolveYearly(tier, req.Country)
	}
	if req.Amount != price.Amount || req.Currency != price.Currency {
		return nil, fmt.Errorf("%w: amount %d %s does not match the %s price %d %s",
			ErrInvalidRequest, req.Amount, req.Currency, tier.ID, price.Amount, price.Currency)
	}

	providerClient, err := s.providerReg.Get(providerCode)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}

	idempotencyKey := s.idempotencyKey(req.CustomerInfo.Email, tier.ID, req.BillingCycle())
	// A live hit inside the bucket returns the earlier session. A terminal
	// one (failed, cancelled, expired) must not block a fresh attempt, so the
	// key is chained deterministically past it.
	for attempt := 0; attempt < maxIdempotencyChain; attempt++ {
		existing, err := s.sessionRepo.FindByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			break
		}
		if !isTerminalStatus(existing.Status) {
			return existing, nil
		}
		idempotencyKey = chainIdempotencyKey(idempotencyKey, existing.Reference)
	}

	amountMinor := price.Amount * 100
	output, err := providerClient.CreateCheckout(ctx, &provider.CheckoutInput{
		TierID:               tier.ID,
		BillingCycle:         req.BillingCycle(),
		AmountMinor:          amountMinor,
		Currency:             price.Currency,
		CustomerEmail:        req.CustomerInfo.Email,
		CustomerName:         req.CustomerInfo.Name,
		CustomerOrganization: req.CustomerInfo.Organization,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &entity.CheckoutSession{
		Reference:            output.Reference,
		IdempotencyKey:       idempotencyKey,
		Provider:             providerCode,
		TierID:               tier.ID,
		BillingCycle:         req.BillingCycle(),
		AmountMinor:          amountMinor,
		Currency:             price.Currency,
		CustomerEmail:        req.CustomerInfo.Email,
		CustomerName:         req.CustomerInfo.Name,
		CustomerOrganization: normalizeOptionalString(req.CustomerInfo.Organization),
		Status:               int32(types.SessionStatus_SESSION_STATUS_PENDING_APPROVAL),
		ApprovalURL:          normalizeOptionalString(output.ApprovalURL),
		Metadata:             map[string]string{"country": req.Country, "access_code": output.AccessCode},
		NotifyDeliveryStatus: entity.NotifyDeliveryNone,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if output.AccessCode == "" {
		delete(session.Metadata, "access_code")
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrSessionAlreadyExists) {
			// Lost the insert race against an identical submission.
			winner, findErr := s.sessionRepo.FindByIdempotencyKey(ctx, idempotencyKey)
			if findErr == nil && winner != nil {
				return winner, nil
			}
		}
		return nil, err
	}

	oldStatus := int32(types.SessionStatus_SESSION_STATUS_CREATED)
	_ = s.eventRepo.Create(ctx, &entity.SessionEvent{
		SessionID: session.ID,
		EventType: "checkout_created",
		OldStatus: &oldStatus,
		NewStatus: session.Status,
		CreatedAt: now,
	})

	return session, nil
}

// CompleteCheckout runs the provider-side capture or verify for a session the
// customer finished approving, and moves the session to Captured or Failed.
func (s *CheckoutService) CompleteCheckout(ctx context.Context, providerCode int32, reference string) (*entity.CheckoutSession, *provider.CompletionResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil, fmt.Errorf("%w: reference is empty", ErrInvalidRequest)
	}

	session, err := s.sessionRepo.FindByReference(ctx, reference)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, ErrSessionNotFound
	}
	if session.Provider != providerCode {
		return nil, nil, fmt.Errorf("%w: session belongs to a different provider", ErrInvalidRequest)
	}

	providerClient, err := s.providerReg.Get(providerCode)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, nil, ErrProviderUnsupported
		}
		return nil, nil, err
	}

	result, err := providerClient.CompleteCheckout(ctx, reference)
	if err != nil {
		return nil, nil, err
	}

	newStatus := int32(types.SessionStatus_SESSION_STATUS_FAILED)
	eventType := "checkout_failed"
	if result.Succeeded {
		newStatus = int32(types.SessionStatus_SESSION_STATUS_CAPTURED)
		eventType = "checkout_captured"
	}

	session, err = s.applyTransition(ctx, session, newStatus, eventType, nil, func(sess *entity.CheckoutSession, now time.Time) {
		if result.CaptureID != "" {
			captureID := result.CaptureID
			sess.CaptureID = &captureID
		}
	})
	if err != nil {
		return nil, nil, err
	}

	return session, result, nil
}

func (s *CheckoutService) GetSessionByReference(ctx context.Context, reference string) (*entity.CheckoutSession, error) {
	session, err := s.sessionRepo.FindByReference(ctx, strings.TrimSpace(reference))
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// ListSessionEvents returns the audit trail for a session, oldest first.
func (s *CheckoutService) ListSessionEvents(ctx context.Context, sessionID uint64) ([]*entity.SessionEvent, error) {
	return s.eventRepo.ListBySessionID(ctx, sessionID)
}

// applyTransition moves a session to newStatus under optimistic locking. A
// version conflict means another writer (webhook vs. verify endpoint) got
// there first; the session is re-read and the transition re-checked so both
// writers converge on the same terminal state instead of clobbering it.
func (s *CheckoutService) applyTransition(
	ctx context.Context,
	session *entity.CheckoutSession,
	newStatus int32,
	eventType string,
	providerEventID *string,
	mutate func(sess *entity.CheckoutSession, now time.Time),
) (*entity.CheckoutSession, error) {
	for attempt := 0; attempt < 2; attempt++ {
		if session.Status == newStatus {
			return session, nil
		}
		if !canTransition(session.Status, newStatus) {
			return session, nil
		}

		now := time.Now().UTC()
		oldStatus := session.Status
		session.Status = newStatus
		if mutate != nil {
			mutate(session, now)
		}
		if newStatus == int32(types.SessionStatus_SESSION_STATUS_CAPTURED) {
			s.markForNotifyDelivery(session, now)
		}
		session.UpdatedAt = now

		err := s.sessionRepo.Update(ctx, session)
		if err == nil {
			_ = s.eventRepo.Create(ctx, &entity.SessionEvent{
				SessionID:       session.ID,
				EventType:       eventType,
				OldStatus:       &oldStatus,
				NewStatus:       newStatus,
				ProviderEventID: providerEventID,
				CreatedAt:       now,
			})
			return session, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, err
		}

		current, findErr := s.sessionRepo.FindByID(ctx, session.ID)
		if findErr != nil {
			return nil, findErr
		}
		if current == nil {
			return nil, ErrSessionNotFound
		}
		session = current
	}

	return session, nil
}

// canTransition encodes the session lifecycle. Terminal failure states never
// move again; Captured may only advance to Active when the provider confirms
// the subscription.
func canTransition(from, to int32) bool {
	if from == to {
		return false
	}
	switch from {
	case int32(types.SessionStatus_SESSION_STATUS_CREATED):
		return true
	case int32(types.SessionStatus_SESSION_STATUS_PENDING_APPROVAL):
		switch to {
		case int32(types.SessionStatus_SESSION_STATUS_CAPTURED),
			int32(types.SessionStatus_SESSION_STATUS_ACTIVE),
			int32(types.SessionStatus_SESSION_STATUS_FAILED),
			int32(types.SessionStatus_SESSION_STATUS_CANCELLED),
			int32(types.SessionStatus_SESSION_STATUS_EXPIRED):
			return true
		}
		return false
	case int32(types.SessionStatus_SESSION_STATUS_CAPTURED):
		return to == int32(types.SessionStatus_SESSION_STATUS_ACTIVE)
	case int32(types.SessionStatus_SESSION_STATUS_ACTIVE):
		switch to {
		case int32(types.SessionStatus_SESSION_STATUS_PAST_DUE),
			int32(types.SessionStatus_SESSION_STATUS_CANCELLED):
			return true
		}
		return false
	case int32(types.SessionStatus_SESSION_STATUS_PAST_DUE):
		switch to {
		case int32(types.SessionStatus_SESSION_STATUS_ACTIVE),
			int32(types.SessionStatus_SESSION_STATUS_CANCELLED),
			int32(types.SessionStatus_SESSION_STATUS_FAILED):
			return true
		}
		return false
	default:
		return false
	}
}

func (s *CheckoutService) markForNotifyDelivery(session *entity.CheckoutSession, now time.Time) {
	session.NotifyDeliveryStatus = entity.NotifyDeliveryPending
	session.NotifyDeliveryAttempts = 0
	session.NotifyDeliveryNextAt = &now
	session.NotifyDeliveryLastErr = nil
}

func isTerminalStatus(status int32) bool {
	switch status {
	case int32(types.SessionStatus_SESSION_STATUS_FAILED),
		int32(types.SessionStatus_SESSION_STATUS_CANCELLED),
		int32(types.SessionStatus_SESSION_STATUS_EXPIRED):
		return true
	}
	return false
}

// chainIdempotencyKey derives the key for a retry after a terminal session.
// Deriving from the dead session's reference keeps the retry itself
// idempotent: every resubmission walks the same chain to the same key.
func chainIdempotencyKey(key, reference string) string {
	sum := sha256.Sum256([]byte(key + "|" + reference))
	return hex.EncodeToString(sum[:])
}

// idempotencyKey fingerprints one human checkout attempt: same customer, same
// tier, same cycle, within the same time bucket.
func (s *CheckoutService) idempotencyKey(email, tierID, billingCycle string) string {
	bucket := s.checkoutCfg.IdempotencyBucket
	if bucket <= 0 {
		bucket = defaultIdempotencyBucket
	}
	window := time.Now().UTC().Truncate(bucket).Unix()

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d",
		strings.ToLower(strings.TrimSpace(email)), tierID, billingCycle, window)))
	return hex.EncodeToString(sum[:])
}

func (s *CheckoutService) batchSize() int32 {
	if s.checkoutCfg.JobBatchSize > 0 {
		return s.checkoutCfg.JobBatchSize
	}
	return defaultBatchSize
}

func normalizeOptionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
