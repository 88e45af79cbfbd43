package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/wildventure-hub/ms-go-checkout/app/entity"
)

var (
	ErrSessionNotFound      = errors.New("checkout session not found")
	ErrSessionAlreadyExists = errors.New("checkout session already exists")
	ErrVersionConflict      = errors.New("checkout session version conflict")
)

const sessionColumns = `id, reference, idempotency_key, provider, tier_id, billing_cycle,
		amount_minor, currency, customer_email, customer_name, customer_organization,
		status, provider_subscription_id, approval_url, capture_id, metadata_json,
		notify_delivery_status, notify_delivery_attempts, notify_delivery_next_at, notify_delivery_last_error,
		version, created_at, updated_at`

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *entity.CheckoutSession) error {
	metadataJSON, err := serializeMetadata(session.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO checkout_sessions (
			reference, idempotency_key, provider, tier_id, billing_cycle,
			amount_minor, currency, customer_email, customer_name, customer_organization,
			status, provider_subscription_id, approval_url, capture_id, metadata_json,
			notify_delivery_status, notify_delivery_attempts, notify_delivery_next_at, notify_delivery_last_error,
			version, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		session.Reference,
		session.IdempotencyKey,
		session.Provider,
		session.TierID,
		session.BillingCycle,
		session.AmountMinor,
		session.Currency,
		session.CustomerEmail,
		session.CustomerName,
		nullableStringValue(session.CustomerOrganization),
		session.Status,
		nullableStringValue(session.ProviderSubscriptionID),
		nullableStringValue(session.ApprovalURL),
		nullableStringValue(session.CaptureID),
		metadataJSON,
		session.NotifyDeliveryStatus,
		session.NotifyDeliveryAttempts,
		nullableTimeValue(session.NotifyDeliveryNextAt),
		nullableStringValue(session.NotifyDeliveryLastErr),
		session.Version,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrSessionAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	session.ID = uint64(id)
	return nil
}

// Update writes the session back only when the stored version still matches
// the version the caller read. On success the in-memory version is bumped to
// the stored one.
func (r *SessionRepository) Update(ctx context.Context, session *entity.CheckoutSession) error {
	metadataJSON, err := serializeMetadata(session.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE checkout_sessions SET
			status = ?,
			provider_subscription_id = ?,
			approval_url = ?,
			capture_id = ?,
			metadata_json = ?,
			notify_delivery_status = ?,
			notify_delivery_attempts = ?,
			notify_delivery_next_at = ?,
			notify_delivery_last_error = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		session.Status,
		nullableStringValue(session.ProviderSubscriptionID),
		nullableStringValue(session.ApprovalURL),
		nullableStringValue(session.CaptureID),
		metadataJSON,
		session.NotifyDeliveryStatus,
		session.NotifyDeliveryAttempts,
		nullableTimeValue(session.NotifyDeliveryNextAt),
		nullableStringValue(session.NotifyDeliveryLastErr),
		session.UpdatedAt,
		session.ID,
		session.Version,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		current, err := r.FindByID(ctx, session.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrSessionNotFound
		}
		return ErrVersionConflict
	}

	session.Version++
	return nil
}

func (r *SessionRepository) FindByID(ctx context.Context, id uint64) (*entity.CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE id = ?`

	session := &entity.CheckoutSession{}
	if err := scanSession(r.db.QueryRowContext(ctx, query, id), session); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return session, nil
}

func (r *SessionRepository) FindByReference(ctx context.Context, reference string) (*entity.CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE reference = ? LIMIT 1`

	session := &entity.CheckoutSession{}
	if err := scanSession(r.db.QueryRowContext(ctx, query, reference), session); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return session, nil
}

func (r *SessionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*entity.CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE idempotency_key = ? LIMIT 1`

	session := &entity.CheckoutSession{}
	if err := scanSession(r.db.QueryRowContext(ctx, query, key), session); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return session, nil
}

func (r *SessionRepository) FindBySubscriptionID(ctx context.Context, provider int32, subscriptionID string) (*entity.CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE provider = ? AND provider_subscription_id = ? LIMIT 1`

	session := &entity.CheckoutSession{}
	if err := scanSession(r.db.QueryRowContext(ctx, query, provider, subscriptionID), session); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return session, nil
}

func (r *SessionRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM checkout_sessions
		WHERE status IN (1, 2)
		  AND created_at <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`

	return r.list(ctx, query, cutoff, limit)
}

func (r *SessionRepository) ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM checkout_sessions
		WHERE status IN (1, 2)
		  AND updated_at <= ?
		ORDER BY updated_at ASC
		LIMIT ?
	`

	return r.list(ctx, query, before, limit)
}

func (r *SessionRepository) ListDueNotifyDispatch(ctx context.Context, now time.Time, limit int32) ([]*entity.CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM checkout_sessions
		WHERE notify_delivery_status = ?
		  AND notify_delivery_next_at IS NOT NULL
		  AND notify_delivery_next_at <= ?
		ORDER BY notify_delivery_next_at ASC
		LIMIT ?
	`

	return r.list(ctx, query, entity.NotifyDeliveryPending, now, limit)
}

func (r *SessionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.CheckoutSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]*entity.CheckoutSession, 0)
	for rows.Next() {
		item := &entity.CheckoutSession{}
		if err := scanSession(rows, item); err != nil {
			return nil, err
		}
		sessions = append(sessions, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(scan rowScanner, session *entity.CheckoutSession) error {
	var customerOrganization sql.NullString
	var providerSubscriptionID sql.NullString
	var approvalURL sql.NullString
	var captureID sql.NullString
	var metadataJSON string
	var notifyNextAt sql.NullTime
	var notifyLastErr sql.NullString

	err := scan.Scan(
		&session.ID,
		&session.Reference,
		&session.IdempotencyKey,
		&session.Provider,
		&session.TierID,
		&session.BillingCycle,
		&session.AmountMinor,
		&session.Currency,
		&session.CustomerEmail,
		&session.CustomerName,
		&customerOrganization,
		&session.Status,
		&providerSubscriptionID,
		&approvalURL,
		&captureID,
		&metadataJSON,
		&session.NotifyDeliveryStatus,
		&session.NotifyDeliveryAttempts,
		&notifyNextAt,
		&notifyLastErr,
		&session.Version,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return err
	}

	session.CustomerOrganization = stringPtrFromNull(customerOrganization)
	session.ProviderSubscriptionID = stringPtrFromNull(providerSubscriptionID)
	session.ApprovalURL = stringPtrFromNull(approvalURL)
	session.CaptureID = stringPtrFromNull(captureID)
	session.NotifyDeliveryNextAt = timePtrFromNull(notifyNextAt)
	session.NotifyDeliveryLastErr = stringPtrFromNull(notifyLastErr)

	metadata, err := parseMetadata(metadataJSON)
	if err != nil {
		return err
	}
	session.Metadata = metadata

	return nil
}
