package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/wildventure-hub/ms-go-checkout/app/entity"
)

// ErrWebhookAlreadyRecorded signals that an event with the same (provider,
// event_key) pair was already inserted. Callers treat it as a duplicate
// delivery, not a failure.
var ErrWebhookAlreadyRecorded = errors.New("webhook event already recorded")

type WebhookRecordRepository struct {
	db DBTX
}

func NewWebhookRecordRepository(db DBTX) *WebhookRecordRepository {
	return &WebhookRecordRepository{db: db}
}

func (r *WebhookRecordRepository) Create(ctx context.Context, record *entity.WebhookRecord) error {
	query := `
		INSERT INTO webhook_records (
			session_id, provider, event_key, event_type, signature, payload_json, status, error, received_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var sessionID interface{}
	if record.SessionID != nil {
		sessionID = *record.SessionID
	}

	result, err := r.db.ExecContext(ctx, query,
		sessionID,
		record.Provider,
		record.EventKey,
		record.EventType,
		record.Signature,
		record.PayloadJSON,
		record.Status,
		nullableStringValue(record.Error),
		record.ReceivedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrWebhookAlreadyRecorded
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	record.ID = uint64(id)

	return nil
}

func (r *WebhookRecordRepository) FindByEventKey(ctx context.Context, provider, eventKey string) (*entity.WebhookRecord, error) {
	query := `
		SELECT id, session_id, provider, event_key, event_type, signature, payload_json, status, error, received_at
		FROM webhook_records
		WHERE provider = ? AND event_key = ?
	`

	var sessionID sql.NullInt64
	var errText sql.NullString

	record := &entity.WebhookRecord{}
	err := r.db.QueryRowContext(ctx, query, provider, eventKey).Scan(
		&record.ID,
		&sessionID,
		&record.Provider,
		&record.EventKey,
		&record.EventType,
		&record.Signature,
		&record.PayloadJSON,
		&record.Status,
		&errText,
		&record.ReceivedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if sessionID.Valid {
		id := uint64(sessionID.Int64)
		record.SessionID = &id
	}
	record.Error = stringPtrFromNull(errText)

	return record, nil
}

func (r *WebhookRecordRepository) UpdateOutcome(ctx context.Context, record *entity.WebhookRecord) error {
	query := `
		UPDATE webhook_records SET session_id = ?, status = ?, error = ?
		WHERE id = ?
	`

	var sessionID interface{}
	if record.SessionID != nil {
		sessionID = *record.SessionID
	}

	_, err := r.db.ExecContext(ctx, query,
		sessionID,
		record.Status,
		nullableStringValue(record.Error),
		record.ID,
	)
	return err
}
