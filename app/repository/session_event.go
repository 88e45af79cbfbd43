package repository

import (
	"context"
	"database/sql"

	"github.com/wildventure-hub/ms-go-checkout/app/entity"
)

type SessionEventRepository struct {
	db DBTX
}

func NewSessionEventRepository(db DBTX) *SessionEventRepository {
	return &SessionEventRepository{db: db}
}

func (r *SessionEventRepository) Create(ctx context.Context, event *entity.SessionEvent) error {
	query := `
		INSERT INTO session_events (
			session_id, event_type, old_status, new_status, provider_event_id, payload_json, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		event.SessionID,
		event.EventType,
		nullableInt32Value(event.OldStatus),
		event.NewStatus,
		nullableStringValue(event.ProviderEventID),
		nullableStringValue(event.PayloadJSON),
		event.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)

	return nil
}

func (r *SessionEventRepository) ListBySessionID(ctx context.Context, sessionID uint64) ([]*entity.SessionEvent, error) {
	query := `
		SELECT id, session_id, event_type, old_status, new_status, provider_event_id, payload_json, created_at
		FROM session_events
		WHERE session_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*entity.SessionEvent, 0)
	for rows.Next() {
		var oldStatus sql.NullInt32
		var providerEventID sql.NullString
		var payloadJSON sql.NullString

		item := &entity.SessionEvent{}
		err := rows.Scan(
			&item.ID,
			&item.SessionID,
			&item.EventType,
			&oldStatus,
			&item.NewStatus,
			&providerEventID,
			&payloadJSON,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		item.OldStatus = int32PtrFromNull(oldStatus)
		item.ProviderEventID = stringPtrFromNull(providerEventID)
		item.PayloadJSON = stringPtrFromNull(payloadJSON)

		events = append(events, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
