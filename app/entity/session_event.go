package entity

import "time"

type SessionEvent struct {
	ID uint64

	SessionID uint64

	EventType string

	OldStatus *int32
	NewStatus int32

	ProviderEventID *string
	PayloadJSON     *string

	CreatedAt time.Time
}
