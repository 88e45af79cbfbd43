package entity

import "time"

const (
	WebhookStatusReceived  int32 = 1
	WebhookStatusProcessed int32 = 10
	WebhookStatusIgnored   int32 = 11
	WebhookStatusRejected  int32 = 20
)

// WebhookRecord is the audit and dedup row for one inbound provider event.
// EventKey is unique per provider; a duplicate insert means the event was
// already claimed. A record stays Received until its transition commits, so
// a redelivery after a mid-flight failure retries instead of acking.
type WebhookRecord struct {
	ID uint64

	SessionID *uint64

	Provider    string
	EventKey    string
	EventType   string
	Signature   string
	PayloadJSON string
	Status      int32
	Error       *string

	ReceivedAt time.Time
}
