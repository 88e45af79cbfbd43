package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqlDriver "github.com/go-sql-driver/mysql"

	"github.com/wildventure-hub/ms-go-checkout/app/entity"
)

func sessionRowColumns() []string {
	return []string{
		"id", "reference", "idempotency_key", "provider", "tier_id", "billing_cycle",
		"amount_minor", "currency", "customer_email", "customer_name", "customer_organization",
		"status", "provider_subscription_id", "approval_url", "capture_id", "metadata_json",
		"notify_delivery_status", "notify_delivery_attempts", "notify_delivery_next_at", "notify_delivery_last_error",
		"version", "created_at", "updated_at",
	}
}

func testSession() *entity.CheckoutSession {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return &entity.CheckoutSession{
		Reference:      "WV_ranger_1_abc",
		IdempotencyKey: "idem-1",
		Provider:       2,
		TierID:         "ranger",
		BillingCycle:   "monthly",
		AmountMinor:    675000,
		Currency:       "KES",
		CustomerEmail:  "jane@example.com",
		CustomerName:   "Jane",
		Status:         2,
		Metadata:       map[string]string{"tier": "ranger"},
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestSessionRepositoryCreateAssignsID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO checkout_sessions").
		WillReturnResult(sqlmock.NewResult(7, 1))

	repo := NewSessionRepository(db)
	session := testSession()
	if err := repo.Create(context.Background(), session); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if session.ID != 7 {
		t.Fatalf("expected id 7, got %d", session.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSessionRepositoryCreateDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO checkout_sessions").
		WillReturnError(&mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"})

	repo := NewSessionRepository(db)
	if err := repo.Create(context.Background(), testSession()); !errors.Is(err, ErrSessionAlreadyExists) {
		t.Fatalf("expected ErrSessionAlreadyExists, got %v", err)
	}
}

func TestSessionRepositoryUpdateBumpsVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE checkout_sessions SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewSessionRepository(db)
	session := testSession()
	session.ID = 7
	session.Version = 3

	if err := repo.Update(context.Background(), session); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if session.Version != 4 {
		t.Fatalf("expected version 4 after update, got %d", session.Version)
	}
}

func TestSessionRepositoryUpdateVersionConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectExec("UPDATE checkout_sessions SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM checkout_sessions WHERE id = ?").
		WillReturnRows(sqlmock.NewRows(sessionRowColumns()).AddRow(
			7, "WV_ranger_1_abc", "idem-1", 2, "ranger", "monthly",
			675000, "KES", "jane@example.com", "Jane", nil,
			10, nil, nil, nil, "{}",
			0, 0, nil, nil,
			4, now, now,
		))

	repo := NewSessionRepository(db)
	session := testSession()
	session.ID = 7
	session.Version = 3

	if err := repo.Update(context.Background(), session); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestSessionRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE checkout_sessions SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM checkout_sessions WHERE id = ?").
		WillReturnRows(sqlmock.NewRows(sessionRowColumns()))

	repo := NewSessionRepository(db)
	session := testSession()
	session.ID = 404

	if err := repo.Update(context.Background(), session); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionRepositoryFindByReference(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now()
	org := "Savanna Trust"
	mock.ExpectQuery("SELECT (.+) FROM checkout_sessions WHERE reference = ?").
		WithArgs("WV_ranger_1_abc").
		WillReturnRows(sqlmock.NewRows(sessionRowColumns()).AddRow(
			7, "WV_ranger_1_abc", "idem-1", 2, "ranger", "monthly",
			675000, "KES", "jane@example.com", "Jane", org,
			2, nil, "https://checkout.paystack.example/abc", nil, `{"tier":"ranger"}`,
			0, 0, nil, nil,
			1, now, now,
		))

	repo := NewSessionRepository(db)
	session, err := repo.FindByReference(context.Background(), "WV_ranger_1_abc")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if session == nil {
		t.Fatal("expected session")
	}
	if session.CustomerOrganization == nil || *session.CustomerOrganization != org {
		t.Fatalf("unexpected organization %v", session.CustomerOrganization)
	}
	if session.ApprovalURL == nil || *session.ApprovalURL != "https://checkout.paystack.example/abc" {
		t.Fatalf("unexpected approval url %v", session.ApprovalURL)
	}
	if session.Metadata["tier"] != "ranger" {
		t.Fatalf("unexpected metadata %v", session.Metadata)
	}
}

func TestSessionRepositoryFindByReferenceMiss(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM checkout_sessions WHERE reference = ?").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(sessionRowColumns()))

	repo := NewSessionRepository(db)
	session, err := repo.FindByReference(context.Background(), "missing")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if session != nil {
		t.Fatalf("expected nil session, got %+v", session)
	}
}

func TestWebhookRecordRepositoryFindByEventKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now()
	columns := []string{
		"id", "session_id", "provider", "event_key", "event_type",
		"signature", "payload_json", "status", "error", "received_at",
	}
	mock.ExpectQuery("SELECT (.+) FROM webhook_records WHERE provider = \\? AND event_key = \\?").
		WithArgs("paystack", "302961").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			3, 7, "paystack", "302961", "charge.success",
			"sig", "{}", entity.WebhookStatusReceived, nil, now,
		))

	repo := NewWebhookRecordRepository(db)
	record, err := repo.FindByEventKey(context.Background(), "paystack", "302961")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if record == nil {
		t.Fatal("expected record")
	}
	if record.Status != entity.WebhookStatusReceived {
		t.Fatalf("unexpected status %d", record.Status)
	}
	if record.SessionID == nil || *record.SessionID != 7 {
		t.Fatalf("unexpected session id %v", record.SessionID)
	}
}

func TestWebhookRecordRepositoryFindByEventKeyMiss(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	columns := []string{
		"id", "session_id", "provider", "event_key", "event_type",
		"signature", "payload_json", "status", "error", "received_at",
	}
	mock.ExpectQuery("SELECT (.+) FROM webhook_records WHERE provider = \\? AND event_key = \\?").
		WithArgs("paystack", "missing").
		WillReturnRows(sqlmock.NewRows(columns))

	repo := NewWebhookRecordRepository(db)
	record, err := repo.FindByEventKey(context.Background(), "paystack", "missing")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil record, got %+v", record)
	}
}

func TestWebhookRecordRepositoryDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO webhook_records").
		WillReturnError(&mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"})

	repo := NewWebhookRecordRepository(db)
	record := &entity.WebhookRecord{
		Provider:    "paystack",
		EventKey:    "302961",
		EventType:   "charge.success",
		PayloadJSON: "{}",
		Status:      entity.WebhookStatusProcessed,
		ReceivedAt:  time.Now(),
	}
	if err := repo.Create(context.Background(), record); !errors.Is(err, ErrWebhookAlreadyRecorded) {
		t.Fatalf("expected ErrWebhookAlreadyRecorded, got %v", err)
	}
}
