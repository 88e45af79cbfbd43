package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wildventure-hub/ms-go-checkout/app/types"
)

func TestPaystackCreateCheckoutSendsMinorUnits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/initialize" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_1" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		var params paystackInitializeParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			t.Fatalf("decode params: %v", err)
		}
		if params.Amount != 675000 {
			t.Fatalf("expected amount 675000, got %d", params.Amount)
		}
		if params.Currency != "KES" {
			t.Fatalf("expected KES, got %s", params.Currency)
		}
		if !strings.HasPrefix(params.Reference, "WV_ranger_") {
			t.Fatalf("unexpected reference %s", params.Reference)
		}
		if params.Metadata["tier"] != "ranger" || params.Metadata["billing_cycle"] != types.BillingCycleMonthly {
			t.Fatalf("unexpected metadata %v", params.Metadata)
		}
		_, _ = w.Write([]byte(`{
			"status": true,
			"message": "Authorization URL created",
			"data": {"authorization_url": "https://checkout.paystack.example/abc", "access_code": "ac_1", "reference": "` + params.Reference + `"}
		}`))
	}))
	defer srv.Close()

	p := NewPaystackProvider(PaystackConfig{SecretKey: "sk_test_1", BaseURL: srv.URL})
	out, err := p.CreateCheckout(context.Background(), &CheckoutInput{
		TierID:        "ranger",
		BillingCycle:  types.BillingCycleMonthly,
		AmountMinor:   675000,
		Currency:      "KES",
		CustomerEmail: "jane@example.com",
		CustomerName:  "Jane",
	})
	if err != nil {
		t.Fatalf("create checkout failed: %v", err)
	}
	if out.AccessCode != "ac_1" {
		t.Fatalf("expected access code ac_1, got %s", out.AccessCode)
	}
	if out.ApprovalURL != "https://checkout.paystack.example/abc" {
		t.Fatalf("unexpected authorization url: %s", out.ApprovalURL)
	}
}

func TestPaystackCreateCheckoutStatusFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": false, "message": "Invalid key"}`))
	}))
	defer srv.Close()

	p := NewPaystackProvider(PaystackConfig{SecretKey: "sk_test_1", BaseURL: srv.URL})
	_, err := p.CreateCheckout(context.Background(), &CheckoutInput{
		TierID: "ranger", AmountMinor: 4500, Currency: "USD",
		CustomerEmail: "jane@example.com", CustomerName: "Jane",
	})
	var reqErr *RequestFailedError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestFailedError, got %v", err)
	}
	if reqErr.Body != "Invalid key" {
		t.Fatalf("expected provider message, got %q", reqErr.Body)
	}
}

func TestPaystackCompleteCheckoutSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/WV_ranger_1_abc" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"status": true,
			"message": "Verification successful",
			"data": {"status": "success", "amount": 675000, "currency": "KES", "customer": {"email": "jane@example.com"}, "metadata": {"tier": "ranger"}}
		}`))
	}))
	defer srv.Close()

	p := NewPaystackProvider(PaystackConfig{SecretKey: "sk_test_1", BaseURL: srv.URL})
	result, err := p.CompleteCheckout(context.Background(), "WV_ranger_1_abc")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !result.Succeeded {
		t.Fatal("expected success")
	}
	if result.AmountMinor != 675000 || result.Currency != "KES" {
		t.Fatalf("unexpected amount %d %s", result.AmountMinor, result.Currency)
	}
	if result.Metadata["tier"] != "ranger" {
		t.Fatalf("unexpected metadata %v", result.Metadata)
	}
}

func TestPaystackLookupStatusMapping(t *testing.T) {
	status := "abandoned"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": true, "data": {"status": "` + status + `"}}`))
	}))
	defer srv.Close()

	p := NewPaystackProvider(PaystackConfig{SecretKey: "sk_test_1", BaseURL: srv.URL})

	got, err := p.LookupStatus(context.Background(), "ref-1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got != int32(types.SessionStatus_SESSION_STATUS_PENDING_APPROVAL) {
		t.Fatalf("expected pending approval for abandoned, got %d", got)
	}

	status = "failed"
	got, err = p.LookupStatus(context.Background(), "ref-1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got != int32(types.SessionStatus_SESSION_STATUS_FAILED) {
		t.Fatalf("expected failed, got %d", got)
	}
}

func signPaystack(secret string, payload []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaystackVerifyWebhookValidSignature(t *testing.T) {
	p := NewPaystackProvider(PaystackConfig{SecretKey: "sk_test_1", WebhookSecret: "sk_test_1"})
	payload := []byte(`{"event":"charge.success","data":{"id":302961,"reference":"WV_ranger_1_abc"}}`)

	header := http.Header{}
	header.Set("x-paystack-signature", signPaystack("sk_test_1", payload))

	event, err := p.VerifyWebhook(context.Background(), payload, header)
	if err != nil {
		t.Fatalf("verify webhook failed: %v", err)
	}
	if !event.Known {
		t.Fatal("expected known event")
	}
	if event.Reference != "WV_ranger_1_abc" {
		t.Fatalf("unexpected reference %s", event.Reference)
	}
	if event.ProviderEventID != "302961" {
		t.Fatalf("unexpected provider event id %s", event.ProviderEventID)
	}
	if event.NewStatus != int32(types.SessionStatus_SESSION_STATUS_CAPTURED) {
		t.Fatalf("expected captured, got %d", event.NewStatus)
	}
}

func TestPaystackVerifyWebhookAlteredByteFails(t *testing.T) {
	p := NewPaystackProvider(PaystackConfig{SecretKey: "sk_test_1", WebhookSecret: "sk_test_1"})
	payload := []byte(`{"event":"charge.success","data":{"reference":"WV_ranger_1_abc"}}`)

	header := http.Header{}
	header.Set("x-paystack-signature", signPaystack("sk_test_1", payload))

	altered := append([]byte{}, payload...)
	altered[10] ^= 0x01

	if _, err := p.VerifyWebhook(context.Background(), altered, header); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
}

func TestPaystackVerifyWebhookMissingHeaderFails(t *testing.T) {
	p := NewPaystackProvider(PaystackConfig{SecretKey: "sk_test_1", WebhookSecret: "sk_test_1"})
	payload := []byte(`{"event":"charge.success"}`)

	if _, err := p.VerifyWebhook(context.Background(), payload, http.Header{}); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
}

func TestPaystackVerifyWebhookSubscriptionEvents(t *testing.T) {
	p := NewPaystackProvider(PaystackConfig{SecretKey: "sk_test_1", WebhookSecret: "sk_test_1"})

	cases := []struct {
		event      string
		wantStatus int32
	}{
		{"subscription.create", int32(types.SessionStatus_SESSION_STATUS_ACTIVE)},
		{"subscription.disable", int32(types.SessionStatus_SESSION_STATUS_CANCELLED)},
		{"invoice.payment_failed", int32(types.SessionStatus_SESSION_STATUS_PAST_DUE)},
	}
	for _, tc := range cases {
		payload := []byte(`{"event":"` + tc.event + `","data":{"subscription_code":"SUB_1"}}`)
		header := http.Header{}
		header.Set("x-paystack-signature", signPaystack("sk_test_1", payload))

		got, err := p.VerifyWebhook(context.Background(), payload, header)
		if err != nil {
			t.Fatalf("%s: verify failed: %v", tc.event, err)
		}
		if !got.Known || got.NewStatus != tc.wantStatus {
			t.Fatalf("%s: unexpected event %+v", tc.event, got)
		}
		if got.SubscriptionID != "SUB_1" {
			t.Fatalf("%s: unexpected subscription id %s", tc.event, got.SubscriptionID)
		}
	}
}

func TestNewReferenceIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		ref := newReference("explorer")
		if !strings.HasPrefix(ref, "WV_explorer_") {
			t.Fatalf("unexpected reference format %s", ref)
		}
		if seen[ref] {
			t.Fatalf("duplicate reference %s", ref)
		}
		seen[ref] = true
	}
}
