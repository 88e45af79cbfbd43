package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wildventure-hub/ms-go-checkout/app/types"
)

type PaystackConfig struct {
	SecretKey     string
	WebhookSecret string
	BaseURL       string
	CallbackURL   string
	HTTPTimeout   time.Duration
}

type PaystackProvider struct {
	cfg    PaystackConfig
	client *http.Client
}

func NewPaystackProvider(cfg PaystackConfig) *PaystackProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.paystack.co"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &PaystackProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *PaystackProvider) Code() int32 {
	return int32(types.ProviderType_PROVIDER_TYPE_PAYSTACK)
}

func (p *PaystackProvider) CreateCheckout(ctx context.Context, input *CheckoutInput) (*CheckoutOutput, error) {
	if strings.TrimSpace(p.cfg.SecretKey) == "" {
		return nil, errors.New("paystack secret key is not configured")
	}

	metadata := map[string]string{
		"tier":          input.TierID,
		"billing_cycle": input.BillingCycle,
		"customer_name": input.CustomerName,
		"organization":  input.CustomerOrganization,
	}
	for k, v := range input.Metadata {
		metadata[k] = v
	}

	params := paystackInitializeParams{
		Email:       input.CustomerEmail,
		Amount:      input.AmountMinor,
		Currency:    input.Currency,
		Reference:   newReference(input.TierID),
		CallbackURL: p.cfg.CallbackURL,
		Metadata:    metadata,
	}

	body, err := p.doJSON(ctx, http.MethodPost, "/transaction/initialize", params)
	if err != nil {
		return nil, err
	}

	var result paystackInitializeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	if !result.Status {
		return nil, &RequestFailedError{Provider: "paystack", StatusCode: http.StatusOK, Body: result.Message}
	}

	return &CheckoutOutput{
		Reference:      result.Data.Reference,
		ApprovalURL:    result.Data.AuthorizationURL,
		AccessCode:     result.Data.AccessCode,
		ProviderStatus: "pending",
	}, nil
}

func (p *PaystackProvider) CompleteCheckout(ctx context.Context, reference string) (*CompletionResult, error) {
	body, err := p.doJSON(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	var result paystackVerifyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	if !result.Status {
		return nil, &RequestFailedError{Provider: "paystack", StatusCode: http.StatusOK, Body: result.Message}
	}

	return &CompletionResult{
		Reference:      reference,
		Succeeded:      result.Data.Status == "success",
		ProviderStatus: result.Data.Status,
		AmountMinor:    result.Data.Amount,
		Currency:       result.Data.Currency,
		CustomerEmail:  result.Data.Customer.Email,
		Metadata:       result.Data.Metadata,
	}, nil
}

func (p *PaystackProvider) LookupStatus(ctx context.Context, reference string) (int32, error) {
	result, err := p.CompleteCheckout(ctx, reference)
	if err != nil {
		return 0, err
	}
	switch result.ProviderStatus {
	case "success":
		return int32(types.SessionStatus_SESSION_STATUS_CAPTURED), nil
	case "failed":
		return int32(types.SessionStatus_SESSION_STATUS_FAILED), nil
	case "abandoned":
		return int32(types.SessionStatus_SESSION_STATUS_PENDING_APPROVAL), nil
	default:
		return 0, nil
	}
}

// VerifyWebhook checks the HMAC-SHA512 of the raw body against the
// x-paystack-signature header before parsing anything.
func (p *PaystackProvider) VerifyWebhook(_ context.Context, payload []byte, header http.Header) (*WebhookEvent, error) {
	if strings.TrimSpace(p.cfg.WebhookSecret) == "" {
		return nil, fmt.Errorf("%w: paystack webhook secret is not configured", ErrSignatureMismatch)
	}

	signature := strings.TrimSpace(header.Get("x-paystack-signature"))
	if signature == "" {
		return nil, fmt.Errorf("%w: x-paystack-signature header missing", ErrSignatureMismatch)
	}

	mac := hmac.New(sha512.New, []byte(p.cfg.WebhookSecret))
	_, _ = mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return nil, ErrSignatureMismatch
	}

	return parsePaystackEvent(payload)
}

func parsePaystackEvent(payload []byte) (*WebhookEvent, error) {
	var event struct {
		Event string `json:"event"`
		Data  struct {
			ID               int64  `json:"id"`
			Reference        string `json:"reference"`
			SubscriptionCode string `json:"subscription_code"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}

	result := &WebhookEvent{
		EventType: event.Event,
		Reference: strings.TrimSpace(event.Data.Reference),
	}
	if event.Data.ID > 0 {
		result.ProviderEventID = strconv.FormatInt(event.Data.ID, 10)
	}

	switch event.Event {
	case "charge.success":
		result.Known = true
		result.NewStatus = int32(types.SessionStatus_SESSION_STATUS_CAPTURED)
	case "subscription.create":
		result.Known = true
		result.SubscriptionID = strings.TrimSpace(event.Data.SubscriptionCode)
		result.NewStatus = int32(types.SessionStatus_SESSION_STATUS_ACTIVE)
	case "subscription.disable":
		result.Known = true
		result.SubscriptionID = strings.TrimSpace(event.Data.SubscriptionCode)
		result.NewStatus = int32(types.SessionStatus_SESSION_STATUS_CANCELLED)
	case "invoice.payment_failed":
		result.Known = true
		result.SubscriptionID = strings.TrimSpace(event.Data.SubscriptionCode)
		result.NewStatus = int32(types.SessionStatus_SESSION_STATUS_PAST_DUE)
	}

	return result, nil
}

func (p *PaystackProvider) doJSON(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &RequestFailedError{Provider: "paystack", StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// newReference builds a globally unique transaction reference. The format is
// WV_<tier>_<unix-millis>_<random>.
func newReference(tierID string) string {
	suffix := make([]byte, 5)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("WV_%s_%d_%s", tierID, time.Now().UnixMilli(), hex.EncodeToString(suffix))
}

type paystackInitializeParams struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency,omitempty"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type paystackInitializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status   string `json:"status"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Customer struct {
			Email string `json:"email"`
		} `json:"customer"`
		Metadata map[string]string `json:"metadata"`
	} `json:"data"`
}
