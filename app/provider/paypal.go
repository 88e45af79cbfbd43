package provider

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wildventure-hub/ms-go-checkout/app/types"
)

const tokenExpirySafetyMargin = 60 * time.Second

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string

	ReturnURL string
	CancelURL string
	BrandName string

	// WebhookID identifies our webhook subscription at PayPal and is part
	// of the signed transmission message. Verification fails closed when it
	// is not configured.
	WebhookID string

	// CertHost is the host suffix webhook signing certificates may be
	// fetched from. Only overridden in tests.
	CertHost string

	HTTPTimeout time.Duration
}

type PayPalProvider struct {
	cfg    PayPalConfig
	client *http.Client

	// tokenMu serializes token refresh so concurrent expired-token callers
	// trigger exactly one fetch.
	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time

	certMu sync.Mutex
	certs  map[string]*x509.Certificate
}

func NewPayPalProvider(cfg PayPalConfig) *PayPalProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api-m.sandbox.paypal.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if strings.TrimSpace(cfg.BrandName) == "" {
		cfg.BrandName = "WildVenture Hub"
	}
	if strings.TrimSpace(cfg.CertHost) == "" {
		cfg.CertHost = "paypal.com"
	}

	return &PayPalProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		certs:  map[string]*x509.Certificate{},
	}
}

func (p *PayPalProvider) Code() int32 {
	return int32(types.ProviderType_PROVIDER_TYPE_PAYPAL)
}

func (p *PayPalProvider) CreateCheckout(ctx context.Context, input *CheckoutInput) (*CheckoutOutput, error) {
	if strings.TrimSpace(p.cfg.ClientID) == "" || strings.TrimSpace(p.cfg.ClientSecret) == "" {
		return nil, errors.New("paypal credentials are not configured")
	}

	cycle := "Monthly"
	if input.BillingCycle == types.BillingCycleYearly {
		cycle = "Annual"
	}
	description := fmt.Sprintf("WildVenture Hub %s - %s Subscription", input.TierID, cycle)

	order := paypalOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			Amount: paypalAmount{
				CurrencyCode: input.Currency,
				Value:        formatMajorUnits(input.AmountMinor),
			},
			Description: description,
			CustomID:    input.TierID,
		}},
		ApplicationContext: paypalApplicationContext{
			ReturnURL:  p.cfg.ReturnURL,
			CancelURL:  p.cfg.CancelURL,
			BrandName:  p.cfg.BrandName,
			UserAction: "PAY_NOW",
		},
	}

	body, err := p.doJSON(ctx, http.MethodPost, "/v2/checkout/orders", order)
	if err != nil {
		return nil, err
	}

	var created paypalOrderResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, err
	}
	if strings.TrimSpace(created.ID) == "" {
		return nil, errors.New("paypal order id missing")
	}

	approvalURL := ""
	for _, link := range created.Links {
		if link.Rel == "approve" {
			approvalURL = link.Href
			break
		}
	}
	if approvalURL == "" {
		return nil, ErrApprovalLinkMissing
	}

	return &CheckoutOutput{
		Reference:      created.ID,
		ApprovalURL:    approvalURL,
		ProviderStatus: created.Status,
	}, nil
}

func (p *PayPalProvider) CompleteCheckout(ctx context.Context, reference string) (*CompletionResult, error) {
	body, err := p.doJSON(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(reference)+"/capture", nil)
	if err != nil {
		return nil, err
	}

	var captured paypalCaptureResponse
	if err := json.Unmarshal(body, &captured); err != nil {
		return nil, err
	}

	result := &CompletionResult{
		Reference:      reference,
		Succeeded:      captured.Status == "COMPLETED",
		ProviderStatus: captured.Status,
		CustomerEmail:  captured.Payer.EmailAddress,
	}
	if len(captured.PurchaseUnits) > 0 {
		unit := captured.PurchaseUnits[0]
		if len(unit.Payments.Captures) > 0 {
			cap := unit.Payments.Captures[0]
			result.CaptureID = cap.ID
			result.Currency = cap.Amount.CurrencyCode
			result.AmountMinor = parseMajorUnits(cap.Amount.Value)
		}
	}

	return result, nil
}

func (p *PayPalProvider) LookupStatus(ctx context.Context, reference string) (int32, error) {
	if strings.TrimSpace(reference) == "" {
		return 0, nil
	}

	body, err := p.doJSON(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(reference), nil)
	if err != nil {
		return 0, err
	}

	var order paypalOrderResponse
	if err := json.Unmarshal(body, &order); err != nil {
		return 0, err
	}

	switch order.Status {
	case "COMPLETED":
		return int32(types.SessionStatus_SESSION_STATUS_CAPTURED), nil
	case "VOIDED":
		return int32(types.SessionStatus_SESSION_STATUS_CANCELLED), nil
	case "CREATED", "APPROVED", "PAYER_ACTION_REQUIRED":
		return int32(types.SessionStatus_SESSION_STATUS_PENDING_APPROVAL), nil
	default:
		return 0, nil
	}
}

// VerifyWebhook validates PayPal's transmission signature: RSA-SHA256 over
// "transmissionID|timestamp|webhookID|crc32(body)" against the certificate
// named in the paypal-cert-url header.
func (p *PayPalProvider) VerifyWebhook(ctx context.Context, payload []byte, header http.Header) (*WebhookEvent, error) {
	if strings.TrimSpace(p.cfg.WebhookID) == "" {
		return nil, fmt.Errorf("%w: paypal webhook id is not configured", ErrSignatureMismatch)
	}

	transmissionID := strings.TrimSpace(header.Get("Paypal-Transmission-Id"))
	transmissionTime := strings.TrimSpace(header.Get("Paypal-Transmission-Time"))
	transmissionSig := strings.TrimSpace(header.Get("Paypal-Transmission-Sig"))
	certURL := strings.TrimSpace(header.Get("Paypal-Cert-Url"))
	authAlgo := strings.TrimSpace(header.Get("Paypal-Auth-Algo"))

	if transmissionID == "" || transmissionTime == "" || transmissionSig == "" || certURL == "" {
		return nil, fmt.Errorf("%w: transmission headers incomplete", ErrSignatureMismatch)
	}
	if authAlgo != "" && authAlgo != "SHA256withRSA" {
		return nil, fmt.Errorf("%w: unsupported auth algo %q", ErrSignatureMismatch, authAlgo)
	}

	cert, err := p.signingCert(ctx, certURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}
	publicKey, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: signing certificate is not RSA", ErrSignatureMismatch)
	}

	signature, err := base64.StdEncoding.DecodeString(transmissionSig)
	if err != nil {
		return nil, fmt.Errorf("%w: signature is not base64", ErrSignatureMismatch)
	}

	message := strings.Join([]string{
		transmissionID,
		transmissionTime,
		p.cfg.WebhookID,
		strconv.FormatUint(uint64(crc32.ChecksumIEEE(payload)), 10),
	}, "|")
	digest := sha256.Sum256([]byte(message))

	if err := rsa.VerifyPKCS1v15(publicKey, crypto.SHA256, digest[:], signature); err != nil {
		return nil, ErrSignatureMismatch
	}

	return parsePayPalEvent(payload)
}

func parsePayPalEvent(payload []byte) (*WebhookEvent, error) {
	var event struct {
		ID        string `json:"id"`
		EventType string `json:"event_type"`
		Resource  struct {
			ID                string `json:"id"`
			SupplementaryData struct {
				RelatedIDs struct {
					OrderID string `json:"order_id"`
				} `json:"related_ids"`
			} `json:"supplementary_data"`
		} `json:"resource"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}

	result := &WebhookEvent{
		ProviderEventID: strings.TrimSpace(event.ID),
		EventType:       event.EventType,
	}

	orderID := strings.TrimSpace(event.Resource.SupplementaryData.RelatedIDs.OrderID)
	if orderID == "" {
		orderID = strings.TrimSpace(event.Resource.ID)
	}

	switch event.EventType {
	case "PAYMENT.CAPTURE.COMPLETED":
		result.Known = true
		result.Reference = orderID
		result.NewStatus = int32(types.SessionStatus_SESSION_STATUS_CAPTURED)
	case "BILLING.SUBSCRIPTION.ACTIVATED":
		result.Known = true
		result.SubscriptionID = strings.TrimSpace(event.Resource.ID)
		result.NewStatus = int32(types.SessionStatus_SESSION_STATUS_ACTIVE)
	case "BILLING.SUBSCRIPTION.CANCELLED":
		result.Known = true
		result.SubscriptionID = strings.TrimSpace(event.Resource.ID)
		result.NewStatus = int32(types.SessionStatus_SESSION_STATUS_CANCELLED)
	case "BILLING.SUBSCRIPTION.PAYMENT.FAILED":
		result.Known = true
		result.SubscriptionID = strings.TrimSpace(event.Resource.ID)
		result.NewStatus = int32(types.SessionStatus_SESSION_STATUS_PAST_DUE)
	}

	return result, nil
}

func (p *PayPalProvider) signingCert(ctx context.Context, certURL string) (*x509.Certificate, error) {
	parsed, err := url.Parse(certURL)
	if err != nil {
		return nil, fmt.Errorf("invalid cert url: %v", err)
	}
	host := parsed.Hostname()
	if host != p.cfg.CertHost && !strings.HasSuffix(host, "."+p.cfg.CertHost) {
		return nil, fmt.Errorf("cert url host %q is not trusted", host)
	}

	p.certMu.Lock()
	defer p.certMu.Unlock()
	if cert, ok := p.certs[certURL]; ok && time.Now().Before(cert.NotAfter) {
		return cert, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, certURL, nil)
	if err != nil {
		return nil, err
	}
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
		return nil, fmt.Errorf("cert fetch failed: status=%d", resp.StatusCode)
	}

	block, _ := pem.Decode(body)
	if block == nil {
		return nil, errors.New("cert response is not PEM")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
		return nil, errors.New("signing certificate is outside its validity window")
	}

	p.certs[certURL] = cert
	return cert, nil
}

func (p *PayPalProvider) token(ctx context.Context) (string, error) {
	p.tokenMu.Lock()
	defer p.tokenMu.Unlock()

	if p.accessToken != "" && time.Now().Before(p.tokenExpiry) {
		return p.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", &RequestFailedError{Provider: "paypal", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &token); err != nil {
		return "", err
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return "", errors.New("paypal token response missing access_token")
	}

	p.accessToken = token.AccessToken
	p.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - tokenExpirySafetyMargin)

	return p.accessToken, nil
}

func (p *PayPalProvider) doJSON(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	accessToken, err := p.token(ctx)
	if err != nil {
		return nil, err
	}

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
	req.Header.Set("Authorization", "Bearer "+accessToken)
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
		return nil, &RequestFailedError{Provider: "paypal", StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalPurchaseUnit struct {
	Amount      paypalAmount `json:"amount"`
	Description string       `json:"description,omitempty"`
	CustomID    string       `json:"custom_id,omitempty"`
}

type paypalApplicationContext struct {
	ReturnURL  string `json:"return_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
	BrandName  string `json:"brand_name,omitempty"`
	UserAction string `json:"user_action,omitempty"`
}

type paypalOrderRequest struct {
	Intent             string                   `json:"intent"`
	PurchaseUnits      []paypalPurchaseUnit     `json:"purchase_units"`
	ApplicationContext paypalApplicationContext `json:"application_context"`
}

type paypalLink struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type paypalOrderResponse struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Links  []paypalLink `json:"links"`
}

type paypalCaptureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string       `json:"id"`
				Status string       `json:"status"`
				Amount paypalAmount `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
	Payer struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
}

func formatMajorUnits(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}

func parseMajorUnits(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	parts := strings.SplitN(value, ".", 2)
	major, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0
	}
	minor := major * 100
	if len(parts) == 2 {
		frac := parts[1]
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		if cents, err := strconv.ParseInt(frac, 10, 64); err == nil {
			minor += cents
		}
	}
	return minor
}
