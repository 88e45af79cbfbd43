package types

import (
	"errors"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
)

type CustomerInfo struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Organization string `json:"organization,omitempty"`
}

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

type CreateCheckoutRequest struct {
	Amount       int64        `json:"amount"`
	Currency     string       `json:"currency"`
	TierId       string       `json:"tierId"`
	Country      string       `json:"country"`
	CustomerInfo CustomerInfo `json:"customerInfo"`
	IsYearly     bool         `json:"isYearly"`
}

func NewCreateCheckoutRequestFromContext(ctx echo.Context) (*CreateCheckoutRequest, error) {
	var body CreateCheckoutRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.TierId = strings.TrimSpace(body.TierId)
	body.Country = strings.ToUpper(strings.TrimSpace(body.Country))
	body.CustomerInfo.Email = strings.TrimSpace(body.CustomerInfo.Email)
	body.CustomerInfo.Name = strings.TrimSpace(body.CustomerInfo.Name)
	body.CustomerInfo.Organization = strings.TrimSpace(body.CustomerInfo.Organization)

	return &body, nil
}

func (r *CreateCheckoutRequest) BillingCycle() string {
	if r.IsYearly {
		return BillingCycleYearly
	}
	return BillingCycleMonthly
}

// Validate reports every missing or malformed field at once so a caller can
// fix the whole form in a single round trip.
func (r *CreateCheckoutRequest) Validate() error {
	fields := make([]string, 0, 4)
	if r.Amount <= 0 {
		fields = append(fields, "amount")
	}
	if len(strings.TrimSpace(r.Currency)) != 3 {
		fields = append(fields, "currency")
	}
	if strings.TrimSpace(r.TierId) == "" {
		fields = append(fields, "tierId")
	}
	if !strings.Contains(r.CustomerInfo.Email, "@") {
		fields = append(fields, "customerInfo.email")
	}
	if strings.TrimSpace(r.CustomerInfo.Name) == "" {
		fields = append(fields, "customerInfo.name")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

type CaptureOrderRequest struct {
	OrderId string `json:"orderId"`
}

func NewCaptureOrderRequestFromContext(ctx echo.Context) (*CaptureOrderRequest, error) {
	var body CaptureOrderRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.OrderId = strings.TrimSpace(body.OrderId)
	return &body, nil
}

func (r *CaptureOrderRequest) Validate() error {
	if r.OrderId == "" {
		return &ValidationError{Fields: []string{"orderId"}}
	}
	return nil
}

type VerifyTransactionRequest struct {
	Reference string `json:"reference"`
}

func NewVerifyTransactionRequestFromContext(ctx echo.Context) (*VerifyTransactionRequest, error) {
	var body VerifyTransactionRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.Reference = strings.TrimSpace(body.Reference)
	return &body, nil
}

func (r *VerifyTransactionRequest) Validate() error {
	if r.Reference == "" {
		return &ValidationError{Fields: []string{"reference"}}
	}
	return nil
}
