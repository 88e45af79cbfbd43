package provider

import (
	"errors"
	"fmt"
)

var (
	ErrProviderNotSupported = errors.New("provider is not supported")
	ErrApprovalLinkMissing  = errors.New("paypal order response contains no approve link")
	ErrSignatureMismatch    = errors.New("webhook signature mismatch")
)

// RequestFailedError is any non-2xx answer from a processor API. The
// upstream body is kept verbatim so the operator sees what the processor
// actually said.
type RequestFailedError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("%s request failed: status=%d body=%s", e.Provider, e.StatusCode, e.Body)
}
