package types

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type WebhookAckResponse struct {
	Success bool `json:"success"`
}

type CreateOrderResponse struct {
	Success     bool   `json:"success"`
	OrderId     string `json:"orderId"`
	ApprovalUrl string `json:"approvalUrl"`
	Status      string `json:"status"`
}

type CaptureOrderResponse struct {
	Success   bool   `json:"success"`
	OrderId   string `json:"orderId"`
	Status    string `json:"status"`
	CaptureId string `json:"captureId,omitempty"`
}

type InitializeTransactionResponse struct {
	Success          bool   `json:"success"`
	Reference        string `json:"reference"`
	AuthorizationUrl string `json:"authorizationUrl"`
	AccessCode       string `json:"accessCode,omitempty"`
}

type VerifyTransactionResponse struct {
	Success   bool              `json:"success"`
	Reference string            `json:"reference"`
	Status    string            `json:"status"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Customer  CustomerInfo      `json:"customer"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type Session struct {
	Reference    string            `json:"reference"`
	Provider     string            `json:"provider"`
	TierId       string            `json:"tierId"`
	BillingCycle string            `json:"billingCycle"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	Customer     CustomerInfo      `json:"customer"`
	ApprovalUrl  string            `json:"approvalUrl,omitempty"`
	CaptureId    string            `json:"captureId,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    string            `json:"createdAt"`
	UpdatedAt    string            `json:"updatedAt"`
}

type SessionEvent struct {
	Type      string `json:"type"`
	OldStatus string `json:"oldStatus,omitempty"`
	NewStatus string `json:"newStatus"`
	CreatedAt string `json:"createdAt"`
}

type SessionEnvelopeResponse struct {
	Session *Session       `json:"session"`
	Events  []SessionEvent `json:"events,omitempty"`
}

type PricingTier struct {
	Id          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Monthly     int64    `json:"monthly"`
	Yearly      int64    `json:"yearly"`
	Currency    string   `json:"currency"`
	Features    []string `json:"features"`
	Popular     bool     `json:"popular,omitempty"`
	Target      string   `json:"target"`
	MaxAnalyses int      `json:"maxAnalyses"`
	MaxUsers    int      `json:"maxUsers"`
}

type ListTiersResponse struct {
	Tiers []PricingTier `json:"tiers"`
}

type ResolvePriceResponse struct {
	TierId       string `json:"tierId"`
	Country      string `json:"country"`
	Amount       int64  `json:"amount"`
	YearlyAmount int64  `json:"yearlyAmount"`
	Currency     string `json:"currency"`
}
