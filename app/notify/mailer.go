package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/wildventure-hub/ms-go-checkout/config"
)

// Mailer sends transactional mail over plain SMTP. Delivery retries and
// scheduling live in the checkout service; the mailer only formats and sends.
type Mailer struct {
	cfg      config.SMTPConfig
	tmpl     *template.Template
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

type PaymentConfirmationData struct {
	Name         string
	TierName     string
	BillingCycle string
	Amount       string
	Currency     string
	Reference    string
	DashboardURL string
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{
		cfg:      cfg,
		tmpl:     template.Must(template.New("payment_confirmation").Parse(paymentConfirmationTemplate)),
		sendMail: smtp.SendMail,
	}
}

func (m *Mailer) SendPaymentConfirmation(to string, data PaymentConfirmationData) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("smtp host is not configured")
	}

	var body bytes.Buffer
	if err := m.tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	message := fmt.Sprintf("From: WildVenture Hub <%s>\r\n"+
		"To: %s\r\n"+
		"Subject: Payment confirmed - Welcome aboard!\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=UTF-8\r\n"+
		"\r\n"+
		"%s", m.cfg.From, to, body.String())

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)

	if err := m.sendMail(addr, auth, m.cfg.From, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

const paymentConfirmationTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Payment Confirmed</title>
</head>
<body>
    <p>Hi {{.Name}},</p>
    <p>Your payment for the <strong>{{.TierName}}</strong> plan ({{.BillingCycle}}) was received.</p>
    <p>Amount: {{.Amount}} {{.Currency}}<br>
    Reference: {{.Reference}}</p>
    <p><a href="{{.DashboardURL}}">Open your dashboard</a> to start exploring.</p>
    <p>Thank you for supporting wildlife conservation.</p>
</body>
</html>
`
