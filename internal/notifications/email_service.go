package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"fundi/internal/payments"
	"fundi/internal/shared/config"
)

// EmailService sends settlement-related email.
type EmailService interface {
	SendReceipt(ctx context.Context, to Recipient, event payments.SettlementEvent) error
	SendFailureNotice(ctx context.Context, to Recipient, event payments.SettlementEvent) error
	SendAlert(ctx context.Context, event payments.AlertEvent) error
}

const receiptTemplate = `
<html>
<body style="font-family: Arial, sans-serif;">
	<h2>Payment received</h2>
	<p>Hi {{.Name}},</p>
	<p>We have received your payment for booking <strong>{{.BookingRef}}</strong>.</p>
	<table>
		<tr><td>Amount</td><td><strong>{{.Currency}} {{.Amount}}</strong></td></tr>
		<tr><td>Reference</td><td>{{.Reference}}</td></tr>
		<tr><td>Method</td><td>{{.Method}}</td></tr>
	</table>
	<p>Thank you for using Fundi.</p>
</body>
</html>`

const failureTemplate = `
<html>
<body style="font-family: Arial, sans-serif;">
	<h2>Payment not completed</h2>
	<p>Hi {{.Name}},</p>
	<p>Your payment for booking <strong>{{.BookingRef}}</strong> was not completed.</p>
	{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}
	<p>No money has been taken. You can retry the payment from your booking page.</p>
</body>
</html>`

const alertTemplate = `
<html>
<body style="font-family: Arial, sans-serif;">
	<h2>Settlement consistency alert</h2>
	<p>A payment was collected but the booking record could not be updated.</p>
	<table>
		<tr><td>Booking</td><td>{{.BookingID}}</td></tr>
		<tr><td>Reference</td><td>{{.Reference}}</td></tr>
		<tr><td>Amount</td><td>{{.Currency}} {{.Amount}}</td></tr>
		<tr><td>Method</td><td>{{.Method}}</td></tr>
		<tr><td>Error</td><td>{{.Error}}</td></tr>
	</table>
	<p>Manual reconciliation is required.</p>
</body>
</html>`

// SMTPEmailService sends mail over plain SMTP with STARTTLS negotiated by the
// server, which is what the usual transactional providers expect on port 587.
type SMTPEmailService struct {
	cfg       config.EmailConfig
	templates map[string]*template.Template
}

func NewSMTPEmailService(cfg config.EmailConfig) (*SMTPEmailService, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("from email is required")
	}

	templates := make(map[string]*template.Template)
	for name, body := range map[string]string{
		"receipt": receiptTemplate,
		"failure": failureTemplate,
		"alert":   alertTemplate,
	} {
		tmpl, err := template.New(name).Parse(body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		templates[name] = tmpl
	}

	return &SMTPEmailService{cfg: cfg, templates: templates}, nil
}

func (s *SMTPEmailService) SendReceipt(ctx context.Context, to Recipient, event payments.SettlementEvent) error {
	body, err := s.render("receipt", struct {
		Name string
		payments.SettlementEvent
	}{Name: to.Name, SettlementEvent: event})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Payment received for booking %s", event.BookingRef)
	return s.send(to.Email, subject, body)
}

func (s *SMTPEmailService) SendFailureNotice(ctx context.Context, to Recipient, event payments.SettlementEvent) error {
	body, err := s.render("failure", struct {
		Name string
		payments.SettlementEvent
	}{Name: to.Name, SettlementEvent: event})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Payment for booking %s was not completed", event.BookingRef)
	return s.send(to.Email, subject, body)
}

func (s *SMTPEmailService) SendAlert(ctx context.Context, event payments.AlertEvent) error {
	body, err := s.render("alert", event)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("ALERT: unrecorded payment %s for booking %s", event.Reference, event.BookingID)
	return s.send(s.cfg.OpsEmail, subject, body)
}

func (s *SMTPEmailService) render(name string, data interface{}) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", name, err)
	}
	return buf.String(), nil
}

func (s *SMTPEmailService) send(to, subject, htmlBody string) error {
	if to == "" {
		return fmt.Errorf("recipient address is empty")
	}

	msg := bytes.Buffer{}
	msg.WriteString("From: Fundi <" + s.cfg.FromEmail + ">\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.FromEmail, []string{to}, msg.Bytes()); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
