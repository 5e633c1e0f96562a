package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"autograde-backend/internal/domain"
	"autograde-backend/internal/logger"
)

// sendClient is the part of the SendGrid client the mailer uses.
type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type sendGridMailer struct {
	client    sendClient
	fromEmail string
	fromName  string
}

// NewSendGridMailer sends appraisal reports through SendGrid.
func NewSendGridMailer(apiKey, fromEmail, fromName string) ReportMailer {
	return &sendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (m *sendGridMailer) SendReport(ctx context.Context, rec *domain.AppraisalRecord) error {
	to := rec.State.Customer.Email
	if to == "" {
		return nil
	}
	htmlBody, err := renderReportHTML(rec)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	from := mail.NewEmail(m.fromName, m.fromEmail)
	recipient := mail.NewEmail(rec.State.Customer.Name, to)
	message := mail.NewSingleEmail(from, reportSubject(rec), recipient, renderReportText(rec), htmlBody)

	started := time.Now()
	logger.ExternalServiceCall("sendgrid", "Send", "appraisalID", rec.ID)
	response, err := m.client.SendWithContext(ctx, message)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "Send", started, err, "appraisalID", rec.ID)
	if err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}
	return nil
}

type logMailer struct{}

// NewLogMailer only logs reports. Used when no SendGrid key is configured.
func NewLogMailer() ReportMailer {
	return logMailer{}
}

func (logMailer) SendReport(ctx context.Context, rec *domain.AppraisalRecord) error {
	logger.Info("Report email skipped, mail not configured", "appraisalID", rec.ID, "to", rec.State.Customer.Email)
	return nil
}
