package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"ze-club/logging"
	"ze-club/models"

	"github.com/resendlabs/resend-go"
	"go.uber.org/zap"
)

// Mailer sends the transactional mail around redemptions. Delivery is best-effort:
// callers log failures and never roll back on them.
type Mailer interface {
	SendRedemptionReceipt(ctx context.Context, req *models.RedemptionRequest) error
	SendRedemptionStatus(ctx context.Context, req *models.RedemptionRequest) error
}

// NoopMailer is used when no mail provider is configured.
type NoopMailer struct{}

func (NoopMailer) SendRedemptionReceipt(context.Context, *models.RedemptionRequest) error { return nil }
func (NoopMailer) SendRedemptionStatus(context.Context, *models.RedemptionRequest) error  { return nil }

var (
	receiptTmpl = template.Must(template.New("receipt").Parse(`<h2>Redemption received</h2>
<p>Hi {{.Req.ContactName}},</p>
<p>We got your request for <strong>{{.Req.RewardName}}</strong> ({{.Cost}}). Our team will reach out once it ships.</p>
<p>Reference: {{.Req.ID}}</p>`))

	statusTmpl = template.Must(template.New("status").Parse(`<h2>Redemption update</h2>
<p>Hi {{.Req.ContactName}},</p>
<p>Your request for <strong>{{.Req.RewardName}}</strong> is now <strong>{{.Req.Status}}</strong>.</p>
{{if .Req.AdminNotes}}<p>{{.Req.AdminNotes}}</p>{{end}}
<p>Reference: {{.Req.ID}}</p>`))
)

type mailData struct {
	Req  *models.RedemptionRequest
	Cost string
}

// ResendMailer delivers through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
	log    *zap.Logger
}

func NewResendMailer(apiKey, from string, log *zap.Logger) (*ResendMailer, error) {
	client := resend.NewClient(apiKey)
	if client == nil {
		return nil, fmt.Errorf("failed to create Resend client")
	}
	return &ResendMailer{client: client, from: from, log: log}, nil
}

func (m *ResendMailer) SendRedemptionReceipt(ctx context.Context, req *models.RedemptionRequest) error {
	return m.send(ctx, req.ContactEmail, "Your ZE Club redemption: "+req.RewardName, receiptTmpl, req)
}

func (m *ResendMailer) SendRedemptionStatus(ctx context.Context, req *models.RedemptionRequest) error {
	return m.send(ctx, req.ContactEmail, fmt.Sprintf("Redemption %s: %s", req.Status, req.RewardName), statusTmpl, req)
}

func (m *ResendMailer) send(ctx context.Context, to, subject string, tmpl *template.Template, req *models.RedemptionRequest) error {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, mailData{Req: req, Cost: formatCoins(req.RewardCost)}); err != nil {
		return fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}

	log := logging.FromContext(ctx, m.log).With(zap.String("email_to", to), zap.String("email_subject", subject))
	res, err := m.client.Emails.Send(&resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Html:    body.String(),
	})
	if err != nil {
		log.Error("failed to send email", zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}
	log.Info("email sent", zap.String("email_id", res.Id))
	return nil
}
