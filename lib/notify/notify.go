// Package notify emails grade change summaries.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"skyward-backend/lib/assert"
	"skyward-backend/lib/gradestore"
	"skyward-backend/lib/telemetry"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("skyward/notify")

const report_mailer_send = "mailer.send"

type SmtpConfig struct {
	Server       string `json:"server" yaml:"server" env:"SKYWARD_SMTP_SERVER"`
	Port         int    `json:"port" yaml:"port" env:"SKYWARD_SMTP_PORT" env-default:"587"`
	EmailAddress string `json:"email_address" yaml:"email_address" env:"SKYWARD_SMTP_EMAIL"`
	Password     string `json:"password" yaml:"password" env:"SKYWARD_SMTP_PASSWORD"`
}

func (c SmtpConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Server, c.Port)
}

type sendFunc = func(mail *email.Email, addr string, auth smtp.Auth) error

func sendMail(mail *email.Email, addr string, auth smtp.Auth) error {
	return mail.Send(addr, auth)
}

type Mailer struct {
	config SmtpConfig
	to     []string
	send   sendFunc
	tel    telemetry.API
}

func NewMailer(config SmtpConfig, to []string, tel telemetry.API) Mailer {
	assert.NotNil(tel)
	assert.NotEmptyStr(config.Server)
	return Mailer{
		config: config,
		to:     to,
		send:   sendMail,
		tel:    telemetry.NewScopedAPI("notify", tel),
	}
}

// Message renders the plain text summary of changes, one line per change.
func (m Mailer) Message(user string, changes []gradestore.Change) *email.Email {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Skyward Grades <%s>", m.config.EmailAddress)
	mail.To = m.to

	noun := "changes"
	if len(changes) == 1 {
		noun = "change"
	}
	mail.Subject = fmt.Sprintf("%d grade %s for %s", len(changes), noun, user)

	var body strings.Builder
	fmt.Fprintf(&body, "The following grades changed for %s.\n\n", user)
	for _, c := range changes {
		body.WriteString(c.String())
		body.WriteString("\n")
	}
	mail.Text = []byte(body.String())
	return mail
}

// Notify emails the summary of changes, nothing is sent when there are no changes or no
// recipients.
func (m Mailer) Notify(ctx context.Context, user string, changes []gradestore.Change) error {
	if len(changes) == 0 || len(m.to) == 0 {
		return nil
	}

	_, span := tracer.Start(ctx, "Notify")
	defer span.End()
	span.SetAttributes(attribute.Int("changes", len(changes)))

	mail := m.Message(user, changes)
	err := m.send(
		mail,
		m.config.addr(),
		smtp.PlainAuth("", m.config.EmailAddress, m.config.Password, m.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = m.send(mail, m.config.addr(), nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		m.tel.ReportBroken(report_mailer_send, err, user)
		return err
	}
	return nil
}
