package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"enrollapi/internal/config"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
	IsHTML  bool
}

// Mailer sends portal mail (OTP codes, applicant notifications, admin
// compose). Delivery failures surface as errors; callers decide whether
// they are fatal.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type smtpMailer struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

// NewSMTP creates an SMTP-backed mailer.
func NewSMTP(cfg config.SMTPConfig, logger *zap.Logger) Mailer {
	return &smtpMailer{cfg: cfg, logger: logger}
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("recipient is required")
	}

	payload := BuildMessage(m.cfg.From, msg)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var err error
	if m.cfg.UseTLS {
		err = m.sendTLS(addr, msg.To, payload)
	} else {
		auth := m.auth()
		err = smtp.SendMail(addr, auth, m.cfg.From, []string{msg.To}, payload)
	}
	if err != nil {
		m.logger.Error("mail send failed",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return fmt.Errorf("send mail: %w", err)
	}

	m.logger.Info("mail sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

func (m *smtpMailer) auth() smtp.Auth {
	if m.cfg.Username == "" {
		return nil
	}
	return smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
}

// sendTLS dials an implicit-TLS SMTP endpoint (e.g. port 465); STARTTLS
// endpoints should be configured with SMTP_USE_TLS=false and rely on
// smtp.SendMail's own STARTTLS upgrade.
func (m *smtpMailer) sendTLS(addr, to string, payload []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return fmt.Errorf("tls dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if a := m.auth(); a != nil {
		if err := client.Auth(a); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return client.Quit()
}

// BuildMessage assembles the raw RFC 5322 payload.
func BuildMessage(from string, msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	if msg.IsHTML {
		b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	} else {
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}
