package notify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"net/smtp"

	"task-reminder/internal/config"
	"task-reminder/internal/model"
)

// SMTPSender delivers email batches over SMTP.
type SMTPSender struct {
	config   config.SMTPConfig
	renderer Renderer
	auth     smtp.Auth
	// sendMail is smtp.SendMail; replaced in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg config.SMTPConfig, renderer Renderer) *SMTPSender {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPSender{
		config:   cfg,
		renderer: renderer,
		auth:     auth,
		sendMail: smtp.SendMail,
	}
}

func (s *SMTPSender) Channel() model.Channel {
	return model.ChannelEmail
}

func (s *SMTPSender) Address(p model.Profile) string {
	return p.Email
}

// Send renders the batch and hands one message to the SMTP server.
func (s *SMTPSender) Send(ctx context.Context, b Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, text, html, err := s.renderer.Email(b)
	if err != nil {
		return err
	}

	message := buildMIMEMessage(s.config.FromEmail, s.config.FromName, b.Recipient.Address, subject, text, html, generateBoundary())

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	if err := s.sendMail(addr, s.auth, s.config.FromEmail, []string{b.Recipient.Address}, message); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// generateBoundary generates a random boundary for MIME messages
func generateBoundary() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// buildMIMEMessage builds a MIME email message with both text and HTML parts.
// Header text is RFC 2047 encoded, so line breaks in it cannot start new
// headers.
func buildMIMEMessage(from, fromName, to, subject, textBody, htmlBody, boundary string) []byte {
	fromName = mime.QEncoding.Encode("utf-8", fromName)
	subject = mime.QEncoding.Encode("utf-8", subject)

	message := fmt.Sprintf("From: %s <%s>\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: multipart/alternative; boundary=\"%s\"\r\n"+
		"\r\n"+
		"--%s\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n"+
		"Content-Transfer-Encoding: 8bit\r\n"+
		"\r\n"+
		"%s\r\n"+
		"--%s\r\n"+
		"Content-Type: text/html; charset=UTF-8\r\n"+
		"Content-Transfer-Encoding: 8bit\r\n"+
		"\r\n"+
		"%s\r\n"+
		"--%s--\r\n",
		fromName, from, to, subject, boundary, boundary, textBody, boundary, htmlBody, boundary)

	return []byte(message)
}
