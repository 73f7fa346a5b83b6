// Package mailer delivers contact-form submissions by email over SMTP.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"
)

// Submission is a validated contact-form entry.
type Submission struct {
	// Name is the sender's display name.
	Name string
	// Email is the sender's reply address.
	Email string
	// Message is the body of the enquiry.
	Message string
}

// Validate checks that the submission carries everything a delivery needs.
func (s *Submission) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("mailer: name is required")
	}
	if strings.TrimSpace(s.Message) == "" {
		return fmt.Errorf("mailer: message is required")
	}
	if _, err := mail.ParseAddress(s.Email); err != nil {
		return fmt.Errorf("mailer: invalid email address %q: %w", s.Email, err)
	}
	return nil
}

// Mailer delivers contact-form submissions. Implementations must be safe for
// concurrent use.
type Mailer interface {
	// Send delivers the submission. The context bounds the whole delivery
	// including the SMTP dial.
	Send(ctx context.Context, sub *Submission) error
}

// Config holds the settings for constructing an SMTPMailer.
type Config struct {
	// Host is the SMTP server hostname.
	Host string
	// Port is the SMTP server port (e.g. 587).
	Port int
	// Username authenticates against the SMTP server. Empty disables auth.
	Username string
	// Password is the SMTP credential.
	Password string
	// From is the envelope sender address.
	From string
	// To is the address contact-form submissions are delivered to.
	To string
	// DialTimeout bounds the TCP connection attempt. Zero means 10s.
	DialTimeout time.Duration
}

// Validate checks that the config carries everything Send needs. Error
// messages name the environment variable an operator would set.
func (cfg *Config) Validate() error {
	if cfg.Host == "" {
		return fmt.Errorf("mailer: SMTP_HOST is required")
	}
	if cfg.Port <= 0 {
		return fmt.Errorf("mailer: SMTP_PORT is required")
	}
	if _, err := mail.ParseAddress(cfg.From); err != nil {
		return fmt.Errorf("mailer: CONTACT_FROM is not a valid address: %w", err)
	}
	if _, err := mail.ParseAddress(cfg.To); err != nil {
		return fmt.Errorf("mailer: CONTACT_TO is not a valid address: %w", err)
	}
	return nil
}

// SMTPMailer is a Mailer backed by a plain SMTP server with optional
// PLAIN auth and opportunistic STARTTLS.
type SMTPMailer struct {
	cfg Config
}

// NewSMTPMailer constructs an SMTPMailer after validating the config.
func NewSMTPMailer(cfg *Config) (*SMTPMailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := *cfg
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	return &SMTPMailer{cfg: c}, nil
}

// Send delivers the submission to the configured recipient. The ctx deadline
// applies to the whole SMTP conversation, not just the dial.
func (m *SMTPMailer) Send(ctx context.Context, sub *Submission) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	dialer := &net.Dialer{Timeout: m.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("mailer: dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("mailer: smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return fmt.Errorf("mailer: starttls: %w", err)
		}
	}

	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("mailer: auth: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("mailer: mail from: %w", err)
	}
	if err := client.Rcpt(m.cfg.To); err != nil {
		return fmt.Errorf("mailer: rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("mailer: data: %w", err)
	}
	if _, err := w.Write(composeMessage(m.cfg.From, m.cfg.To, sub)); err != nil {
		return fmt.Errorf("mailer: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mailer: close body: %w", err)
	}

	if err := client.Quit(); err != nil {
		return fmt.Errorf("mailer: quit: %w", err)
	}
	return nil
}

// composeMessage renders the RFC 5322 message for a submission. The visitor's
// address goes into Reply-To so a plain reply reaches them.
func composeMessage(from, to string, sub *Submission) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Reply-To: %s\r\n", sub.Email)
	fmt.Fprintf(&b, "Subject: Contact form: %s\r\n", sanitizeHeader(sub.Name))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Name: %s\r\nEmail: %s\r\n\r\n%s\r\n", sub.Name, sub.Email, sub.Message)
	return []byte(b.String())
}

// sanitizeHeader strips CR/LF so form input cannot inject extra headers.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
