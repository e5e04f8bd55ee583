// Package mail delivers report emails over SMTP.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dreschagin/monitoring-reports/internal/application/port"
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	// From is the envelope sender (MAIL FROM), a bare mailbox address.
	From string
	// FromName is an optional display name for the From header.
	FromName string
	// StartTLS upgrades the connection when the server offers it.
	StartTLS bool
	Timeout  time.Duration
}

// SMTPMailer реализует port.Mailer
type SMTPMailer struct {
	config Config
	auth   smtp.Auth
	now    func() time.Time
}

func NewSMTPMailer(config Config) *SMTPMailer {
	var auth smtp.Auth
	if config.User != "" && config.Password != "" {
		auth = smtp.PlainAuth("", config.User, config.Password, config.Host)
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &SMTPMailer{
		config: config,
		auth:   auth,
		now:    time.Now,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg port.MailMessage) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients")
	}

	body, err := m.buildMessage(msg)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(m.config.Host, m.config.Port)
	dialer := &net.Dialer{Timeout: m.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(m.now().Add(m.config.Timeout))
	}

	c, err := smtp.NewClient(conn, m.config.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer func() { _ = c.Close() }()

	if m.config.StartTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: m.config.Host}); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}

	if m.auth != nil {
		if err := c.Auth(m.auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(m.config.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range msg.To {
		if err := c.Rcpt(sanitizeHeader(rcpt)); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return c.Quit()
}

// buildMessage собирает multipart/mixed письмо с HTML телом и вложениями
func (m *SMTPMailer) buildMessage(msg port.MailMessage) ([]byte, error) {
	fromHeader := m.config.From
	if strings.TrimSpace(m.config.FromName) != "" {
		fromHeader = (&mailAddress{name: m.config.FromName, addr: m.config.From}).String()
	}

	to := make([]string, 0, len(msg.To))
	for _, rcpt := range msg.To {
		to = append(to, sanitizeHeader(rcpt))
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	headers := []string{
		"From: " + sanitizeHeader(fromHeader),
		"To: " + strings.Join(to, ", "),
		"Subject: " + mime.QEncoding.Encode("utf-8", sanitizeHeader(msg.Subject)),
		"Date: " + m.now().Format(time.RFC1123Z),
		"Message-ID: <" + uuid.NewString() + "@" + messageDomain(m.config.From) + ">",
		"MIME-Version: 1.0",
		"Content-Type: multipart/mixed; boundary=" + mw.Boundary(),
		"",
		"",
	}
	head := strings.Join(headers, "\r\n")

	htmlPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=UTF-8"},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, fmt.Errorf("create html part: %w", err)
	}
	if err := writeBase64(htmlPart, []byte(msg.HTMLBody)); err != nil {
		return nil, err
	}

	for _, att := range msg.Attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		filename := sanitizeHeader(att.Filename)

		header := textproto.MIMEHeader{
			"Content-Type":              {mime.FormatMediaType(contentType, map[string]string{"name": filename})},
			"Content-Transfer-Encoding": {"base64"},
		}
		if att.ContentID != "" {
			header.Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": filename}))
			header.Set("Content-ID", "<"+sanitizeHeader(att.ContentID)+">")
		} else {
			header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
		}

		part, err := mw.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("create attachment part: %w", err)
		}
		if err := writeBase64(part, att.Data); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	return append([]byte(head), buf.Bytes()...), nil
}

// writeBase64 пишет данные строками по 76 символов (RFC 2045)
func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		if _, err := w.Write([]byte(encoded[:76] + "\r\n")); err != nil {
			return fmt.Errorf("write part: %w", err)
		}
		encoded = encoded[76:]
	}
	if _, err := w.Write([]byte(encoded + "\r\n")); err != nil {
		return fmt.Errorf("write part: %w", err)
	}
	return nil
}

type mailAddress struct {
	name string
	addr string
}

func (a *mailAddress) String() string {
	return mime.QEncoding.Encode("utf-8", a.name) + " <" + a.addr + ">"
}

func messageDomain(from string) string {
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		return sanitizeHeader(from[at+1:])
	}
	return "localhost"
}

func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}
