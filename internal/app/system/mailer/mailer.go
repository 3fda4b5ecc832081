// internal/app/system/mailer/mailer.go
package mailer

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Email is a single outgoing message with text and HTML alternatives.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string // empty disables AUTH
	Password string
	From     string
	FromName string
}

// Mailer sends Email over SMTP.
type Mailer struct {
	cfg  Config
	log  *zap.Logger
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a Mailer. It does not dial until Send.
func New(cfg Config, log *zap.Logger) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Mailer{cfg: cfg, log: log, send: smtp.SendMail}
}

// Send delivers e to a single recipient.
func (m *Mailer) Send(e Email) error {
	if e.To == "" {
		return errors.New("mailer: empty recipient")
	}
	if m.cfg.Host == "" || m.cfg.From == "" {
		return errors.New("mailer: smtp host and from address are required")
	}

	msg, err := buildMessage(m.cfg, e, time.Now())
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, auth, m.cfg.From, []string{e.To}, msg); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	m.log.Debug("email sent", zap.String("to", e.To), zap.String("subject", e.Subject))
	return nil
}

func buildMessage(cfg Config, e Email, now time.Time) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct {
		ctype   string
		content string
	}{
		{"text/plain; charset=UTF-8", e.TextBody},
		{"text/html; charset=UTF-8", e.HTMLBody},
	}
	for _, p := range parts {
		if p.content == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.ctype},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(p.content)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	from := (&mail.Address{Name: cfg.FromName, Address: cfg.From}).String()
	var msg bytes.Buffer
	headers := []string{
		"From: " + from,
		"To: " + e.To,
		"Subject: " + mimeHeader(e.Subject),
		"Date: " + now.Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=" + mw.Boundary(),
	}
	msg.WriteString(strings.Join(headers, "\r\n"))
	msg.WriteString("\r\n\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

func mimeHeader(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.QEncoding.Encode("UTF-8", s)
		}
	}
	return s
}
