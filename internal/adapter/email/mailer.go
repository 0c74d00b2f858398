// Package email implements the mailer port over SMTP.
package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/Strob0t/AgentShift/internal/port/mailer"
)

// SMTPConfig holds the configuration for SMTP connections.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends HTML digests via SMTP.
type Mailer struct {
	cfg      SMTPConfig
	password func() string
	send     sendFunc
	now      func() time.Time
}

var _ mailer.Mailer = (*Mailer)(nil)

// NewMailer creates a new SMTP mailer.
func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail, now: time.Now}
}

// SetPasswordSource makes every send read the SMTP password from fn. An
// empty result falls back to SMTPConfig.Password.
func (m *Mailer) SetPasswordSource(fn func() string) {
	m.password = fn
}

func (m *Mailer) secret() string {
	if m.password != nil {
		if p := m.password(); p != "" {
			return p
		}
	}
	return m.cfg.Password
}

// Send composes msg as MIME and relays it to every To and Cc recipient.
func (m *Mailer) Send(ctx context.Context, msg mailer.Message) error {
	if m.cfg.Host == "" || m.cfg.From == "" {
		return mailer.ErrNotConfigured
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("send %q: no recipients", msg.Subject)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := Compose(m.cfg.From, msg, m.now())
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if password := m.secret(); password != "" {
		user := m.cfg.Username
		if user == "" {
			user = m.cfg.From
		}
		auth = smtp.PlainAuth("", user, password, m.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	rcpt := append(append([]string{}, msg.To...), msg.Cc...)
	if err := m.send(addr, auth, m.cfg.From, rcpt, raw); err != nil {
		return fmt.Errorf("smtp send to %s: %w", strings.Join(msg.To, ", "), err)
	}
	return nil
}

// Compose renders msg as multipart/mixed with a multipart/related body
// holding the HTML part and its inline images, followed by attachments.
func Compose(from string, msg mailer.Message, date time.Time) ([]byte, error) {
	var buf bytes.Buffer
	mixed := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(msg.To, ", "))
	if len(msg.Cc) > 0 {
		fmt.Fprintf(&buf, "Cc: %s\r\n", strings.Join(msg.Cc, ", "))
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", date.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixed.Boundary())

	var related bytes.Buffer
	rel := multipart.NewWriter(&related)
	if err := writeHTML(rel, msg.HTML); err != nil {
		return nil, err
	}
	for _, p := range msg.Inline {
		if err := writePart(rel, p, "inline"); err != nil {
			return nil, err
		}
	}
	if err := rel.Close(); err != nil {
		return nil, fmt.Errorf("close related part: %w", err)
	}

	relHeader := textproto.MIMEHeader{}
	relHeader.Set("Content-Type", fmt.Sprintf("multipart/related; boundary=%q", rel.Boundary()))
	w, err := mixed.CreatePart(relHeader)
	if err != nil {
		return nil, fmt.Errorf("create related part: %w", err)
	}
	if _, err := w.Write(related.Bytes()); err != nil {
		return nil, fmt.Errorf("write related part: %w", err)
	}

	for _, p := range msg.Attachments {
		if err := writePart(mixed, p, "attachment"); err != nil {
			return nil, err
		}
	}
	if err := mixed.Close(); err != nil {
		return nil, fmt.Errorf("close message: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHTML(mw *multipart.Writer, html string) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", "text/html; charset=UTF-8")
	h.Set("Content-Transfer-Encoding", "base64")
	w, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create html part: %w", err)
	}
	return writeBase64(w, []byte(html))
}

func writePart(mw *multipart.Writer, p mailer.Part, disposition string) error {
	ct := p.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", mime.FormatMediaType(ct, map[string]string{"name": p.Filename}))
	h.Set("Content-Transfer-Encoding", "base64")
	h.Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": p.Filename}))
	if p.ContentID != "" {
		h.Set("Content-ID", "<"+p.ContentID+">")
	}
	w, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part %s: %w", p.Filename, err)
	}
	return writeBase64(w, p.Data)
}

// writeBase64 writes data base64-encoded in 76-character lines.
func writeBase64(w io.Writer, data []byte) error {
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 76 {
		if _, err := io.WriteString(w, enc[:76]+"\r\n"); err != nil {
			return err
		}
		enc = enc[76:]
	}
	_, err := io.WriteString(w, enc+"\r\n")
	return err
}
