package email

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/AgentShift/internal/port/mailer"
)

func digest() mailer.Message {
	return mailer.Message{
		To:      []string{"jane@example.com"},
		Cc:      []string{"ops@example.com"},
		Subject: "AgentShift Daily Report: 2024-03-04",
		HTML:    `<p>Hello Jane,</p><img src="cid:2024-03-04">`,
		Inline: []mailer.Part{
			{Filename: "2024-03-04", ContentType: "image/png", Data: []byte("\x89PNG fake"), ContentID: "2024-03-04"},
		},
		Attachments: []mailer.Part{
			{Filename: "filtered_data_20240305085000.csv", ContentType: "text/csv", Data: []byte("Name,Actual Date\n")},
		},
	}
}

func TestCompose(t *testing.T) {
	raw, err := Compose("agentshift@example.com", digest(), time.Date(2024, 3, 5, 8, 50, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	m, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parse message: %v", err)
	}
	if got := m.Header.Get("Subject"); !strings.Contains(got, "Daily") {
		t.Errorf("subject header %q", got)
	}
	if got := m.Header.Get("Cc"); got != "ops@example.com" {
		t.Errorf("cc header %q", got)
	}

	mt, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	if err != nil || mt != "multipart/mixed" {
		t.Fatalf("content type %q: %v", mt, err)
	}

	mr := multipart.NewReader(m.Body, params["boundary"])
	var types []string
	var related *multipart.Part
	var relatedBody []byte
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next part: %v", err)
		}
		ct, _, _ := mime.ParseMediaType(p.Header.Get("Content-Type"))
		types = append(types, ct)
		if ct == "multipart/related" {
			related = p
			relatedBody, _ = io.ReadAll(p)
		}
		if ct == "text/csv" && !strings.HasPrefix(p.Header.Get("Content-Disposition"), "attachment") {
			t.Errorf("csv disposition %q", p.Header.Get("Content-Disposition"))
		}
	}
	if strings.Join(types, ",") != "multipart/related,text/csv" {
		t.Fatalf("top-level parts: %v", types)
	}

	_, relParams, _ := mime.ParseMediaType(related.Header.Get("Content-Type"))
	rr := multipart.NewReader(bytes.NewReader(relatedBody), relParams["boundary"])
	html, err := rr.NextPart()
	if err != nil {
		t.Fatalf("html part: %v", err)
	}
	if ct := html.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("first related part %q", ct)
	}
	img, err := rr.NextPart()
	if err != nil {
		t.Fatalf("image part: %v", err)
	}
	if cid := img.Header.Get("Content-ID"); cid != "<2024-03-04>" {
		t.Errorf("content id %q", cid)
	}
	if !strings.HasPrefix(img.Header.Get("Content-Disposition"), "inline") {
		t.Errorf("image disposition %q", img.Header.Get("Content-Disposition"))
	}
}

func TestWriteBase64Wraps(t *testing.T) {
	var buf bytes.Buffer
	if err := writeBase64(&buf, bytes.Repeat([]byte("x"), 200)); err != nil {
		t.Fatal(err)
	}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\r\n") {
		if len(line) > 76 {
			t.Fatalf("line longer than 76: %d", len(line))
		}
	}
}

func TestSend(t *testing.T) {
	var gotAddr string
	var gotRcpt []string
	m := NewMailer(SMTPConfig{Host: "smtp.example.com", Port: 25, From: "agentshift@example.com"})
	m.send = func(addr string, _ smtp.Auth, _ string, to []string, _ []byte) error {
		gotAddr, gotRcpt = addr, to
		return nil
	}

	if err := m.Send(context.Background(), digest()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAddr != "smtp.example.com:25" {
		t.Errorf("addr %q", gotAddr)
	}
	if strings.Join(gotRcpt, ",") != "jane@example.com,ops@example.com" {
		t.Errorf("recipients %v", gotRcpt)
	}
}

func TestSendPasswordSource(t *testing.T) {
	var gotAuth smtp.Auth
	m := NewMailer(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "agentshift@example.com"})
	m.send = func(_ string, a smtp.Auth, _ string, _ []string, _ []byte) error {
		gotAuth = a
		return nil
	}

	if err := m.Send(context.Background(), digest()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAuth != nil {
		t.Fatal("expected no auth without a password")
	}

	m.SetPasswordSource(func() string { return "rotated" })
	if err := m.Send(context.Background(), digest()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAuth == nil {
		t.Fatal("expected auth once a password is available")
	}
}

func TestSendNotConfigured(t *testing.T) {
	m := NewMailer(SMTPConfig{})
	if err := m.Send(context.Background(), digest()); !errors.Is(err, mailer.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}
