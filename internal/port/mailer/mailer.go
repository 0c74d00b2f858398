// Package mailer defines the outgoing mail port.
package mailer

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when the mailer has no relay configured.
var ErrNotConfigured = errors.New("mailer: not configured")

// Part is a file carried by a message.
type Part struct {
	Filename    string
	ContentType string
	Data        []byte
	// ContentID makes the part addressable from the HTML body as cid:<ContentID>.
	ContentID string
}

// Message is one HTML email with inline images and attachments.
type Message struct {
	To          []string
	Cc          []string
	Subject     string
	HTML        string
	Inline      []Part
	Attachments []Part
}

// Mailer is the port interface for sending mail.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
