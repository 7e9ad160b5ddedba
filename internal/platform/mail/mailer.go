// Copyright (c) 2026 NextDash. All rights reserved.

/*
Package mail defines the outbound email contract consumed by the auth and
identity services.

Delivery itself is an external collaborator: the services only depend on the
[Mailer] interface and never on a concrete transport. The package ships a
structured-log implementation for development and test environments; a real
SMTP/provider implementation satisfies the same interface at deployment time.
*/
package mail

import (
	"context"
	"log/slog"
)

// Mailer delivers a single email message.
type Mailer interface {
	// Send delivers an email with both HTML and plain-text bodies.
	//
	// # Returns
	//   - error: Delivery or transport failures
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// LogMailer is a development [Mailer] that writes messages to the structured
// log instead of delivering them.
//
// # Security
//
// Bodies are NOT logged: reset and verification links embed live secrets, so
// only the recipient and subject reach the log stream.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer constructs a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send implements [Mailer] by logging the message envelope.
func (m *LogMailer) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	m.logger.InfoContext(ctx, "email_delivery_skipped",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.Int("html_bytes", len(htmlBody)),
		slog.Int("text_bytes", len(textBody)),
	)
	return nil
}
