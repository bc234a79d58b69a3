package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/eventide/backend/internal/models"
)

// Attachment is a file sent along with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outgoing e-mail.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer logs messages instead of sending them. Used when SMTP is not configured.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send implements Mailer.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}
	m.logger.Info("mail (not sent, smtp disabled)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Strings("attachments", names))
	return nil
}

// Confirmed composes the registration confirmation. pdf may be nil.
func Confirmed(to string, n models.Notification, pdf []byte) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", displayName(n))
	fmt.Fprintf(&b, "You are registered for %s.\n", n.EventTitle)
	if pdf != nil {
		b.WriteString("Your eTicket is attached. Show its QR code at the entrance.\n")
	} else {
		b.WriteString("Open the event page to display your ticket QR code at the entrance.\n")
	}
	b.WriteString("\nSee you there!\n")
	msg := Message{To: to, Subject: "You're registered: " + n.EventTitle, Body: b.String()}
	if pdf != nil {
		msg.Attachments = []Attachment{{
			Filename:    fmt.Sprintf("ticket-%s.pdf", n.EventID),
			ContentType: "application/pdf",
			Data:        pdf,
		}}
	}
	return msg
}

// Cancelled composes the cancellation notice.
func Cancelled(to string, n models.Notification) Message {
	body := fmt.Sprintf("Hi %s,\n\nYour registration for %s has been cancelled and your ticket is no longer valid.\n",
		displayName(n), n.EventTitle)
	return Message{To: to, Subject: "Registration cancelled: " + n.EventTitle, Body: body}
}

func displayName(n models.Notification) string {
	if strings.TrimSpace(n.UserName) != "" {
		return n.UserName
	}
	return "there"
}
