package core

import "net/mail"

type (
	EmailMessage struct {
		To          []mail.Address
		Subject     string
		TextContent string
		HTMLContent string
	}

	// EmailService sends messages asynchronously; failures are logged,
	// never surfaced to the request that queued the mail.
	EmailService interface {
		SendMessages(messages ...*EmailMessage)
	}
)

func (msg EmailMessage) HasRecipients() bool { return len(msg.To) > 0 }

func (msg EmailMessage) HasContent() bool {
	return msg.TextContent != "" || msg.HTMLContent != ""
}
