// Package mailer provides email sending with pluggable providers.
package mailer

import "context"

// Message represents an email message to be sent.
type Message struct {
	To       string
	Subject  string
	Text     string
	HTML     string
	FromName string // display name override for this message
}

// Sender is the interface for email providers. Implementations must be safe
// for concurrent use: independent delivery runs share one Sender.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
