// Package bot turns incoming chat messages into answered questions. It
// defines the narrow contract a chat platform must provide (post a
// message, update it later) and a dispatcher that acknowledges each
// question immediately and delivers the answer asynchronously by editing
// the acknowledgment.
package bot

import "context"

// MessageRef identifies a posted message so it can be updated later.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// Messenger is the chat-platform surface the bot depends on. The HTTP
// API's message store implements it; a real platform connector would too.
type Messenger interface {
	// PostMessage posts text to a channel and returns a reference to the
	// new message.
	PostMessage(ctx context.Context, channelID, text string) (MessageRef, error)

	// UpdateMessage replaces the text of a previously posted message.
	UpdateMessage(ctx context.Context, ref MessageRef, text string) error
}
