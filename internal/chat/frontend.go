// Package chat provides a unified interface for chat frontends (Telegram, WhatsApp).
package chat

import (
	"context"
	"errors"
)

var (
	// ErrCannotDelete is returned when the bot lacks the rights to delete a message.
	ErrCannotDelete = errors.New("message cannot be deleted")
	// ErrUnsupported is returned for operations a frontend does not offer.
	ErrUnsupported = errors.New("operation not supported by frontend")
)

// Message represents a normalized chat message from any frontend
type Message struct {
	ID             string
	ChatID         string
	SenderID       string
	SenderName     string // Display name.
	SenderUsername string // Handle without "@", may be empty.
	Text           string
	IsGroup        bool
	BotUsername    string // Handle of the receiving bot, empty where the network has none.
	Raw            any // underlying library message struct
}

// Mention returns the handle used to attribute a message in replies.
func (m *Message) Mention() string {
	if m.SenderUsername != "" {
		return m.SenderUsername
	}
	if m.SenderName != "" {
		return m.SenderName
	}
	return m.SenderID
}

// InlineQuery is a search typed by a user in inline mode.
type InlineQuery struct {
	ID             string
	SenderID       string
	SenderUsername string
	Text           string
}

// InlineResult is one card offered as an answer to an inline query.
type InlineResult struct {
	ID           string
	Title        string
	Description  string
	ThumbnailURL string
	Text         string // Message sent when the card is picked.
}

// ReplyOptions controls how a reply is rendered.
type ReplyOptions struct {
	RichFormat    bool // Text is HTML.
	QuoteOriginal bool // Reply threads to the original message.
}

// Handlers receives inbound updates from a frontend.
type Handlers struct {
	OnMessage     func(ctx context.Context, msg *Message)
	OnInlineQuery func(ctx context.Context, query *InlineQuery)
}

// Frontend defines the unified interface for all chat integrations
type Frontend interface {
	// Name identifies the frontend in logs and metrics
	Name() string

	// Start initializes the chat frontend
	Start(ctx context.Context) error

	// Listen blocks, dispatching updates to handlers until ctx is done
	Listen(ctx context.Context, handlers Handlers) error

	// RichFormat reports whether replies may use HTML markup
	RichFormat() bool

	// Reply sends text to the chat of origin and returns the new message ID
	Reply(ctx context.Context, origin *Message, text string, opts ReplyOptions) (string, error)

	// DeleteMessage deletes origin; ErrCannotDelete signals missing rights
	DeleteMessage(ctx context.Context, origin *Message) error

	// AnswerInlineQuery answers an inline query; ErrUnsupported if inline mode is unavailable
	AnswerInlineQuery(ctx context.Context, query *InlineQuery, results []InlineResult) error
}
