// Package whatsapp provides WhatsApp client integration using whatsmeow library.
package whatsapp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	// SQLite driver for whatsmeow session storage
	_ "github.com/mattn/go-sqlite3"
	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"odeslibot/internal/chat"
	"odeslibot/internal/flood"
)

var errDisabled = errors.New("whatsapp frontend is disabled")

// Config holds WhatsApp-specific configuration
type Config struct {
	DeviceName          string
	SessionPath         string
	Enabled             bool
	FloodLimitPerMinute int
}

// Frontend implements the chat.Frontend interface for WhatsApp.
// WhatsApp has no markup for links, so replies are plain text.
type Frontend struct {
	config    *Config
	logger    *zap.Logger
	client    *whatsmeow.Client
	container *sqlstore.Container
	floodgate *flood.Limiter

	// mu guards handlers and ctx, which Listen sets after events start arriving.
	mu       sync.RWMutex
	handlers chat.Handlers
	ctx      context.Context
	inflight sync.WaitGroup
}

// NewFrontend creates a new WhatsApp frontend
func NewFrontend(config *Config, logger *zap.Logger) *Frontend {
	return &Frontend{
		config:    config,
		logger:    logger,
		floodgate: flood.New(config.FloodLimitPerMinute),
		ctx:       context.Background(),
	}
}

// Name identifies the frontend in logs and metrics.
func (f *Frontend) Name() string { return "whatsapp" }

// RichFormat reports that replies are plain text.
func (f *Frontend) RichFormat() bool { return false }

// Start opens the session store and connects, showing a QR code on first login
func (f *Frontend) Start(ctx context.Context) error {
	if !f.config.Enabled {
		f.logger.Info("WhatsApp frontend is disabled, skipping initialization")
		return nil
	}

	f.logger.Info("Starting WhatsApp frontend", zap.String("session_path", f.config.SessionPath))

	if err := f.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to init database: %w", err)
	}

	if err := f.initClient(ctx); err != nil {
		return fmt.Errorf("failed to init client: %w", err)
	}

	f.client.AddEventHandler(f.handleEvent)

	if f.client.Store.ID != nil {
		if err := f.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		f.logger.Info("WhatsApp frontend started successfully")
		return nil
	}

	qrChan, err := f.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get QR channel: %w", err)
	}
	if err := f.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	for evt := range qrChan {
		if evt.Event == whatsmeow.QRChannelEventCode {
			f.logger.Info("QR code received, please scan with your phone")
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
			continue
		}
		f.logger.Info("Login event", zap.String("event", evt.Event))
	}

	f.logger.Info("WhatsApp frontend started successfully")
	return nil
}

// Listen delivers messages to handlers until ctx is done
func (f *Frontend) Listen(ctx context.Context, handlers chat.Handlers) error {
	if !f.config.Enabled {
		return nil
	}

	f.setHandlers(ctx, handlers)

	<-ctx.Done()

	f.setHandlers(context.Background(), chat.Handlers{})
	f.inflight.Wait()

	return f.stop()
}

// Reply sends plain text to the chat of origin, quoting it when asked
func (f *Frontend) Reply(ctx context.Context, origin *chat.Message, text string, opts chat.ReplyOptions) (string, error) {
	if !f.config.Enabled {
		return "", errDisabled
	}

	jid, err := types.ParseJID(origin.ChatID)
	if err != nil {
		return "", fmt.Errorf("invalid chat JID: %w", err)
	}

	resp, err := f.client.SendMessage(ctx, jid, buildReply(origin, text, opts.QuoteOriginal))
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	return resp.ID, nil
}

// DeleteMessage revokes the original message for everyone. This only works
// when the bot account is a group admin.
func (f *Frontend) DeleteMessage(ctx context.Context, origin *chat.Message) error {
	if !f.config.Enabled {
		return errDisabled
	}

	chatJID, err := types.ParseJID(origin.ChatID)
	if err != nil {
		return fmt.Errorf("invalid chat JID: %w", err)
	}
	senderJID, err := types.ParseJID(origin.SenderID)
	if err != nil {
		return fmt.Errorf("invalid sender JID: %w", err)
	}

	revoke := f.client.BuildRevoke(chatJID, senderJID, origin.ID)
	if _, err := f.client.SendMessage(ctx, chatJID, revoke); err != nil {
		return fmt.Errorf("%w: %w", chat.ErrCannotDelete, err)
	}
	return nil
}

// AnswerInlineQuery is not available on WhatsApp.
func (f *Frontend) AnswerInlineQuery(context.Context, *chat.InlineQuery, []chat.InlineResult) error {
	return chat.ErrUnsupported
}

// handleEvent processes incoming WhatsApp events
func (f *Frontend) handleEvent(evt any) {
	switch v := evt.(type) {
	case *events.Message:
		f.handleMessageEvent(v)
	case *events.Connected:
		f.logger.Info("Connected to WhatsApp")
	case *events.LoggedOut:
		f.logger.Warn("Logged out from WhatsApp, delete the session to pair again",
			zap.String("session_path", f.config.SessionPath))
	case *events.KeepAliveTimeout:
		f.logger.Warn("Received KeepAlive timeout, reconnecting...")
	case *events.KeepAliveRestored:
		f.logger.Info("Connection restored after timeout")
	}
}

func (f *Frontend) setHandlers(ctx context.Context, handlers chat.Handlers) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.handlers = handlers
	f.ctx = ctx
}

// handleMessageEvent runs each message on its own goroutine; whatsmeow
// delivers events one at a time.
func (f *Frontend) handleMessageEvent(evt *events.Message) {
	msg := toChatMessage(evt)
	if msg == nil {
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.handlers.OnMessage == nil {
		return
	}

	if !f.floodgate.Allow(msg.ChatID, msg.SenderID) {
		f.logger.Debug("Flood limit reached, ignoring message",
			zap.String("chat_id", msg.ChatID),
			zap.String("user_id", msg.SenderID))
		return
	}

	onMessage, ctx := f.handlers.OnMessage, f.ctx
	f.inflight.Add(1)
	go func() {
		defer f.inflight.Done()
		onMessage(ctx, msg)
	}()
}

// toChatMessage converts an incoming event, returning nil for events the bot ignores.
func toChatMessage(evt *events.Message) *chat.Message {
	if evt.Message == nil || evt.Info.IsFromMe {
		return nil
	}

	text := extractMessageText(evt.Message)
	if text == "" {
		return nil
	}

	return &chat.Message{
		ID:         evt.Info.ID,
		ChatID:     evt.Info.Chat.String(),
		SenderID:   evt.Info.Sender.ToNonAD().String(),
		SenderName: evt.Info.PushName,
		Text:       text,
		IsGroup:    evt.Info.Chat.Server == types.GroupServer,
		Raw:        evt,
	}
}

// buildReply creates a text message, quoting origin when quote is set.
func buildReply(origin *chat.Message, text string, quote bool) *waE2E.Message {
	if !quote {
		return &waE2E.Message{Conversation: proto.String(text)}
	}

	info := &waE2E.ContextInfo{
		StanzaID:    proto.String(origin.ID),
		Participant: proto.String(origin.SenderID),
	}
	if evt, ok := origin.Raw.(*events.Message); ok {
		info.QuotedMessage = evt.Message
	}

	return &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text:        proto.String(text),
			ContextInfo: info,
		},
	}
}

// stop closes the WhatsApp client connection
func (f *Frontend) stop() error {
	f.logger.Info("Stopping WhatsApp frontend")

	if f.client != nil {
		f.client.Disconnect()
	}

	if f.container != nil {
		if err := f.container.Close(); err != nil {
			return fmt.Errorf("failed to close session store: %w", err)
		}
	}

	return nil
}

// initDatabase initializes the SQLite database for session storage
func (f *Frontend) initDatabase(ctx context.Context) error {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", f.config.SessionPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return err
	}

	container := sqlstore.NewWithDB(db, "sqlite3", nil)
	if err := container.Upgrade(ctx); err != nil {
		return err
	}
	f.container = container
	return nil
}

// initClient initializes the WhatsApp client
func (f *Frontend) initClient(ctx context.Context) error {
	deviceStore, err := f.container.GetFirstDevice(ctx)
	if err != nil {
		return err
	}

	f.client = whatsmeow.NewClient(deviceStore, nil)
	return nil
}

// extractMessageText extracts text content from various WhatsApp message types
func extractMessageText(msg *waE2E.Message) string {
	switch {
	case msg.GetConversation() != "":
		return msg.GetConversation()
	case msg.GetExtendedTextMessage().GetText() != "":
		return msg.GetExtendedTextMessage().GetText()
	case msg.GetImageMessage().GetCaption() != "":
		return msg.GetImageMessage().GetCaption()
	case msg.GetVideoMessage().GetCaption() != "":
		return msg.GetVideoMessage().GetCaption()
	default:
		return msg.GetDocumentMessage().GetCaption()
	}
}
