// Package telegram provides Telegram Bot API integration using go-telegram/bot library.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"odeslibot/internal/chat"
	"odeslibot/internal/flood"
)

const (
	chatTypeGroup      = "group"
	chatTypeSuperGroup = "supergroup"
	// inlineCacheSeconds is how long Telegram may reuse an inline answer.
	inlineCacheSeconds = 300
)

// Config holds Telegram-specific configuration
type Config struct {
	BotToken            string
	Enabled             bool
	FloodLimitPerMinute int
	// ServerURL overrides the Bot API endpoint, mostly for tests.
	ServerURL string
}

// Frontend implements the chat.Frontend interface for Telegram
type Frontend struct {
	config    *Config
	logger    *zap.Logger
	bot       *bot.Bot
	floodgate *flood.Limiter
	handlers  chat.Handlers
	username  string
}

// NewFrontend creates a new Telegram frontend
func NewFrontend(config *Config, logger *zap.Logger) *Frontend {
	return &Frontend{
		config:    config,
		logger:    logger,
		floodgate: flood.New(config.FloodLimitPerMinute),
	}
}

// Name identifies the frontend in logs and metrics.
func (f *Frontend) Name() string { return "telegram" }

// RichFormat reports that replies are sent as HTML.
func (f *Frontend) RichFormat() bool { return true }

// Start creates the bot client and checks the token
func (f *Frontend) Start(ctx context.Context) error {
	if !f.config.Enabled {
		f.logger.Info("Telegram frontend is disabled, skipping initialization")
		return nil
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(f.handleUpdate),
		bot.WithSkipGetMe(),
	}
	if f.config.ServerURL != "" {
		opts = append(opts, bot.WithServerURL(f.config.ServerURL))
	}

	b, err := bot.New(f.config.BotToken, opts...)
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}
	f.bot = b

	me, err := b.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot info: %w", err)
	}
	f.username = me.Username

	f.logger.Info("Telegram frontend started successfully", zap.String("username", me.Username))
	return nil
}

// Listen polls for updates until ctx is done
func (f *Frontend) Listen(ctx context.Context, handlers chat.Handlers) error {
	if !f.config.Enabled {
		return nil
	}

	f.handlers = handlers
	f.bot.Start(ctx)

	return nil
}

// Reply sends text to the chat of origin
func (f *Frontend) Reply(ctx context.Context, origin *chat.Message, text string, opts chat.ReplyOptions) (string, error) {
	if !f.config.Enabled {
		return "", errors.New("telegram frontend is disabled")
	}

	chatID, err := strconv.ParseInt(origin.ChatID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid chat ID: %w", err)
	}

	disabled := true
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: &disabled,
		},
	}
	if opts.RichFormat {
		params.ParseMode = models.ParseModeHTML
	}

	if opts.QuoteOriginal {
		messageID, parseErr := strconv.Atoi(origin.ID)
		if parseErr != nil {
			return "", fmt.Errorf("invalid reply message ID: %w", parseErr)
		}
		params.ReplyParameters = &models.ReplyParameters{
			MessageID:                messageID,
			AllowSendingWithoutReply: true,
		}
	}

	msg, err := f.bot.SendMessage(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	return strconv.Itoa(msg.ID), nil
}

// DeleteMessage removes the original message. Missing admin rights are
// reported as chat.ErrCannotDelete.
func (f *Frontend) DeleteMessage(ctx context.Context, origin *chat.Message) error {
	if !f.config.Enabled {
		return errors.New("telegram frontend is disabled")
	}

	chatID, err := strconv.ParseInt(origin.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID: %w", err)
	}

	messageID, err := strconv.Atoi(origin.ID)
	if err != nil {
		return fmt.Errorf("invalid message ID: %w", err)
	}

	_, err = f.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bot.ErrorBadRequest), errors.Is(err, bot.ErrorForbidden):
		return fmt.Errorf("%w: %w", chat.ErrCannotDelete, err)
	default:
		return fmt.Errorf("failed to delete message: %w", err)
	}
}

// AnswerInlineQuery offers results as article cards
func (f *Frontend) AnswerInlineQuery(ctx context.Context, query *chat.InlineQuery, results []chat.InlineResult) error {
	if !f.config.Enabled {
		return errors.New("telegram frontend is disabled")
	}

	articles := make([]models.InlineQueryResult, 0, len(results))
	for _, r := range results {
		articles = append(articles, &models.InlineQueryResultArticle{
			ID:           r.ID,
			Title:        r.Title,
			Description:  r.Description,
			ThumbnailURL: r.ThumbnailURL,
			InputMessageContent: &models.InputTextMessageContent{
				MessageText: r.Text,
				ParseMode:   models.ParseModeHTML,
			},
		})
	}

	_, err := f.bot.AnswerInlineQuery(ctx, &bot.AnswerInlineQueryParams{
		InlineQueryID: query.ID,
		Results:       articles,
		CacheTime:     inlineCacheSeconds,
	})
	if err != nil {
		return fmt.Errorf("failed to answer inline query: %w", err)
	}
	return nil
}

func (f *Frontend) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	switch {
	case update.Message != nil:
		f.handleMessage(ctx, update.Message)
	case update.InlineQuery != nil:
		f.handleInlineQuery(ctx, update.InlineQuery)
	}
}

func (f *Frontend) handleMessage(ctx context.Context, msg *models.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" || f.handlers.OnMessage == nil {
		return
	}

	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	userID := strconv.FormatInt(msg.From.ID, 10)
	if !f.floodgate.Allow(chatID, userID) {
		f.logger.Debug("Flood limit reached, ignoring message",
			zap.String("chat_id", chatID),
			zap.String("user_id", userID))
		return
	}

	f.handlers.OnMessage(ctx, &chat.Message{
		ID:             strconv.Itoa(msg.ID),
		ChatID:         chatID,
		SenderID:       userID,
		SenderName:     displayName(msg.From),
		SenderUsername: msg.From.Username,
		Text:           text,
		IsGroup:        msg.Chat.Type == chatTypeGroup || msg.Chat.Type == chatTypeSuperGroup,
		BotUsername:    f.username,
		Raw:            msg,
	})
}

func (f *Frontend) handleInlineQuery(ctx context.Context, query *models.InlineQuery) {
	if f.handlers.OnInlineQuery == nil {
		return
	}

	var senderID int64
	var username string
	if query.From != nil {
		senderID = query.From.ID
		username = query.From.Username
	}

	f.handlers.OnInlineQuery(ctx, &chat.InlineQuery{
		ID:             query.ID,
		SenderID:       strconv.FormatInt(senderID, 10),
		SenderUsername: username,
		Text:           query.Query,
	})
}

// displayName creates a display name for the user
func displayName(user *models.User) string {
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	return name
}
