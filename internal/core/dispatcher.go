package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"odeslibot/internal/chat"
	"odeslibot/internal/i18n"
	"odeslibot/pkg/musiclink"
	"odeslibot/pkg/text"
)

// Dispatcher runs the link pipeline for every update of one chat frontend.
type Dispatcher struct {
	config    *Config
	frontend  chat.Frontend
	registry  *musiclink.Registry
	extractor *text.Extractor
	resolver  Resolver
	searcher  SongSearcher
	dedup     DedupStore
	metrics   Metrics
	composer  *Composer
	logger    *zap.Logger

	groupExcluded map[string]struct{}
}

// NewDispatcher creates a new dispatcher with the provided chat frontend.
// searcher, dedup and metrics may be nil.
func NewDispatcher(
	config *Config,
	frontend chat.Frontend,
	registry *musiclink.Registry,
	resolver Resolver,
	searcher SongSearcher,
	dedup DedupStore,
	metrics Metrics,
	logger *zap.Logger,
) *Dispatcher {
	if metrics == nil {
		metrics = nopMetrics{}
	}

	return &Dispatcher{
		config:        config,
		frontend:      frontend,
		registry:      registry,
		extractor:     text.NewExtractor(registry),
		resolver:      resolver,
		searcher:      searcher,
		dedup:         dedup,
		metrics:       metrics,
		composer:      NewComposer(i18n.NewLocalizer(config.App.Language)),
		logger:        logger,
		groupExcluded: text.KeySet(config.App.GroupExcludedPlatforms...),
	}
}

// Start initializes the frontend and blocks while processing its updates.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.Info("Starting message dispatcher", zap.String("frontend", d.frontend.Name()))

	if err := d.frontend.Start(ctx); err != nil {
		return fmt.Errorf("failed to start chat frontend: %w", err)
	}

	return d.frontend.Listen(ctx, chat.Handlers{
		OnMessage:     d.HandleMessage,
		OnInlineQuery: d.HandleInlineQuery,
	})
}

// HandleMessage processes one inbound chat message.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg *chat.Message) {
	start := time.Now()
	logger := d.logger.With(
		zap.String("chat_id", msg.ChatID),
		zap.String("message_id", msg.ID),
		zap.String("from_username", msg.SenderUsername),
	)
	ctx = musiclink.WithLogger(ctx, logger)

	if d.dedup != nil {
		key := msg.ChatID + ":" + msg.ID
		if !d.dedup.Mark(key) {
			logger.Debug("Ignoring redelivered message")
			return
		}
	}

	outcome := d.processMessage(ctx, msg, logger)

	d.metrics.RecordMessage(d.frontend.Name(), outcome.String())
	d.metrics.RecordProcessingTime(d.frontend.Name(), time.Since(start))
	logger.Debug("Message handled",
		zap.Stringer("outcome", outcome),
		zap.Duration("duration", time.Since(start)))
}

func (d *Dispatcher) processMessage(ctx context.Context, msg *chat.Message, logger *zap.Logger) Outcome {
	if d.config.App.SkipMark != "" && strings.Contains(msg.Text, d.config.App.SkipMark) {
		logger.Debug("Message is skipped due to skip mark")
		return OutcomeSkipped
	}

	if isCommand(msg.Text, msg.BotUsername, "start", "help") {
		d.sendWelcome(ctx, msg, logger)
		return OutcomeReply
	}

	var excluded map[string]struct{}
	if msg.IsGroup {
		excluded = d.groupExcluded
	}
	links := d.extractor.Extract(msg.Text, excluded)
	if len(links) == 0 {
		logger.Debug("No songs found in message")
		return OutcomeNoLinks
	}

	resolutions := d.resolveAll(ctx, links)
	rich := d.frontend.RichFormat()

	switch outcome := Decide(resolutions); outcome {
	case OutcomeNotFound:
		logger.Info("No song found for any URL", zap.Int("urls", len(links)))
		d.reply(ctx, msg, d.composer.NotFound(), chat.ReplyOptions{RichFormat: rich, QuoteOriginal: true}, logger)
		return outcome
	case OutcomeFailed:
		logger.Error("API returned errors for all URLs", zap.Int("urls", len(links)))
		return outcome
	}

	songs := Merge(Songs(resolutions))
	if !HasNewLinks(songs) {
		logger.Debug("Nothing new to reply with", zap.Int("songs", len(songs)))
		return OutcomeNothingNew
	}

	reply := d.composer.Reply(ReplyInput{
		Songs:   songs,
		Text:    msg.Text,
		IsGroup: msg.IsGroup,
		Mention: msg.Mention(),
		Rich:    rich,
	})
	if !d.reply(ctx, msg, reply, chat.ReplyOptions{RichFormat: rich}, logger) {
		return OutcomeFailed
	}

	if msg.IsGroup {
		d.deleteOriginal(ctx, msg, logger)
	}

	return OutcomeReply
}

func (d *Dispatcher) reply(ctx context.Context, msg *chat.Message, text string, opts chat.ReplyOptions, logger *zap.Logger) bool {
	if _, err := d.frontend.Reply(ctx, msg, text, opts); err != nil {
		logger.Error("Failed to send reply", zap.Error(err))
		return false
	}
	return true
}

func (d *Dispatcher) deleteOriginal(ctx context.Context, msg *chat.Message, logger *zap.Logger) {
	err := d.frontend.DeleteMessage(ctx, msg)
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrCannotDelete):
		logger.Warn("Cannot delete message", zap.Error(err))
	default:
		logger.Error("Failed to delete message", zap.Error(err))
	}
}

func (d *Dispatcher) sendWelcome(ctx context.Context, msg *chat.Message, logger *zap.Logger) {
	logger.Debug("Sending a welcome message")
	rich := d.frontend.RichFormat()
	d.reply(ctx, msg, d.composer.Welcome(d.registry.Names(), rich), chat.ReplyOptions{RichFormat: rich}, logger)
}

// resolveAll resolves links concurrently. Results keep the order of links.
func (d *Dispatcher) resolveAll(ctx context.Context, links []musiclink.FoundLink) []Resolution {
	resolutions := make([]Resolution, len(links))

	var g errgroup.Group
	if limit := d.config.App.MaxConcurrentResolutions; limit > 0 {
		g.SetLimit(limit)
	}
	for i, link := range links {
		g.Go(func() error {
			song, err := d.resolver.Resolve(ctx, link)
			if song == nil {
				song = musiclink.NewEmptySongInfo(link.RawURL)
			}
			resolutions[i] = Resolution{Link: link, Song: song, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return resolutions
}

// HandleInlineQuery answers an inline query with song cards.
func (d *Dispatcher) HandleInlineQuery(ctx context.Context, query *chat.InlineQuery) {
	start := time.Now()
	logger := d.logger.With(
		zap.String("inline_query_id", query.ID),
		zap.String("from_username", query.SenderUsername),
	)
	ctx = musiclink.WithLogger(ctx, logger)

	outcome, results := d.processInlineQuery(ctx, query, logger)

	if err := d.frontend.AnswerInlineQuery(ctx, query, results); err != nil {
		if errors.Is(err, chat.ErrUnsupported) {
			logger.Debug("Inline queries not supported by frontend")
		} else {
			logger.Error("Failed to answer inline query", zap.Error(err))
		}
	}

	d.metrics.RecordInlineQuery(d.frontend.Name(), outcome.String())
	d.metrics.RecordProcessingTime(d.frontend.Name(), time.Since(start))
}

func (d *Dispatcher) processInlineQuery(
	ctx context.Context,
	query *chat.InlineQuery,
	logger *zap.Logger,
) (Outcome, []chat.InlineResult) {
	q := strings.TrimSpace(query.Text)
	if q == "" {
		return OutcomeNoLinks, nil
	}
	if d.config.App.SkipMark != "" && strings.Contains(q, d.config.App.SkipMark) {
		return OutcomeSkipped, nil
	}

	links := d.extractor.Extract(q, nil)
	if len(links) == 0 {
		links = d.searchLinks(ctx, q, logger)
	}
	if len(links) == 0 {
		return OutcomeNoLinks, nil
	}

	resolutions := d.resolveAll(ctx, links)
	switch outcome := Decide(resolutions); outcome {
	case OutcomeNotFound:
		return outcome, d.composer.InlineNotFound()
	case OutcomeFailed:
		logger.Error("API returned errors for all URLs", zap.Int("urls", len(links)))
		return outcome, nil
	}

	results := d.composer.InlineResults(Merge(Songs(resolutions)), d.frontend.RichFormat())
	return OutcomeReply, results
}

// searchLinks looks up a free-text query in the song catalog.
func (d *Dispatcher) searchLinks(ctx context.Context, query string, logger *zap.Logger) []musiclink.FoundLink {
	if d.searcher == nil {
		return nil
	}

	urls, err := d.searcher.SearchTrackURLs(ctx, query, d.config.Spotify.SearchLimit)
	if err != nil {
		logger.Warn("Song search failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	logger.Debug("Song search finished", zap.String("query", query), zap.Int("results", len(urls)))

	return d.extractor.Extract(strings.Join(urls, " "), nil)
}

// isCommand reports whether text is one of the bot commands. A command addressed
// as /cmd@name only matches when name is this bot.
func isCommand(text, botUsername string, commands ...string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return false
	}

	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		if !strings.EqualFold(name[at+1:], botUsername) {
			return false
		}
		name = name[:at]
	}
	for _, c := range commands {
		if strings.EqualFold(name, c) {
			return true
		}
	}
	return false
}
