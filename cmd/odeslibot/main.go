// Package main provides the OdesliBot CLI application entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"odeslibot/internal/cache"
	"odeslibot/internal/chat"
	"odeslibot/internal/chat/telegram"
	"odeslibot/internal/chat/whatsapp"
	"odeslibot/internal/core"
	httpserver "odeslibot/internal/http"
	"odeslibot/internal/i18n"
	"odeslibot/internal/spotify"
	"odeslibot/internal/store"
	"odeslibot/pkg/musiclink"
)

const envPrefix = "ODESLIBOT"

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "odeslibot",
	Short: "OdesliBot - links to every streaming platform",
	Long: `OdesliBot watches chats (Telegram/WhatsApp) for music links and replies with
links to the same song on all other supported streaming platforms.`,
	RunE: runOdesliBot,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := core.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Log.Format, "log format (json, console)")

	flags.Bool("telegram-enabled", defaults.Telegram.Enabled, "Enable Telegram integration")
	flags.String("telegram-bot-token", "", "Telegram bot token")
	flags.Bool("whatsapp-enabled", defaults.WhatsApp.Enabled, "Enable WhatsApp integration")
	flags.String("whatsapp-device-name", defaults.WhatsApp.DeviceName, "WhatsApp device name")
	flags.String("whatsapp-session-path", defaults.WhatsApp.SessionPath, "WhatsApp session database")

	flags.String("odesli-api-url", defaults.Odesli.APIURL, "Odesli API endpoint")
	flags.String("odesli-api-key", "", "Odesli API key (optional, raises rate limits)")
	flags.String("odesli-user-country", "", "Country code used for lookups")
	flags.Duration("odesli-retry-delay", defaults.Odesli.RetryDelay, "Delay between attempts after a connection error")
	flags.Int("odesli-max-retries", defaults.Odesli.MaxRetries, "Attempts per link on connection errors")
	flags.Duration("odesli-throttle-delay", defaults.Odesli.ThrottleDelay, "Pause after a rate limit response")
	flags.Int("odesli-max-throttle-retries", defaults.Odesli.MaxThrottleRetries, "Rate limit pauses per link before giving up")
	flags.Float64("odesli-requests-per-second", 0, "Client side request pacing, 0 disables")
	flags.Duration("odesli-timeout", defaults.Odesli.Timeout, "HTTP timeout per request")

	flags.String("cache-backend", defaults.Cache.Backend, "Song cache backend (memory, sqlite)")
	flags.Duration("cache-ttl", defaults.Cache.TTL, "How long resolved songs are reused")
	flags.String("cache-path", defaults.Cache.Path, "SQLite cache file")
	flags.Int("cache-max-entries", defaults.Cache.MaxEntries, "Memory cache size, 0 means unbounded")

	flags.String("spotify-client-id", "", "Spotify client ID for inline search")
	flags.String("spotify-client-secret", "", "Spotify client secret for inline search")
	flags.Int("spotify-search-limit", defaults.Spotify.SearchLimit, "Inline search results")

	flags.String("server-host", defaults.Server.Host, "HTTP server host")
	flags.Int("server-port", defaults.Server.Port, "HTTP server port")

	supportedLangs := strings.Join(i18n.GetSupportedLanguages(), ", ")
	flags.String("language", defaults.App.Language, fmt.Sprintf("Bot language (%s)", supportedLangs))
	flags.String("skip-mark", defaults.App.SkipMark, "Messages containing this text are ignored")
	flags.StringSlice("group-excluded-platforms", defaults.App.GroupExcludedPlatforms,
		"Platforms whose links are ignored in group chats")
	flags.Int("flood-limit-per-minute", defaults.App.FloodLimitPerMinute, "Maximum messages per user per minute")
	flags.Int("max-concurrent-resolutions", defaults.App.MaxConcurrentResolutions, "Parallel lookups per message")
	flags.String("platforms-file", "", "YAML file overriding platform names, priorities and patterns")
	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureChat(cfg)
	configureOdesli(cfg)
	configureCache(cfg)
	configureSpotify(cfg)
	configureServer(cfg)
	configureApp(cfg)

	return cfg
}

func configureChat(cfg *core.Config) {
	cfg.Telegram.Enabled = viper.GetBool("telegram-enabled")
	cfg.Telegram.BotToken = viper.GetString("telegram-bot-token")

	cfg.WhatsApp.Enabled = viper.GetBool("whatsapp-enabled")
	cfg.WhatsApp.DeviceName = viper.GetString("whatsapp-device-name")
	cfg.WhatsApp.SessionPath = viper.GetString("whatsapp-session-path")
}

func configureOdesli(cfg *core.Config) {
	cfg.Odesli.APIURL = viper.GetString("odesli-api-url")
	cfg.Odesli.APIKey = viper.GetString("odesli-api-key")
	cfg.Odesli.UserCountry = viper.GetString("odesli-user-country")
	cfg.Odesli.RetryDelay = viper.GetDuration("odesli-retry-delay")
	cfg.Odesli.MaxRetries = viper.GetInt("odesli-max-retries")
	cfg.Odesli.ThrottleDelay = viper.GetDuration("odesli-throttle-delay")
	cfg.Odesli.MaxThrottleRetries = viper.GetInt("odesli-max-throttle-retries")
	cfg.Odesli.RequestsPerSecond = viper.GetFloat64("odesli-requests-per-second")
	cfg.Odesli.Timeout = viper.GetDuration("odesli-timeout")

	if cfg.Odesli.MaxRetries <= 0 {
		cfg.Odesli.MaxRetries = musiclink.DefaultMaxRetries
	}
}

func configureCache(cfg *core.Config) {
	cfg.Cache.Backend = viper.GetString("cache-backend")
	cfg.Cache.TTL = viper.GetDuration("cache-ttl")
	cfg.Cache.Path = viper.GetString("cache-path")
	cfg.Cache.MaxEntries = viper.GetInt("cache-max-entries")
}

func configureSpotify(cfg *core.Config) {
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	cfg.Spotify.SearchLimit = viper.GetInt("spotify-search-limit")
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")
}

func configureApp(cfg *core.Config) {
	cfg.App.SkipMark = viper.GetString("skip-mark")
	cfg.App.GroupExcludedPlatforms = viper.GetStringSlice("group-excluded-platforms")
	cfg.App.MaxConcurrentResolutions = viper.GetInt("max-concurrent-resolutions")
	cfg.App.PlatformsFile = viper.GetString("platforms-file")

	cfg.App.Language = viper.GetString("language")
	if !i18n.IsSupported(cfg.App.Language) {
		fmt.Fprintf(os.Stderr, "Warning: Unsupported language '%s', falling back to '%s'. Supported languages: %s\n",
			cfg.App.Language, i18n.DefaultLanguage, strings.Join(i18n.GetSupportedLanguages(), ", "))
		cfg.App.Language = i18n.DefaultLanguage
	}

	cfg.App.FloodLimitPerMinute = viper.GetInt("flood-limit-per-minute")
	if cfg.App.FloodLimitPerMinute <= 0 {
		cfg.App.FloodLimitPerMinute = core.DefaultFloodLimitPerMinute
	}
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if strings.EqualFold(format, "console") {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runOdesliBot(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting OdesliBot",
		zap.Bool("telegram_enabled", config.Telegram.Enabled),
		zap.Bool("whatsapp_enabled", config.WhatsApp.Enabled),
		zap.String("cache_backend", config.Cache.Backend),
		zap.String("language", config.App.Language))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	svcs, err := initializeServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.close()

	return runServices(ctx, svcs)
}

type services struct {
	songCache   cache.Store
	httpServer  *httpserver.Server
	dispatchers []*core.Dispatcher
}

func (s *services) close() {
	if err := s.songCache.Close(); err != nil {
		logger.Warn("Failed to close song cache", zap.Error(err))
	}
}

func initializeServices(ctx context.Context) (*services, error) {
	registry, err := loadRegistry(config.App.PlatformsFile)
	if err != nil {
		return nil, err
	}

	metrics := httpserver.NewMetrics()

	songCache, err := cache.New(cache.Config{
		Backend:    config.Cache.Backend,
		TTL:        config.Cache.TTL,
		Path:       config.Cache.Path,
		MaxEntries: config.Cache.MaxEntries,
	}, logger.Named("cache"))
	if err != nil {
		return nil, fmt.Errorf("failed to open song cache: %w", err)
	}
	metrics.RegisterCacheSize(songCache.Len)

	resolver := musiclink.NewClient(config.Odesli.ClientConfig(config.Cache.TTL), registry, songCache,
		logger.Named("odesli"), musiclink.WithObserver(metrics))

	var searcher core.SongSearcher
	if config.Spotify.ClientID != "" && config.Spotify.ClientSecret != "" {
		s, searchErr := spotify.NewSearcher(ctx, spotify.Config{
			ClientID:     config.Spotify.ClientID,
			ClientSecret: config.Spotify.ClientSecret,
		}, logger.Named("spotify"))
		if searchErr != nil {
			_ = songCache.Close()
			return nil, fmt.Errorf("failed to create Spotify searcher: %w", searchErr)
		}
		searcher = s
	}

	seen := store.NewSeen(core.DefaultDedupCapacity, store.DefaultFalsePositiveRate)
	metrics.RegisterSeenSize(seen.Len)

	var dispatchers []*core.Dispatcher
	for _, frontend := range createChatFrontends() {
		dispatchers = append(dispatchers, core.NewDispatcher(config, frontend, registry, resolver, searcher,
			seen, metrics, logger.Named("dispatcher").With(zap.String("frontend", frontend.Name()))))
	}

	return &services{
		songCache:   songCache,
		httpServer:  httpserver.NewServer(&config.Server, metrics, logger.Named("http")),
		dispatchers: dispatchers,
	}, nil
}

func loadRegistry(platformsFile string) (*musiclink.Registry, error) {
	registry := musiclink.DefaultRegistry()
	if platformsFile == "" {
		return registry, nil
	}

	f, err := os.Open(platformsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open platforms file: %w", err)
	}
	defer f.Close()

	registry, err = registry.WithOverrides(f)
	if err != nil {
		return nil, fmt.Errorf("invalid platforms file %s: %w", platformsFile, err)
	}

	logger.Info("Loaded platform overrides",
		zap.String("path", platformsFile),
		zap.Strings("platforms", registry.Names()))
	return registry, nil
}

func createChatFrontends() []chat.Frontend {
	var frontends []chat.Frontend

	if config.Telegram.Enabled {
		frontends = append(frontends, telegram.NewFrontend(&telegram.Config{
			BotToken:            config.Telegram.BotToken,
			Enabled:             true,
			FloodLimitPerMinute: config.App.FloodLimitPerMinute,
		}, logger.Named("telegram")))
	}

	if config.WhatsApp.Enabled {
		frontends = append(frontends, whatsapp.NewFrontend(&whatsapp.Config{
			DeviceName:          config.WhatsApp.DeviceName,
			SessionPath:         config.WhatsApp.SessionPath,
			Enabled:             true,
			FloodLimitPerMinute: config.App.FloodLimitPerMinute,
		}, logger.Named("whatsapp")))
	}

	return frontends
}

func runServices(ctx context.Context, svcs *services) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svcs.httpServer.Start(gCtx)
	})

	for _, d := range svcs.dispatchers {
		g.Go(func() error {
			return d.Start(gCtx)
		})
	}

	svcs.httpServer.SetReady(true)
	logger.Info("OdesliBot started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)),
		zap.Int("frontends", len(svcs.dispatchers)))

	if err := g.Wait(); err != nil {
		logger.Error("OdesliBot stopped with error", zap.Error(err))
		return err
	}

	logger.Info("OdesliBot stopped gracefully")
	return nil
}

func validateConfig() error {
	if !config.Telegram.Enabled && !config.WhatsApp.Enabled {
		return fmt.Errorf("at least one chat frontend must be enabled (Telegram or WhatsApp)")
	}

	if config.Telegram.Enabled && config.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is required when Telegram is enabled")
	}

	if config.WhatsApp.Enabled && config.WhatsApp.SessionPath == "" {
		return fmt.Errorf("WhatsApp session path is required when WhatsApp is enabled")
	}

	switch config.Cache.Backend {
	case cache.BackendMemory, cache.BackendSQLite:
	default:
		return fmt.Errorf("unknown cache backend %q", config.Cache.Backend)
	}

	if (config.Spotify.ClientID == "") != (config.Spotify.ClientSecret == "") {
		return fmt.Errorf("spotify client ID and secret must be set together")
	}

	return nil
}
