package core

import (
	"time"

	"odeslibot/internal/i18n"
	"odeslibot/pkg/musiclink"
)

const (
	// DefaultSkipMark makes the bot ignore a message.
	DefaultSkipMark = "!skip"
	// DefaultFloodLimitPerMinute is the default per-user message budget.
	DefaultFloodLimitPerMinute = 10
	// DefaultServerPort is the default metrics/health port.
	DefaultServerPort = 8080
	// DefaultMaxConcurrentResolutions bounds parallel lookups for one message.
	DefaultMaxConcurrentResolutions = 8
	// DefaultSearchLimit is the number of Spotify results offered inline.
	DefaultSearchLimit = 5
	// DefaultDedupCapacity is how many processed updates are remembered.
	DefaultDedupCapacity = 10000
)

type Config struct {
	Telegram TelegramConfig
	WhatsApp WhatsAppConfig
	Odesli   OdesliConfig
	Cache    CacheConfig
	Spotify  SpotifyConfig
	Server   ServerConfig
	Log      LogConfig
	App      AppConfig
}

type TelegramConfig struct {
	Enabled  bool
	BotToken string
}

type WhatsAppConfig struct {
	Enabled     bool
	DeviceName  string
	SessionPath string
}

type OdesliConfig struct {
	APIURL             string
	APIKey             string
	UserCountry        string
	RetryDelay         time.Duration
	MaxRetries         int
	ThrottleDelay      time.Duration
	MaxThrottleRetries int
	RequestsPerSecond  float64
	Timeout            time.Duration
}

// ClientConfig converts the section into resolver client settings.
func (c OdesliConfig) ClientConfig(cacheTTL time.Duration) musiclink.ClientConfig {
	return musiclink.ClientConfig{
		APIURL:             c.APIURL,
		APIKey:             c.APIKey,
		UserCountry:        c.UserCountry,
		RetryDelay:         c.RetryDelay,
		MaxRetries:         c.MaxRetries,
		ThrottleDelay:      c.ThrottleDelay,
		MaxThrottleRetries: c.MaxThrottleRetries,
		RequestsPerSecond:  c.RequestsPerSecond,
		CacheTTL:           cacheTTL,
		Timeout:            c.Timeout,
	}
}

type CacheConfig struct {
	Backend    string
	TTL        time.Duration
	Path       string
	MaxEntries int
}

// SpotifyConfig enables free-text inline search when both credentials are set.
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	SearchLimit  int
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	Language                 string
	SkipMark                 string
	GroupExcludedPlatforms   []string
	FloodLimitPerMinute      int
	MaxConcurrentResolutions int
	PlatformsFile            string
}

func DefaultConfig() *Config {
	client := musiclink.DefaultClientConfig()

	return &Config{
		Telegram: TelegramConfig{
			Enabled: true,
		},
		WhatsApp: WhatsAppConfig{
			DeviceName:  "OdesliBot",
			SessionPath: "./whatsapp_session.db",
		},
		Odesli: OdesliConfig{
			APIURL:             client.APIURL,
			RetryDelay:         client.RetryDelay,
			MaxRetries:         client.MaxRetries,
			ThrottleDelay:      client.ThrottleDelay,
			MaxThrottleRetries: client.MaxThrottleRetries,
			Timeout:            client.Timeout,
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     client.CacheTTL,
			Path:    "./odeslibot_cache.db",
		},
		Spotify: SpotifyConfig{
			SearchLimit: DefaultSearchLimit,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         DefaultServerPort,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			Language:                 i18n.DefaultLanguage,
			SkipMark:                 DefaultSkipMark,
			GroupExcludedPlatforms:   []string{"youtube"},
			FloodLimitPerMinute:      DefaultFloodLimitPerMinute,
			MaxConcurrentResolutions: DefaultMaxConcurrentResolutions,
		},
	}
}
