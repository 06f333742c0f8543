package config

import "time"

// BannerSource selects the upstream feeding the homepage carousel.
type BannerSource string

const (
	// BannerSourceTMDB is the default metadata-provider trending list.
	BannerSourceTMDB BannerSource = "TMDB"
	// BannerSourceTX is the video-portal shelf carousel.
	BannerSourceTX BannerSource = "TX"
)

// ParseBannerSource maps a configured value onto a source. Only "TX" selects
// the video portal; everything else falls back to TMDB.
func ParseBannerSource(value string) BannerSource {
	if BannerSource(value) == BannerSourceTX {
		return BannerSourceTX
	}
	return BannerSourceTMDB
}

// Settings is the full runtime configuration.
type Settings struct {
	Server  ServerSettings  `mapstructure:"server"`
	Banner  BannerSettings  `mapstructure:"banner"`
	TMDB    TMDBSettings    `mapstructure:"tmdb"`
	Danmaku DanmakuSettings `mapstructure:"danmaku"`
	Storage StorageSettings `mapstructure:"storage"`
	Log     LogSettings     `mapstructure:"log"`
}

type ServerSettings struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`
	// RateLimitPerMinute caps requests per client IP on the public API. 0 disables it.
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute" validate:"min=0"`
	// ExtraOrigins are trusted in addition to local/private origins.
	ExtraOrigins []string `mapstructure:"extra_origins" validate:"dive,url"`
}

type BannerSettings struct {
	DataSource string        `mapstructure:"data_source"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl" validate:"min=0"`
}

// Source returns the parsed banner data source.
func (b BannerSettings) Source() BannerSource {
	return ParseBannerSource(b.DataSource)
}

type TMDBSettings struct {
	APIKey   string `mapstructure:"api_key"`
	Proxy    string `mapstructure:"proxy" validate:"omitempty,url"`
	Language string `mapstructure:"language"`
}

type DanmakuSettings struct {
	APIBase       string        `mapstructure:"api_base" validate:"omitempty,url"`
	Token         string        `mapstructure:"token"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"min=0"`
	RetryAttempts uint          `mapstructure:"retry_attempts" validate:"max=5"`
}

type StorageSettings struct {
	// Dir holds the client-side persistent store used by the CLI.
	Dir          string        `mapstructure:"dir" validate:"required"`
	SessionIdle  time.Duration `mapstructure:"session_idle" validate:"min=0"`
	SessionQuota int           `mapstructure:"session_quota" validate:"min=0"`
	MaxSessions  int           `mapstructure:"max_sessions" validate:"min=0"`
}

type LogSettings struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"min=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"min=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"min=0"`
	Debug      bool   `mapstructure:"debug"`
}
