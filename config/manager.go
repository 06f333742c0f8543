package config

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Manager loads Settings from an optional YAML file plus environment
// variables and keeps them current when the file changes.
type Manager struct {
	mu       sync.RWMutex
	v        *viper.Viper
	settings Settings
	watchers []func(Settings)
}

// envBindings maps settings keys onto the environment variables that override them.
var envBindings = map[string]string{
	"server.host":        "MEDIADECK_HOST",
	"server.port":        "MEDIADECK_PORT",
	"banner.data_source": "BANNER_DATA_SOURCE",
	"banner.cache_ttl":   "BANNER_CACHE_TTL",
	"tmdb.api_key":       "TMDB_API_KEY",
	"tmdb.proxy":         "TMDB_PROXY",
	"tmdb.language":      "TMDB_LANGUAGE",
	"danmaku.api_base":   "DANMAKU_API_BASE",
	"danmaku.token":      "DANMAKU_TOKEN",
	"storage.dir":        "MEDIADECK_STORAGE_DIR",
	"log.file":           "MEDIADECK_LOG_FILE",
	"log.debug":          "MEDIADECK_DEBUG",
}

// NewManager prepares a manager reading configFile. An empty path searches
// for mediadeck.yaml in the working directory and $HOME/.config/mediadeck.
func NewManager(configFile string) (*Manager, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("mediadeck")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/mediadeck")
	}
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	return &Manager{v: v}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.rate_limit_per_minute", 120)
	v.SetDefault("banner.data_source", string(BannerSourceTMDB))
	v.SetDefault("banner.cache_ttl", 3*time.Hour)
	v.SetDefault("tmdb.language", "zh-CN")
	v.SetDefault("danmaku.api_base", "https://api.dandanplay.net")
	v.SetDefault("danmaku.timeout", 15*time.Second)
	v.SetDefault("danmaku.retry_attempts", 2)
	v.SetDefault("storage.dir", filepath.Join(".", "data"))
	v.SetDefault("storage.session_idle", 12*time.Hour)
	v.SetDefault("storage.session_quota", 1<<20)
	v.SetDefault("storage.max_sessions", 10000)
	v.SetDefault("log.max_size_mb", 20)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)
}

// Load reads the configuration, validates it and makes it current.
// A missing config file is not an error; env and defaults still apply.
func (m *Manager) Load() (Settings, error) {
	if err := m.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
	}
	settings, err := m.decode()
	if err != nil {
		return Settings{}, err
	}

	m.mu.Lock()
	m.settings = settings
	m.mu.Unlock()
	return settings, nil
}

func (m *Manager) decode() (Settings, error) {
	var settings Settings
	if err := m.v.Unmarshal(&settings); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	settings.TMDB.APIKey = strings.TrimSpace(settings.TMDB.APIKey)
	settings.Banner.DataSource = strings.ToUpper(strings.TrimSpace(settings.Banner.DataSource))
	if err := Validate(settings); err != nil {
		return Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return settings, nil
}

// Get returns the current settings.
func (m *Manager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// BannerSource returns the currently configured banner source.
func (m *Manager) BannerSource() BannerSource {
	return m.Get().Banner.Source()
}

// TMDBAPIKey returns the currently configured metadata-provider key.
func (m *Manager) TMDBAPIKey() string {
	return m.Get().TMDB.APIKey
}

// OnChange registers fn to run with the new settings after every successful reload.
func (m *Manager) OnChange(fn func(Settings)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers = append(m.watchers, fn)
}

// Watch starts watching the config file. Invalid edits are logged and the
// previous settings stay in effect.
func (m *Manager) Watch() {
	if m.v.ConfigFileUsed() == "" {
		return
	}
	m.v.OnConfigChange(func(e fsnotify.Event) {
		settings, err := m.decode()
		if err != nil {
			log.Printf("[config] ignoring invalid change to %s: %v", e.Name, err)
			return
		}
		m.apply(settings)
		log.Printf("[config] reloaded %s", e.Name)
	})
	m.v.WatchConfig()
}

func (m *Manager) apply(settings Settings) {
	m.mu.Lock()
	m.settings = settings
	watchers := append([]func(Settings){}, m.watchers...)
	m.mu.Unlock()

	for _, fn := range watchers {
		fn(settings)
	}
}

// Static returns a manager pinned to settings, for tests and embedding.
func Static(settings Settings) *Manager {
	return &Manager{v: viper.New(), settings: settings}
}
