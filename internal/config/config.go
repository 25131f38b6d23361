package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"stockdash/internal/cache"
	"stockdash/internal/provider/rss"
)

type Server struct {
	Port           string        `mapstructure:"port" json:"port" validate:"required,numeric"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout" validate:"gt=0"`
	CORSOrigins    []string      `mapstructure:"cors_origins" json:"cors_origins"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" json:"max_body_bytes" validate:"gt=0"`
}

type HTTP struct {
	Timeout   time.Duration `mapstructure:"timeout" json:"timeout" validate:"gt=0"`
	UserAgent string        `mapstructure:"user_agent" json:"user_agent" validate:"required"`
}

type Yahoo struct {
	BaseURL              string        `mapstructure:"base_url" json:"base_url" validate:"required,url"`
	MaxRequestsPerMinute int           `mapstructure:"max_rpm" json:"max_rpm" validate:"gte=0"`
	Burst                int           `mapstructure:"burst" json:"burst" validate:"gte=1"`
	MinInterval          time.Duration `mapstructure:"min_interval" json:"min_interval" validate:"gte=0"`
}

type Cache struct {
	TTL           cache.TTLs    `mapstructure:"ttl" json:"ttl"`
	FailureTTL    time.Duration `mapstructure:"failure_ttl" json:"failure_ttl" validate:"gte=0"`
	MaxItems      int           `mapstructure:"max_items" json:"max_items" validate:"gte=0"`
	PurgeSchedule string        `mapstructure:"purge_schedule" json:"purge_schedule" validate:"required"`
}

type Session struct {
	IdleTimeout   time.Duration `mapstructure:"idle_timeout" json:"idle_timeout" validate:"gt=0"`
	SweepSchedule string        `mapstructure:"sweep_schedule" json:"sweep_schedule" validate:"required"`
	CookieName    string        `mapstructure:"cookie_name" json:"cookie_name" validate:"required"`
}

type News struct {
	Count      int        `mapstructure:"count" json:"count" validate:"gte=1,lte=20"`
	RSSEnabled bool       `mapstructure:"rss_enabled" json:"rss_enabled"`
	Feeds      []rss.Feed `mapstructure:"feeds" json:"feeds" validate:"dive"`
}

type Log struct {
	Level  string `mapstructure:"level" json:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" json:"format" validate:"oneof=json console"`
}

type Batch struct {
	Concurrency int `mapstructure:"concurrency" json:"concurrency" validate:"gte=1,lte=32"`
}

type Config struct {
	Server  Server  `mapstructure:"server" json:"server"`
	HTTP    HTTP    `mapstructure:"http" json:"http"`
	Yahoo   Yahoo   `mapstructure:"yahoo" json:"yahoo"`
	Cache   Cache   `mapstructure:"cache" json:"cache"`
	Session Session `mapstructure:"session" json:"session"`
	News    News    `mapstructure:"news" json:"news"`
	Log     Log     `mapstructure:"log" json:"log"`
	Batch   Batch   `mapstructure:"batch" json:"batch"`
}

func Default() Config {
	return Config{
		Server: Server{
			Port:           "8080",
			RequestTimeout: 15 * time.Second,
			CORSOrigins:    []string{"*"},
			MaxBodyBytes:   1 << 20,
		},
		HTTP: HTTP{Timeout: 10 * time.Second, UserAgent: "Mozilla/5.0"},
		Yahoo: Yahoo{
			BaseURL:              "https://query1.finance.yahoo.com",
			MaxRequestsPerMinute: 120,
			Burst:                5,
		},
		Cache: Cache{
			TTL:           cache.DefaultTTLs(),
			MaxItems:      5000,
			PurgeSchedule: "@every 5m",
		},
		Session: Session{
			IdleTimeout:   2 * time.Hour,
			SweepSchedule: "@every 1m",
			CookieName:    "stockdash_session",
		},
		News: News{
			Count:      3,
			RSSEnabled: true,
			Feeds:      append([]rss.Feed(nil), rss.DefaultFeeds...),
		},
		Log:   Log{Level: "info", Format: "json"},
		Batch: Batch{Concurrency: 4},
	}
}

// EnvPrefix prefixes every environment override, e.g. STOCKDASH_CACHE_TTL_INDEX=45m.
const EnvPrefix = "STOCKDASH"

// Load reads config from path (YAML or JSON). If path is empty, stockdash.yaml
// is looked up in the working directory and ./config; a missing file yields
// defaults. Environment variables override file values.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
			path = ""
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("stockdash")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)

	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.user_agent", d.HTTP.UserAgent)

	v.SetDefault("yahoo.base_url", d.Yahoo.BaseURL)
	v.SetDefault("yahoo.max_rpm", d.Yahoo.MaxRequestsPerMinute)
	v.SetDefault("yahoo.burst", d.Yahoo.Burst)
	v.SetDefault("yahoo.min_interval", d.Yahoo.MinInterval)

	v.SetDefault("cache.ttl.index", d.Cache.TTL.Index)
	v.SetDefault("cache.ttl.profile", d.Cache.TTL.Profile)
	v.SetDefault("cache.ttl.search", d.Cache.TTL.Search)
	v.SetDefault("cache.ttl.batch", d.Cache.TTL.Batch)
	v.SetDefault("cache.ttl.news", d.Cache.TTL.News)
	v.SetDefault("cache.ttl.penny", d.Cache.TTL.Penny)
	v.SetDefault("cache.failure_ttl", d.Cache.FailureTTL)
	v.SetDefault("cache.max_items", d.Cache.MaxItems)
	v.SetDefault("cache.purge_schedule", d.Cache.PurgeSchedule)

	v.SetDefault("session.idle_timeout", d.Session.IdleTimeout)
	v.SetDefault("session.sweep_schedule", d.Session.SweepSchedule)
	v.SetDefault("session.cookie_name", d.Session.CookieName)

	v.SetDefault("news.count", d.News.Count)
	v.SetDefault("news.rss_enabled", d.News.RSSEnabled)
	v.SetDefault("news.feeds", d.News.Feeds)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("batch.concurrency", d.Batch.Concurrency)
}

// applyEnv keeps the conventional bare PORT variable working.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
}

var validate = validator.New()

// Validate reports the first invalid field of every section.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RequestsPerSecond converts the per-minute Yahoo budget for the token bucket.
func (y Yahoo) RequestsPerSecond() float64 {
	return float64(y.MaxRequestsPerMinute) / 60
}
