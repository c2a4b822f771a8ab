// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Workers  int     `yaml:"workers"` // polling workers
	AdminIDs []int64 `yaml:"admin_ids"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	URL      string `yaml:"url"` // optional; empty selects the in-memory limiter
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type SiteConfig struct {
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	MinDelay       time.Duration `yaml:"min_delay"`
	MaxDelay       time.Duration `yaml:"max_delay"`
}

type LimitsConfig struct {
	UserPerHour     int `yaml:"user_per_hour"`
	DomainPerMinute int `yaml:"domain_per_minute"`
}

type WatchConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type ScanConfig struct {
	MaxProducts int `yaml:"max_products"`
}

type OpsConfig struct {
	Addr string `yaml:"addr"` // health + metrics listener
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Site     SiteConfig     `yaml:"site"`
	Limits   LimitsConfig   `yaml:"limits"`
	Watch    WatchConfig    `yaml:"watch"`
	Scan     ScanConfig     `yaml:"scan"`
	Ops      OpsConfig      `yaml:"ops"`

	Runtime RuntimeConfig `yaml:"-"`
}

// Load builds the config in three layers: optional YAML file, then a local
// .env file if present, then process environment. Environment always wins so
// one container image serves every deploy target.
func Load(path string, dev bool) (*Config, error) {
	var cfg Config

	if path != "" {
		b, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.applyDefaults()

	// Minimal validation. Dev runs may go tokenless; main falls back to the
	// logging bot adapter then.
	if cfg.Bot.Token == "" && !dev {
		return nil, errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.Site.MinDelay > cfg.Site.MaxDelay {
		return nil, errors.New("MIN_DELAY_SECONDS must not exceed MAX_DELAY_SECONDS")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (c *Config) applyEnv() {
	envStr("TELEGRAM_BOT_TOKEN", &c.Bot.Token)
	envInt("BOT_WORKERS", &c.Bot.Workers)
	if raw, ok := os.LookupEnv("ADMIN_TG_IDS"); ok {
		c.Bot.AdminIDs = ParseAdminIDs(raw)
	}
	envStr("LOG_LEVEL", &c.Log.Level)
	envStr("LOG_FORMAT", &c.Log.Format)
	envStr("DATABASE_PATH", &c.Database.Path)
	envStr("REDIS_URL", &c.Redis.URL)
	envStr("REDIS_PASSWORD", &c.Redis.Password)
	envInt("REDIS_DB", &c.Redis.DB)
	envStr("SITE_BASE_URL", &c.Site.BaseURL)
	envSeconds("REQUEST_TIMEOUT_SECONDS", &c.Site.RequestTimeout)
	envSeconds("CACHE_TTL_SECONDS", &c.Site.CacheTTL)
	envSeconds("MIN_DELAY_SECONDS", &c.Site.MinDelay)
	envSeconds("MAX_DELAY_SECONDS", &c.Site.MaxDelay)
	envInt("USER_RATE_LIMIT_PER_HOUR", &c.Limits.UserPerHour)
	envInt("DOMAIN_RATE_LIMIT_PER_MINUTE", &c.Limits.DomainPerMinute)
	envMinutes("WATCH_INTERVAL_MINUTES", &c.Watch.Interval)
	envInt("SCAN_MAX_PRODUCTS", &c.Scan.MaxProducts)
	envStr("OPS_ADDR", &c.Ops.Addr)
}

func (c *Config) applyDefaults() {
	if c.Bot.Workers <= 0 {
		c.Bot.Workers = 8
	}
	if len(c.Bot.AdminIDs) == 0 {
		c.Bot.AdminIDs = ParseAdminIDs(defaultAdminIDs)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.Path == "" {
		c.Database.Path = "maturmarket.sqlite3"
	}
	if c.Site.BaseURL == "" {
		c.Site.BaseURL = "https://maturmarket.ru"
	}
	if c.Site.RequestTimeout <= 0 {
		c.Site.RequestTimeout = 10 * time.Second
	}
	if c.Site.CacheTTL <= 0 {
		c.Site.CacheTTL = 90 * time.Second
	}
	if c.Site.MinDelay <= 0 {
		c.Site.MinDelay = 800 * time.Millisecond
	}
	if c.Site.MaxDelay <= 0 {
		c.Site.MaxDelay = 2500 * time.Millisecond
	}
	if c.Limits.UserPerHour <= 0 {
		c.Limits.UserPerHour = 30
	}
	if c.Limits.DomainPerMinute <= 0 {
		c.Limits.DomainPerMinute = 60
	}
	if c.Watch.Interval <= 0 {
		c.Watch.Interval = 15 * time.Minute
	}
	if c.Scan.MaxProducts <= 0 {
		c.Scan.MaxProducts = 200
	}
	if c.Ops.Addr == "" {
		c.Ops.Addr = ":9090"
	}
}

const defaultAdminIDs = "46375955,893022305,951910450"

// ParseAdminIDs parses a comma-separated id list, skipping junk entries.
func ParseAdminIDs(raw string) []int64 {
	var ids []int64
	for _, item := range strings.Split(raw, ",") {
		value := strings.TrimSpace(item)
		if value == "" {
			continue
		}
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func envStr(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

// envSeconds reads a number of seconds, accepting fractional values
// (e.g. MIN_DELAY_SECONDS=0.8).
func envSeconds(key string, dst *time.Duration) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f >= 0 {
			*dst = time.Duration(f * float64(time.Second))
		}
	}
}

func envMinutes(key string, dst *time.Duration) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			*dst = time.Duration(n) * time.Minute
		}
	}
}
