package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // market time zone on hosts without a zoneinfo database

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	HTTP        struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
		CORS            bool          `yaml:"cors"`
	} `yaml:"http"`
	Upstream struct {
		// Provider is stockapi (the app's own backend) or finnhub.
		Provider   string        `yaml:"provider" default:"stockapi"`
		BaseURL    string        `yaml:"base_url" default:"http://localhost:3000/api/"`
		FinnhubURL string        `yaml:"finnhub_url" default:"https://finnhub.io/api/v1/"`
		FinnhubKey string        `yaml:"finnhub_key"`
		Timeout    time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"upstream"`
	Market struct {
		Timezone  string `yaml:"timezone" default:"America/Los_Angeles"`
		NewsLimit int    `yaml:"news_limit" default:"20"`
	} `yaml:"market"`
	Cache struct {
		// Driver is none, memory, redis or layered (memory in front of redis).
		Driver        string        `yaml:"driver" default:"memory"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"10000"`
		MemoryCleanup time.Duration `yaml:"memory_cleanup" default:"1m"`
		MemoryTTL     time.Duration `yaml:"memory_ttl" default:"30s"`
		Redis         struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			PoolSize int    `yaml:"pool_size" default:"20"`
			Prefix   string `yaml:"prefix" default:"stockdesk"`
		} `yaml:"redis"`
		// TTL per market endpoint; a negative value disables caching for it.
		TTL struct {
			Profile         time.Duration `yaml:"profile" default:"24h"`
			Quote           time.Duration `yaml:"quote" default:"15s"`
			Peers           time.Duration `yaml:"peers" default:"24h"`
			Insider         time.Duration `yaml:"insider" default:"6h"`
			News            time.Duration `yaml:"news" default:"5m"`
			Hourly          time.Duration `yaml:"hourly" default:"5m"`
			History         time.Duration `yaml:"history" default:"1h"`
			Recommendations time.Duration `yaml:"recommendations" default:"6h"`
			Earnings        time.Duration `yaml:"earnings" default:"6h"`
			Search          time.Duration `yaml:"search" default:"10m"`
		} `yaml:"ttl"`
	} `yaml:"cache"`
	Journal struct {
		// Backend is none, kafka or clickhouse.
		Backend string `yaml:"backend" default:"none"`
		Topic   string `yaml:"topic" default:"stockdesk.trades"`
		Table   string `yaml:"table" default:"trade_journal"`
		// Consume stores events from the Kafka topic into ClickHouse.
		Consume  bool `yaml:"consume"`
		Pipeline struct {
			BufferSize int           `yaml:"buffer_size" default:"1000"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
		} `yaml:"pipeline"`
	} `yaml:"journal"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"stockdesk-journal"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"stockdesk.trades.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		DSN             string        `yaml:"dsn" default:"clickhouse://default:@localhost:9000/default"`
		MaxOpenConns    int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns    int           `yaml:"max_idle_conns" default:"5"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"1h"`
		AsyncInsert     bool          `yaml:"async_insert"`
		WaitForAsync    bool          `yaml:"wait_for_async_insert"`
	} `yaml:"clickhouse"`
	RateLimit struct {
		Enabled   bool    `yaml:"enabled"`
		Burst     float64 `yaml:"burst" default:"30"`
		PerSecond float64 `yaml:"per_second" default:"10"`
	} `yaml:"ratelimit"`
	Log struct {
		Level     string `yaml:"level" default:"info"`
		Format    string `yaml:"format" default:"console"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled        bool          `yaml:"enabled"`
			Topic          string        `yaml:"topic" default:"stockdesk.logs"`
			FlushInterval  time.Duration `yaml:"flush_interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"log"`
}

// Load reads a YAML configuration file, fills unset fields with defaults and validates.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config and overrides it with environment variables before validating.
func LoadWithEnv(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("STOCKDESK_API_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := os.Getenv("UPSTREAM_PROVIDER"); v != "" {
		c.Upstream.Provider = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Upstream.FinnhubKey = v
	}
	if v := os.Getenv("CACHE_DRIVER"); v != "" {
		c.Cache.Driver = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("JOURNAL_BACKEND"); v != "" {
		c.Journal.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		c.ClickHouse.DSN = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.HTTP.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.HTTP.Port)
	}

	switch c.Upstream.Provider {
	case "stockapi":
		if c.Upstream.BaseURL == "" {
			return fmt.Errorf("upstream.base_url is required for provider stockapi")
		}
	case "finnhub":
		if c.Upstream.FinnhubKey == "" {
			return fmt.Errorf("upstream.finnhub_key is required for provider finnhub")
		}
	default:
		return fmt.Errorf("upstream.provider must be 'stockapi' or 'finnhub', got '%s'", c.Upstream.Provider)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	switch c.Cache.Driver {
	case "none", "memory", "redis", "layered":
	default:
		return fmt.Errorf("cache.driver must be one of none, memory, redis, layered, got '%s'", c.Cache.Driver)
	}

	switch c.Journal.Backend {
	case "none":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required for journal backend kafka")
		}
	case "clickhouse":
	default:
		return fmt.Errorf("journal.backend must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Journal.Backend)
	}
	if c.NeedsClickHouse() && c.ClickHouse.DSN == "" {
		return fmt.Errorf("clickhouse.dsn is required")
	}
	if c.Log.Collector.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required for the log collector")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Burst < 1 || c.RateLimit.PerSecond <= 0) {
		return fmt.Errorf("ratelimit needs burst >= 1 and per_second > 0")
	}
	return nil
}

// Location returns the market time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Market.Timezone)
	if err != nil {
		return nil, fmt.Errorf("market.timezone: %w", err)
	}
	return loc, nil
}

// NeedsClickHouse reports whether the journal store is used, directly or behind the Kafka consumer.
func (c *Config) NeedsClickHouse() bool {
	return c.Journal.Backend == "clickhouse" || (c.Journal.Backend == "kafka" && c.Journal.Consume)
}

// NeedsKafka reports whether a producer is needed, for the journal or the log collector.
func (c *Config) NeedsKafka() bool {
	return c.Journal.Backend == "kafka" || c.Log.Collector.Enabled
}
