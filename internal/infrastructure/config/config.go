package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the complete service configuration
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Log         LogConfig         `mapstructure:"log"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Outbox      OutboxConfig      `mapstructure:"outbox"`
	Anomaly     AnomalyConfig     `mapstructure:"anomaly"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

// DSN renders a postgres URL with user info and database name escaped
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// KafkaConfig covers the invoice consumer group and the posted-event relay
type KafkaConfig struct {
	Brokers      []string `mapstructure:"brokers"`
	InvoiceTopic string   `mapstructure:"invoice_topic"`
	GroupID      string   `mapstructure:"group_id"`
	// Workers is the number of consumer group members run by this process
	Workers       int           `mapstructure:"workers"`
	MinBytes      int           `mapstructure:"min_bytes"`
	MaxBytes      int           `mapstructure:"max_bytes"`
	MaxWait       time.Duration `mapstructure:"max_wait"`
	RejoinBackoff time.Duration `mapstructure:"rejoin_backoff"`
	// DeadLetterTopic receives facts that can never post; empty disables it
	DeadLetterTopic   string        `mapstructure:"dead_letter_topic"`
	PostedTopic       string        `mapstructure:"posted_topic"`
	PublishPosted     bool          `mapstructure:"publish_posted"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	HandlerTimeout    time.Duration `mapstructure:"handler_timeout"`
	StartFromEarliest bool          `mapstructure:"start_from_earliest"`
}

// IdempotencyConfig tunes the processed-fact pre-filter
type IdempotencyConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	TTL          time.Duration `mapstructure:"ttl"`
	Backend      string        `mapstructure:"backend"`       // redis or memory
	RequireRedis bool          `mapstructure:"require_redis"` // refuse to start on the memory fallback
}

type OutboxConfig struct {
	ProcessorEnabled bool          `mapstructure:"processor_enabled"`
	BatchSize        int           `mapstructure:"batch_size"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	MaxRetries       int           `mapstructure:"max_retries"`
	CleanupEnabled   bool          `mapstructure:"cleanup_enabled"`
	CleanupRetention time.Duration `mapstructure:"cleanup_retention"`
}

type AnomalyConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type HTTPConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
	TrustedProxies []string      `mapstructure:"trusted_proxies"`
}

// TelemetryConfig configures OTLP export of traces, metrics and logs
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"` // gRPC, host:port
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"`
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	LogsEnabled       bool          `mapstructure:"logs_enabled"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	// DBLogFullSQL records statements with bound values; never in production
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`

	Profiling ProfilingConfig `mapstructure:"profiling"`
}

// ProfilingConfig configures Pyroscope continuous profiling
type ProfilingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	ServerAddress     string `mapstructure:"server_address"`
	BasicAuthUser     string `mapstructure:"basic_auth_user"`
	BasicAuthPassword string `mapstructure:"basic_auth_password"`
	// ProfileTypes: cpu, alloc_objects, alloc_space, inuse_objects, inuse_space,
	// goroutines, mutex_count, mutex_duration, block_count, block_duration
	ProfileTypes         []string `mapstructure:"profile_types"`
	MutexProfileFraction int      `mapstructure:"mutex_profile_fraction"`
	BlockProfileRate     int      `mapstructure:"block_profile_rate"`
	// LinkSpans tags profiles with the root span id of the trace being sampled
	LinkSpans bool `mapstructure:"link_spans"`
}

// defaults registers every key. Viper only maps GL_ variables onto keys it
// knows, so keys without a meaningful default are registered empty.
var defaults = map[string]any{
	"app.name": "gl-service",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "gl",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"kafka.brokers":             []string{"localhost:9092"},
	"kafka.invoice_topic":       "invoice.issued.v1",
	"kafka.group_id":            "gl-service",
	"kafka.workers":             4,
	"kafka.min_bytes":           1,
	"kafka.max_bytes":           10 << 20,
	"kafka.max_wait":            500 * time.Millisecond,
	"kafka.rejoin_backoff":      5 * time.Second,
	"kafka.dead_letter_topic":   "",
	"kafka.posted_topic":        "gl.transaction.posted.v1",
	"kafka.publish_posted":      false,
	"kafka.write_timeout":       10 * time.Second,
	"kafka.handler_timeout":     30 * time.Second,
	"kafka.start_from_earliest": false,

	"idempotency.enabled":       true,
	"idempotency.ttl":           24 * time.Hour,
	"idempotency.backend":       "redis",
	"idempotency.require_redis": false,

	"outbox.processor_enabled": true,
	"outbox.batch_size":        100,
	"outbox.poll_interval":     5 * time.Second,
	"outbox.max_retries":       5,
	"outbox.cleanup_enabled":   true,
	"outbox.cleanup_retention": 7 * 24 * time.Hour,

	"anomaly.enabled": false,
	"anomaly.url":     "",
	"anomaly.timeout": 2 * time.Second,

	"http.enabled":          true,
	"http.read_timeout":     15 * time.Second,
	"http.write_timeout":    15 * time.Second,
	"http.idle_timeout":     60 * time.Second,
	"http.max_header_bytes": 1 << 20,
	"http.trusted_proxies":  []string{},

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "gl-service",
	"telemetry.insecure":                false,
	"telemetry.metrics_enabled":         false,
	"telemetry.metrics_interval":        time.Minute,
	"telemetry.logs_enabled":            false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,

	"telemetry.profiling.enabled":                false,
	"telemetry.profiling.server_address":         "http://localhost:4040",
	"telemetry.profiling.basic_auth_user":        "",
	"telemetry.profiling.basic_auth_password":    "",
	"telemetry.profiling.profile_types":          []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"},
	"telemetry.profiling.mutex_profile_fraction": 5,
	"telemetry.profiling.block_profile_rate":     5,
	"telemetry.profiling.link_spans":             true,
}

// Load resolves configuration from, highest priority first: GL_ prefixed
// environment variables (GL_DATABASE_PASSWORD), an optional .env file,
// config.toml in . or /app, and the defaults above.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	v.SetEnvPrefix("GL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv exports a dotenv file without overriding variables that are
// already set. A missing file is fine.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("read %s: %w", path, err)
}

func (c *Config) validate() error {
	db, k := c.Database, c.Kafka
	checks := []struct {
		bad bool
		msg string
	}{
		{db.MaxOpenConns <= 0, "database.max_open_conns must be positive"},
		{db.MaxIdleConns < 0, "database.max_idle_conns cannot be negative"},
		{db.MaxIdleConns > db.MaxOpenConns,
			fmt.Sprintf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)", db.MaxIdleConns, db.MaxOpenConns)},
		{k.Workers <= 0, "kafka.workers must be positive"},
		// a worker holds a connection for the whole posting
		{k.Workers > db.MaxOpenConns,
			fmt.Sprintf("kafka.workers (%d) cannot exceed database.max_open_conns (%d)", k.Workers, db.MaxOpenConns)},
		{k.DeadLetterTopic != "" && k.DeadLetterTopic == k.InvoiceTopic, "kafka.dead_letter_topic must differ from kafka.invoice_topic"},
		{c.Idempotency.Backend != "redis" && c.Idempotency.Backend != "memory",
			fmt.Sprintf("idempotency.backend must be 'redis' or 'memory', got %q", c.Idempotency.Backend)},
		{c.Anomaly.Enabled && c.Anomaly.URL == "", "anomaly.url is required when anomaly.enabled is true"},
		{c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1,
			fmt.Sprintf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %g", c.Telemetry.SamplingRatio)},
		{c.Telemetry.Profiling.Enabled && c.Telemetry.Profiling.ServerAddress == "",
			"telemetry.profiling.server_address is required when profiling is enabled"},
	}

	if c.App.Env == "production" {
		checks = append(checks, []struct {
			bad bool
			msg string
		}{
			{db.Password == "", "database.password is required in production"},
			{db.SSLMode == "disable", "database.sslmode cannot be 'disable' in production"},
			{c.Telemetry.DBLogFullSQL, "telemetry.db_log_full_sql must be false in production"},
		}...)
	}
	for _, check := range checks {
		if check.bad {
			return errors.New(check.msg)
		}
	}
	for _, name := range c.Telemetry.Profiling.ProfileTypes {
		if !slices.Contains(profileTypeNames, name) {
			return fmt.Errorf("telemetry.profiling.profile_types has unknown type %q", name)
		}
	}
	return nil
}

var profileTypeNames = []string{
	"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space",
	"goroutines", "mutex_count", "mutex_duration", "block_count", "block_duration",
}
