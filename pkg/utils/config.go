package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Waiting    WaitingConfig
	Scheduler  SchedulerConfig
	Redis      RedisConfig
	Telemetry  TelemetryConfig
	Reconciler ReconcilerConfig
}

type AppConfig struct {
	Name         string
	Port         string
	Debug        bool
	LogPath      string
	StoreBackend string
	SeedDemo     bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxConns int32
	Migrate  bool
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// WaitingConfig holds the queue policy. The windows are how long a called
// party has to confirm, and how long a confirmed party has to arrive.
type WaitingConfig struct {
	ReadyToConfirmWindow time.Duration
	ConfirmedWindow      time.Duration
	ExpiryGrace          time.Duration
	MaxPartySize         int
}

type SchedulerConfig struct {
	Backend      string
	Workers      int
	QueueSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
	TaskTimeout  time.Duration
	PollInterval time.Duration
	BatchSize    int
	RedisKey     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type TelemetryConfig struct {
	ServiceName  string
	OTLPEndpoint string
	OTLPInsecure bool
}

type ReconcilerConfig struct {
	Enabled   bool
	Spec      string
	BatchSize int
}

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"

	SchedulerBackendLocal = "local"
	SchedulerBackendRedis = "redis"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "booth-waitlist")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("STORE_BACKEND", StoreBackendPostgres)
	v.SetDefault("SEED_DEMO", false)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIGRATE", true)

	v.SetDefault("JWT_EXPIRY_HOURS", 12)

	v.SetDefault("WAITING_READY_TO_CONFIRM_WINDOW", 180*time.Second)
	v.SetDefault("WAITING_CONFIRMED_WINDOW", 600*time.Second)
	v.SetDefault("WAITING_EXPIRY_GRACE", time.Second)
	v.SetDefault("WAITING_MAX_PARTY_SIZE", 20)

	v.SetDefault("SCHEDULER_BACKEND", SchedulerBackendLocal)
	v.SetDefault("SCHEDULER_WORKERS", 4)
	v.SetDefault("SCHEDULER_QUEUE_SIZE", 1024)
	v.SetDefault("SCHEDULER_MAX_ATTEMPTS", 5)
	v.SetDefault("SCHEDULER_RETRY_BACKOFF", 2*time.Second)
	v.SetDefault("SCHEDULER_TASK_TIMEOUT", 10*time.Second)
	v.SetDefault("SCHEDULER_POLL_INTERVAL", time.Second)
	v.SetDefault("SCHEDULER_BATCH_SIZE", 100)
	v.SetDefault("SCHEDULER_REDIS_KEY", "booth-waitlist:expiry")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("OTEL_SERVICE_NAME", "booth-waitlist")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)

	v.SetDefault("RECONCILER_ENABLED", true)
	v.SetDefault("RECONCILER_SPEC", "@every 30s")
	v.SetDefault("RECONCILER_BATCH_SIZE", 200)
}

// LoadConfig reads the optional env file at path, then the environment.
// Flags bound from the command line win over both.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.AutomaticEnv()

	if flags != nil {
		if f := flags.Lookup("port"); f != nil {
			if err := v.BindPFlag("PORT", f); err != nil {
				return nil, fmt.Errorf("bind port flag: %w", err)
			}
		}
		if f := flags.Lookup("seed-demo"); f != nil {
			if err := v.BindPFlag("SEED_DEMO", f); err != nil {
				return nil, fmt.Errorf("bind seed-demo flag: %w", err)
			}
		}
	}

	config := &Config{
		App: AppConfig{
			Name:         v.GetString("APP_NAME"),
			Port:         v.GetString("PORT"),
			Debug:        v.GetBool("DEBUG"),
			LogPath:      v.GetString("LOG_PATH"),
			StoreBackend: v.GetString("STORE_BACKEND"),
			SeedDemo:     v.GetBool("SEED_DEMO"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
			Migrate:  v.GetBool("DB_MIGRATE"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		Waiting: WaitingConfig{
			ReadyToConfirmWindow: v.GetDuration("WAITING_READY_TO_CONFIRM_WINDOW"),
			ConfirmedWindow:      v.GetDuration("WAITING_CONFIRMED_WINDOW"),
			ExpiryGrace:          v.GetDuration("WAITING_EXPIRY_GRACE"),
			MaxPartySize:         v.GetInt("WAITING_MAX_PARTY_SIZE"),
		},
		Scheduler: SchedulerConfig{
			Backend:      v.GetString("SCHEDULER_BACKEND"),
			Workers:      v.GetInt("SCHEDULER_WORKERS"),
			QueueSize:    v.GetInt("SCHEDULER_QUEUE_SIZE"),
			MaxAttempts:  v.GetInt("SCHEDULER_MAX_ATTEMPTS"),
			RetryBackoff: v.GetDuration("SCHEDULER_RETRY_BACKOFF"),
			TaskTimeout:  v.GetDuration("SCHEDULER_TASK_TIMEOUT"),
			PollInterval: v.GetDuration("SCHEDULER_POLL_INTERVAL"),
			BatchSize:    v.GetInt("SCHEDULER_BATCH_SIZE"),
			RedisKey:     v.GetString("SCHEDULER_REDIS_KEY"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Telemetry: TelemetryConfig{
			ServiceName:  v.GetString("OTEL_SERVICE_NAME"),
			OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			OTLPInsecure: v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
		},
		Reconciler: ReconcilerConfig{
			Enabled:   v.GetBool("RECONCILER_ENABLED"),
			Spec:      v.GetString("RECONCILER_SPEC"),
			BatchSize: v.GetInt("RECONCILER_BATCH_SIZE"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.App.StoreBackend != StoreBackendPostgres && c.App.StoreBackend != StoreBackendMemory {
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreBackendPostgres, StoreBackendMemory, c.App.StoreBackend))
	}
	if c.Scheduler.Backend != SchedulerBackendLocal && c.Scheduler.Backend != SchedulerBackendRedis {
		errs = append(errs, fmt.Errorf("SCHEDULER_BACKEND must be %q or %q, got %q", SchedulerBackendLocal, SchedulerBackendRedis, c.Scheduler.Backend))
	}
	if c.Waiting.ReadyToConfirmWindow <= 0 || c.Waiting.ConfirmedWindow <= 0 {
		errs = append(errs, errors.New("waiting windows must be positive"))
	}
	if c.Waiting.ExpiryGrace < 0 {
		errs = append(errs, errors.New("WAITING_EXPIRY_GRACE must not be negative"))
	}
	if c.Waiting.MaxPartySize < 1 {
		errs = append(errs, errors.New("WAITING_MAX_PARTY_SIZE must be at least 1"))
	}

	return errors.Join(errs...)
}

// ConfigPathFromEnv returns CONFIG_FILE or the default ".env".
func ConfigPathFromEnv() string {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return path
	}
	return ".env"
}
