// Package config loads server configuration from defaults, an optional YAML
// file and PROFILECHECK_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"profilecheck/internal/accounting"
	"profilecheck/pkg/domain"
)

// EnvPrefix namespaces environment overrides, e.g. PROFILECHECK_STORAGE_BACKEND.
const EnvPrefix = "PROFILECHECK"

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendLevelDB  = "leveldb"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Refund sinks.
const (
	SinkBook  = "book"
	SinkKafka = "kafka"
)

// Registry modes.
const (
	RegistryRPC    = "rpc"
	RegistryStatic = "static"
)

type Config struct {
	Server       Server
	Log          Log
	Auth         Auth
	Storage      Storage
	Redis        RedisConfig
	Registry     Registry
	Verification Verification
	Settlement   Settlement
	Audit        Audit
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type Log struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is text or json.
	Format string
}

type Auth struct {
	JWTSigningKey string
	Issuer        string
	Audience      string
	// Revocation is memory or redis.
	Revocation string
}

type Storage struct {
	Backend     string
	LevelDBPath string
	PostgresDSN string
	TxTimeout   time.Duration
}

type RedisConfig struct {
	URL          string
	KeyPrefix    string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Registry struct {
	Mode            string
	HTTPTimeout     time.Duration
	MainnetContract string
	MainnetRPC      string
	TestnetContract string
	TestnetRPC      string
	// StaticFixture is the JSON document served by every endpoint in static mode.
	StaticFixture string
}

type Verification struct {
	QueryBudget  time.Duration
	Retention    time.Duration
	ByteCostRate string
}

// Rate parses ByteCostRate.
func (v Verification) Rate() (domain.Amount, error) {
	return domain.ParseAmount(v.ByteCostRate)
}

type Settlement struct {
	Sink  string
	Kafka KafkaConfig
}

type KafkaConfig struct {
	Brokers           []string
	ClientID          string
	Topic             string
	Partitions        int32
	ReplicationFactor int16
}

type Audit struct {
	// Store is memory or postgres.
	Store  string
	Buffer int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Use a default for development - should be overridden in production
	v.SetDefault("auth.jwt_signing_key", "dev-secret-key-change-in-production")
	v.SetDefault("auth.issuer", "profilecheck")
	v.SetDefault("auth.audience", "profilecheck-api")
	v.SetDefault("auth.revocation", "memory")

	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.leveldb_path", "data/ledger")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.tx_timeout", 5*time.Second)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.key_prefix", "profilecheck:kv:")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("registry.mode", RegistryRPC)
	v.SetDefault("registry.http_timeout", 10*time.Second)
	v.SetDefault("registry.mainnet_contract", "social.near")
	v.SetDefault("registry.mainnet_rpc", "https://rpc.mainnet.near.org")
	v.SetDefault("registry.testnet_contract", "v1.social08.testnet")
	v.SetDefault("registry.testnet_rpc", "https://rpc.testnet.near.org")
	v.SetDefault("registry.static_fixture", "")

	v.SetDefault("verification.query_budget", 5*time.Second)
	v.SetDefault("verification.retention", 15*time.Minute)
	v.SetDefault("verification.byte_cost_rate", accounting.DefaultByteCostRate.String())

	v.SetDefault("settlement.sink", SinkBook)
	v.SetDefault("settlement.kafka.brokers", "")
	v.SetDefault("settlement.kafka.client_id", "profilecheck")
	v.SetDefault("settlement.kafka.topic", "profilecheck.refunds")
	v.SetDefault("settlement.kafka.partitions", 3)
	v.SetDefault("settlement.kafka.replication_factor", 1)

	v.SetDefault("audit.store", "memory")
	v.SetDefault("audit.buffer", 1024)
}

// Load reads configuration. path may be empty to use defaults and the
// environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Server: Server{
			Addr:            v.GetString("server.addr"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Log: Log{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		Auth: Auth{
			JWTSigningKey: v.GetString("auth.jwt_signing_key"),
			Issuer:        v.GetString("auth.issuer"),
			Audience:      v.GetString("auth.audience"),
			Revocation:    v.GetString("auth.revocation"),
		},
		Storage: Storage{
			Backend:     strings.ToLower(v.GetString("storage.backend")),
			LevelDBPath: v.GetString("storage.leveldb_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
			TxTimeout:   v.GetDuration("storage.tx_timeout"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis.url"),
			KeyPrefix:    v.GetString("redis.key_prefix"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
		},
		Registry: Registry{
			Mode:            strings.ToLower(v.GetString("registry.mode")),
			HTTPTimeout:     v.GetDuration("registry.http_timeout"),
			MainnetContract: v.GetString("registry.mainnet_contract"),
			MainnetRPC:      v.GetString("registry.mainnet_rpc"),
			TestnetContract: v.GetString("registry.testnet_contract"),
			TestnetRPC:      v.GetString("registry.testnet_rpc"),
			StaticFixture:   v.GetString("registry.static_fixture"),
		},
		Verification: Verification{
			QueryBudget:  v.GetDuration("verification.query_budget"),
			Retention:    v.GetDuration("verification.retention"),
			ByteCostRate: v.GetString("verification.byte_cost_rate"),
		},
		Settlement: Settlement{
			Sink: strings.ToLower(v.GetString("settlement.sink")),
			Kafka: KafkaConfig{
				Brokers:           splitList(v.GetString("settlement.kafka.brokers")),
				ClientID:          v.GetString("settlement.kafka.client_id"),
				Topic:             v.GetString("settlement.kafka.topic"),
				Partitions:        v.GetInt32("settlement.kafka.partitions"),
				ReplicationFactor: int16(v.GetInt("settlement.kafka.replication_factor")),
			},
		},
		Audit: Audit{
			Store:  strings.ToLower(v.GetString("audit.store")),
			Buffer: v.GetInt("audit.buffer"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every selected backend has what it needs.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendLevelDB:
		if c.Storage.LevelDBPath == "" {
			errs = append(errs, errors.New("storage.leveldb_path is required for the leveldb backend"))
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres backend"))
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}

	switch c.Registry.Mode {
	case RegistryRPC:
	case RegistryStatic:
		if c.Registry.StaticFixture == "" {
			errs = append(errs, errors.New("registry.static_fixture is required for the static registry"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown registry.mode %q", c.Registry.Mode))
	}

	switch c.Settlement.Sink {
	case SinkBook:
	case SinkKafka:
		if len(c.Settlement.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("settlement.kafka.brokers is required for the kafka sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown settlement.sink %q", c.Settlement.Sink))
	}

	switch c.Audit.Store {
	case "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres audit store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown audit.store %q", c.Audit.Store))
	}

	switch c.Auth.Revocation {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for redis token revocation"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown auth.revocation %q", c.Auth.Revocation))
	}

	if c.Auth.JWTSigningKey == "" {
		errs = append(errs, errors.New("auth.jwt_signing_key is required"))
	}
	if c.Verification.QueryBudget <= 0 {
		errs = append(errs, errors.New("verification.query_budget must be positive"))
	}
	if _, err := c.Verification.Rate(); err != nil {
		errs = append(errs, fmt.Errorf("verification.byte_cost_rate: %w", err))
	}
	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
