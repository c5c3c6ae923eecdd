package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	_ "github.com/lib/pq"

	jwttoken "profilecheck/internal/jwt_token"
	"profilecheck/internal/ledger/kv"
	"profilecheck/internal/platform/config"
	"profilecheck/internal/platform/kafka"
	"profilecheck/internal/platform/redis"
	"profilecheck/internal/registry"
	"profilecheck/internal/settlement"
	"profilecheck/pkg/domain"
	audit "profilecheck/pkg/platform/audit"
	auditmemory "profilecheck/pkg/platform/audit/store/memory"
	auditpostgres "profilecheck/pkg/platform/audit/store/postgres"
)

// infra owns the process-wide connections and releases them in reverse order.
type infra struct {
	cfg     *config.Config
	log     *slog.Logger
	db      *sql.DB
	redis   *redis.Client
	closers []io.Closer
	health  map[string]func(context.Context) error
}

func newInfra(cfg *config.Config, log *slog.Logger) *infra {
	return &infra{cfg: cfg, log: log, health: make(map[string]func(context.Context) error)}
}

func (i *infra) postgres(ctx context.Context) (*sql.DB, error) {
	if i.db != nil {
		return i.db, nil
	}
	db, err := sql.Open("postgres", i.cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	i.db = db
	i.closers = append(i.closers, db)
	i.health["postgres"] = db.PingContext
	return db, nil
}

func (i *infra) redisClient(ctx context.Context) (*redis.Client, error) {
	if i.redis != nil {
		return i.redis, nil
	}
	client, err := redis.New(ctx, i.cfg.Redis)
	if err != nil {
		return nil, err
	}
	i.redis = client
	i.closers = append(i.closers, client)
	i.health["redis"] = client.Health
	return client, nil
}

// kvBackend opens the storage backend selected by storage.backend.
func (i *infra) kvBackend(ctx context.Context) (kv.Backend, error) {
	switch i.cfg.Storage.Backend {
	case config.BackendLevelDB:
		backend, err := kv.OpenLevelDB(i.cfg.Storage.LevelDBPath)
		if err != nil {
			return nil, err
		}
		i.closers = append(i.closers, backend)
		return backend, nil
	case config.BackendPostgres:
		db, err := i.postgres(ctx)
		if err != nil {
			return nil, err
		}
		backend := kv.NewPostgresBackend(db)
		if err := backend.Migrate(ctx); err != nil {
			return nil, err
		}
		return backend, nil
	case config.BackendRedis:
		client, err := i.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return kv.NewRedisBackend(client.Client, kv.WithKeyPrefix(i.cfg.Redis.KeyPrefix)), nil
	default:
		return kv.NewMemoryBackend(), nil
	}
}

func (i *infra) registryClient() (registry.Client, registry.Endpoints, error) {
	rc := i.cfg.Registry
	mainnet, err := domain.ParseAccountID(rc.MainnetContract)
	if err != nil {
		return nil, registry.Endpoints{}, fmt.Errorf("registry.mainnet_contract: %w", err)
	}
	testnet, err := domain.ParseAccountID(rc.TestnetContract)
	if err != nil {
		return nil, registry.Endpoints{}, fmt.Errorf("registry.testnet_contract: %w", err)
	}
	endpoints := registry.Endpoints{
		Mainnet: registry.Endpoint{Network: registry.NetworkMainnet, Contract: mainnet, RPCURL: rc.MainnetRPC},
		Testnet: registry.Endpoint{Network: registry.NetworkTestnet, Contract: testnet, RPCURL: rc.TestnetRPC},
	}

	if rc.Mode == config.RegistryStatic {
		client, err := registry.LoadStaticFixture(rc.StaticFixture, endpoints)
		if err != nil {
			return nil, registry.Endpoints{}, err
		}
		i.log.Warn("using static registry client; every query returns the fixture", "fixture", rc.StaticFixture)
		return client, endpoints, nil
	}
	client := registry.NewRPCClient(
		registry.WithHTTPClient(&http.Client{Timeout: rc.HTTPTimeout}),
		registry.WithLogger(i.log),
	)
	return client, endpoints, nil
}

func (i *infra) transferer(ctx context.Context) (settlement.Transferer, error) {
	if i.cfg.Settlement.Sink != config.SinkKafka {
		return settlement.NewBook(), nil
	}
	kc := i.cfg.Settlement.Kafka
	client, err := kafka.NewClient(kafka.Config{
		Brokers:  kc.Brokers,
		ClientID: kc.ClientID,
		Topic:    kc.Topic,
	})
	if err != nil {
		return nil, err
	}
	i.closers = append(i.closers, closerFunc(func() error {
		client.Close()
		return nil
	}))
	if err := kafka.EnsureTopic(ctx, client, kc.Topic, kc.Partitions, kc.ReplicationFactor); err != nil {
		return nil, err
	}
	i.health["kafka"] = func(ctx context.Context) error { return kafka.Health(ctx, client) }
	return settlement.NewKafkaTransferer(client, kc.Topic, i.log), nil
}

func (i *infra) auditStore(ctx context.Context) (audit.Store, error) {
	if i.cfg.Audit.Store != "postgres" {
		return auditmemory.NewInMemoryStore(), nil
	}
	db, err := i.postgres(ctx)
	if err != nil {
		return nil, err
	}
	store := auditpostgres.New(db)
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (i *infra) revocationList(ctx context.Context) (jwttoken.RevocationList, error) {
	if i.cfg.Auth.Revocation != "redis" {
		return jwttoken.NewMemoryRevocationList(), nil
	}
	client, err := i.redisClient(ctx)
	if err != nil {
		return nil, err
	}
	return jwttoken.NewRedisRevocationList(client.Client), nil
}

func (i *infra) Close() {
	for idx := len(i.closers) - 1; idx >= 0; idx-- {
		if err := i.closers[idx].Close(); err != nil {
			i.log.Warn("failed to close resource", "error", err)
		}
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
