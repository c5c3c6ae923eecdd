package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, RegistryRPC, cfg.Registry.Mode)
	assert.Equal(t, "social.near", cfg.Registry.MainnetContract)
	assert.Equal(t, "v1.social08.testnet", cfg.Registry.TestnetContract)
	assert.Equal(t, 5*time.Second, cfg.Verification.QueryBudget)
	assert.Equal(t, SinkBook, cfg.Settlement.Sink)

	rate, err := cfg.Verification.Rate()
	require.NoError(t, err)
	assert.Equal(t, "10000000000000000000", rate.String())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("PROFILECHECK_STORAGE_BACKEND", "leveldb")
	t.Setenv("PROFILECHECK_STORAGE_LEVELDB_PATH", "/tmp/ledger")
	t.Setenv("PROFILECHECK_VERIFICATION_QUERY_BUDGET", "2s")
	t.Setenv("PROFILECHECK_SETTLEMENT_SINK", "kafka")
	t.Setenv("PROFILECHECK_SETTLEMENT_KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendLevelDB, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/ledger", cfg.Storage.LevelDBPath)
	assert.Equal(t, 2*time.Second, cfg.Verification.QueryBudget)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Settlement.Kafka.Brokers)
}

func TestLoadStaticRegistryFixture(t *testing.T) {
	t.Setenv("PROFILECHECK_REGISTRY_MODE", "static")
	t.Setenv("PROFILECHECK_REGISTRY_STATIC_FIXTURE", "/etc/profilecheck/fixture.json")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, RegistryStatic, cfg.Registry.Mode)
	assert.Equal(t, "/etc/profilecheck/fixture.json", cfg.Registry.StaticFixture)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
storage:
  backend: postgres
  postgres_dsn: postgres://localhost/profilecheck
verification:
  byte_cost_rate: "1"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, "postgres://localhost/profilecheck", cfg.Storage.PostgresDSN)
	assert.Equal(t, "1", cfg.Verification.ByteCostRate)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown backend", map[string]string{"PROFILECHECK_STORAGE_BACKEND": "cassandra"}, `unknown storage.backend "cassandra"`},
		{"postgres without dsn", map[string]string{"PROFILECHECK_STORAGE_BACKEND": "postgres"}, "storage.postgres_dsn is required"},
		{"redis without url", map[string]string{"PROFILECHECK_STORAGE_BACKEND": "redis"}, "redis.url is required"},
		{"static registry without fixture", map[string]string{"PROFILECHECK_REGISTRY_MODE": "static"}, "registry.static_fixture is required"},
		{"kafka without brokers", map[string]string{"PROFILECHECK_SETTLEMENT_SINK": "kafka"}, "settlement.kafka.brokers is required"},
		{"bad rate", map[string]string{"PROFILECHECK_VERIFICATION_BYTE_COST_RATE": "1e19"}, "verification.byte_cost_rate"},
		{"zero budget", map[string]string{"PROFILECHECK_VERIFICATION_QUERY_BUDGET": "0s"}, "query_budget must be positive"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
