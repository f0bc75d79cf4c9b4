package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/lpn-service/pkg/logging"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("EVENT_STORE_DRIVER", "postgres")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("MONGODB_DATABASE", "")

	cfg := LoadConfig("lpn-service")

	assert.Equal(t, DriverPostgres, cfg.EventStoreDriver)
	assert.Equal(t, DriverMemory, cfg.LockDriver)
	assert.Equal(t, "lpn_db", cfg.MongoDB.Database)
	require.NotNil(t, cfg.Kafka)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "lpn-service", cfg.Kafka.ClientID)
}

func TestLoadConfigWithoutKafka(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	assert.Nil(t, LoadConfig("lpn-service").Kafka)
}

func TestBuildInMemory(t *testing.T) {
	cfg := &Config{ServiceName: "lpn-service", EventStoreDriver: DriverMemory, LockDriver: DriverMemory}

	rt, err := Build(context.Background(), cfg, logging.NewNop(), nil, nil)
	require.NoError(t, err)
	defer rt.Close(context.Background())

	require.NotNil(t, rt.Handlers)
	assert.NotNil(t, rt.Handlers.Receive)
	assert.NotNil(t, rt.Handlers.Waves)
	assert.NoError(t, rt.Start(context.Background()))
	assert.NoError(t, rt.Ready(context.Background()))
}

func TestBuildWithRedisLocks(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &Config{
		ServiceName:      "lpn-service",
		EventStoreDriver: DriverMemory,
		LockDriver:       DriverRedis,
		RedisAddr:        mr.Addr(),
	}

	rt, err := Build(context.Background(), cfg, logging.NewNop(), nil, nil)
	require.NoError(t, err)
	defer rt.Close(context.Background())

	assert.NoError(t, rt.Ready(context.Background()))
	mr.Close()
	assert.Error(t, rt.Ready(context.Background()))
}

func TestBuildRejectsUnknownDrivers(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"event store", Config{EventStoreDriver: "cassandra", LockDriver: DriverMemory}},
		{"locks", Config{EventStoreDriver: DriverMemory, LockDriver: "zookeeper"}},
		{"policy file", Config{EventStoreDriver: DriverMemory, LockDriver: DriverMemory, ReceivingPolicyFile: "/nonexistent/policy.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(context.Background(), &tt.cfg, logging.NewNop(), nil, nil)
			assert.Error(t, err)
		})
	}
}

func TestAddCheck(t *testing.T) {
	cfg := &Config{ServiceName: "lpn-service", EventStoreDriver: DriverMemory, LockDriver: DriverMemory}
	rt, err := Build(context.Background(), cfg, logging.NewNop(), nil, nil)
	require.NoError(t, err)

	down := errors.New("temporal unreachable")
	closed := false
	rt.AddCheck(
		func(context.Context) error { return down },
		func(context.Context) error {
			closed = true
			return nil
		},
	)

	assert.ErrorIs(t, rt.Ready(context.Background()), down)
	rt.Close(context.Background())
	assert.True(t, closed)
}
