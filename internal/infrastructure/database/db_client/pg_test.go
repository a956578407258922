package db_client

import (
	"testing"

	"github.com/mufasadev/grinpay/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.PostgreSQL {
	return config.PostgreSQL{
		Driver:   "postgres",
		Host:     "localhost",
		Port:     "5432",
		Database: "grinpay",
		Username: "grinpay",
		Password: "grinpay",
		SSLMode:  "disable",
		MaxConns: 4,
	}
}

func TestPGClient_PoolConfig(t *testing.T) {
	poolConfig, err := NewPGClient(testConfig()).PoolConfig()
	require.NoError(t, err)

	assert.Equal(t, int32(4), poolConfig.MaxConns)
	assert.Equal(t, healthCheckPeriod, poolConfig.HealthCheckPeriod)
	assert.Equal(t, "grinpay", poolConfig.ConnConfig.Database)
	assert.Equal(t, applicationName, poolConfig.ConnConfig.RuntimeParams["application_name"])
	assert.NotNil(t, poolConfig.AfterConnect)

	t.Run("default max conns kept", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxConns = 0
		poolConfig, err := NewPGClient(cfg).PoolConfig()
		require.NoError(t, err)
		assert.Positive(t, poolConfig.MaxConns)
	})

	t.Run("invalid port", func(t *testing.T) {
		cfg := testConfig()
		cfg.Port = "not-a-port"
		_, err := NewPGClient(cfg).PoolConfig()
		assert.Error(t, err)
	})
}
