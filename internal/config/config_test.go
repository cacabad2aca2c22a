package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServiceAccounts(t *testing.T) {
	t.Run("empty is allowed", func(t *testing.T) {
		accounts, err := parseServiceAccounts("")
		require.NoError(t, err)
		assert.Empty(t, accounts)
	})

	t.Run("parses id role hash triples", func(t *testing.T) {
		accounts, err := parseServiceAccounts("desk:ADMIN:$2a$12$abc, agent:AGENT:$2a$12$def")
		require.NoError(t, err)
		require.Len(t, accounts, 2)
		assert.Equal(t, "desk", accounts[0].ID)
		assert.Equal(t, "ADMIN", accounts[0].Role)
		assert.Equal(t, "$2a$12$abc", accounts[0].SecretHash)
		assert.Equal(t, "agent", accounts[1].ID)
	})

	t.Run("rejects malformed entry", func(t *testing.T) {
		_, err := parseServiceAccounts("desk:ADMIN")
		require.Error(t, err)
	})
}

func TestEngineDurations(t *testing.T) {
	engine := EngineConfig{HookTimeoutSeconds: 5, SnapshotCacheTTLSeconds: 300, BreachScanIntervalSeconds: 60}
	assert.Equal(t, 5*time.Second, engine.HookTimeout())
	assert.Equal(t, 5*time.Minute, engine.SnapshotCacheTTL())
	assert.Equal(t, time.Minute, engine.BreachScanInterval())

	zero := EngineConfig{}
	assert.Equal(t, time.Duration(0), zero.HookTimeout())
	// The breach scanner always needs a cadence.
	assert.Equal(t, time.Minute, zero.BreachScanInterval())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ticket-lifecycle-engine", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.True(t, cfg.Postgres.RunMigrations)
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}
