package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Setenv("STORE_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "badger", cfg.Store.Driver)
	assert.Equal(t, "memory", cfg.Vector.Driver)
	assert.Equal(t, 0.5, cfg.Query.ConfidenceWeight)
	assert.Equal(t, 4, cfg.Query.OverfetchFactor)
	assert.False(t, cfg.Query.IncludeSuperseded)
	assert.True(t, cfg.Query.IncludeNeedsClarification)
}

func TestLoadQuerySettings(t *testing.T) {
	viper.Reset()
	viper.Set("query.confidence_weight", 0.9)
	viper.Set("query.min_score", 0.25)
	viper.Set("query.include_superseded", true)
	viper.Set("query.include_needs_clarification", false)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.Query.ConfidenceWeight)
	assert.Equal(t, 0.25, cfg.Query.MinScore)
	assert.True(t, cfg.Query.IncludeSuperseded)
	assert.False(t, cfg.Query.IncludeNeedsClarification)
}

func TestServerPortEnvOverride(t *testing.T) {
	viper.Reset()
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestServerPortEnvOverrideRejectsNonNumeric(t *testing.T) {
	viper.Reset()
	t.Setenv("SERVER_PORT", "not-a-port")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
}
