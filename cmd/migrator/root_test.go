package main

import (
	"testing"

	"github.com/oramigrate/oracle-to-mssql/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveString_FlagTakesPrecedenceOverConfig(t *testing.T) {
	assert.Equal(t, "from-flag", resolveString("from-flag", "from-config"))
	assert.Equal(t, "from-config", resolveString("", "from-config"))
	assert.Equal(t, "", resolveString("", ""))
}

func TestResolveBool_AnyTrueWins(t *testing.T) {
	assert.True(t, resolveBool(true, false))
	assert.True(t, resolveBool(false, true))
	assert.False(t, resolveBool(false, false))
}

func TestApplyCredentialOverrides_FlagsOverrideConfigFile(t *testing.T) {
	orig := oracleHost
	origPort := oraclePort
	oracleHost = "flag-host"
	oraclePort = "1521"
	defer func() { oracleHost = orig; oraclePort = origPort }()

	c := &config.Config{}
	c.Source.Host = "config-host"
	c.Source.Port = 9999

	applyCredentialOverrides(c)

	assert.Equal(t, "flag-host", c.Source.Host)
	assert.Equal(t, 1521, c.Source.Port)
}

func TestBuildLogger_ParsesRecognizedLevel(t *testing.T) {
	logger, err := buildLogger(config.LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestBuildLogger_FallsBackToInfoOnUnrecognizedLevel(t *testing.T) {
	logger, err := buildLogger(config.LoggingConfig{Level: "not-a-level", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
