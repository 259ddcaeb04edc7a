package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/genzj/warpconnect/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults().WarpNamePattern, cfg.WarpNamePattern)
	assert.NoError(t, Validate(cfg))
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
warp_name_pattern: "egress-*"
target_label: "app.warp_target"
routing_rules:
  - destination: "0.0.0.0/0"
  - destination: "10.0.0.0/8"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "egress-*", cfg.WarpNamePattern)
	assert.Equal(t, "app.warp_target", cfg.TargetLabel)
	require.Len(t, cfg.RoutingRules, 2)
	assert.Equal(t, "0.0.0.0/0", cfg.RoutingRules[0].Destination.String())
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().WarpNamePattern, cfg.WarpNamePattern)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("warp_name_pattern: \"from-file-*\"\n"), 0o644))
	t.Setenv("WARPCONNECT_WARP_NAME_PATTERN", "from-env-*")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env-*", cfg.WarpNamePattern)
}

func TestLoad_InvalidDestinationIsConfigError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("routing_rules:\n  - destination: \"not-a-cidr\"\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *types.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestValidate_RejectsRuleWithPortOrProtocol(t *testing.T) {
	cfg := Defaults()
	cfg.RoutingRules = []types.RoutingRule{{Protocol: "tcp"}}

	err := Validate(cfg)
	require.Error(t, err)
	var cfgErr *types.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestValidate_RejectsEmptyWarpNamePattern(t *testing.T) {
	cfg := Defaults()
	cfg.WarpNamePattern = ""
	require.Error(t, Validate(cfg))
}

func TestValidate_RejectsUnknownLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "verbose"
	require.Error(t, Validate(cfg))
}
