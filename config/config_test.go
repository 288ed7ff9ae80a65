package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err, "an explicitly named config file must exist")

	cfg = Default()
	assert.Equal(t, "issues.sqlite", cfg.DatabasePath)
	assert.Equal(t, "https://api.github.com/graphql", cfg.Endpoint)
	assert.Equal(t, 50, cfg.PageSize)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labelfeed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"database_path: /tmp/store.sqlite\npage_size: 10\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/store.sqlite", cfg.DatabasePath)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, Default().Endpoint, cfg.Endpoint, "unset keys keep their defaults")
}

func TestTokenFallsBackToEnv(t *testing.T) {
	t.Setenv(EnvGithubToken, "env-token")
	assert.Equal(t, "arg-token", Token("arg-token"))
	assert.Equal(t, "env-token", Token(""))
}
