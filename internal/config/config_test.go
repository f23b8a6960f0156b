package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())

	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Greater(t, cfg.Server.Port, 0)
	assert.Greater(t, cfg.Scanner.MaxAttempts, 0)
	assert.Greater(t, cfg.Scanner.DebounceSeconds, 0)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Port, cfg.Server.Port)
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chorus.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9999
library:
  root_dir: /music/library
  inbox_dir: /music/inbox
  auto_organize: true
scanner:
  debounce_seconds: 7
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "/music/library", cfg.Library.RootDir)
	assert.Equal(t, "/music/inbox", cfg.Library.InboxDir)
	assert.True(t, cfg.Library.AutoOrganize)
	assert.Equal(t, 7*time.Second, cfg.DebounceWindow())
}

func TestEnvOverridesBeatFile(t *testing.T) {
	t.Setenv("PORT", "7777")
	t.Setenv("DATABASE_TYPE", "postgres")
	t.Setenv("AUTO_ORGANIZE", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.True(t, cfg.Library.AutoOrganize)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = -1
	assert.Error(t, cfg.validate())

	cfg = Default()
	cfg.Database.Type = "oracle"
	assert.Error(t, cfg.validate())

	// Zero debounce is normalized rather than rejected
	cfg = Default()
	cfg.Scanner.DebounceSeconds = 0
	require.NoError(t, cfg.validate())
	assert.Equal(t, 3, cfg.Scanner.DebounceSeconds)
}
