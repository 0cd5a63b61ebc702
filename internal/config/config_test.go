package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnvWithDefaults(t *testing.T) {
	t.Setenv("NOTES_TEST_ADDR", "db.example:50051")

	assert.Equal(t, "db.example:50051", expandEnvWithDefaults("${NOTES_TEST_ADDR:-localhost:1}"))
	assert.Equal(t, "fallback", expandEnvWithDefaults("${NOTES_TEST_UNSET:-fallback}"))
	assert.Equal(t, "", expandEnvWithDefaults("${NOTES_TEST_UNSET}"))
	assert.Equal(t, "plain", expandEnvWithDefaults("plain"))
}

func TestInitConfig_ClientConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yml")
	t.Setenv("NOTES_TEST_KEY", "secret-key")

	data := `
backend:
  prefer: remote
remote:
  addr: localhost:50051
  api_key: ${NOTES_TEST_KEY:-YOUR_API_KEY}
editor:
  autosave_delay_ms: 500
`
	require.NoError(t, os.WriteFile(file, []byte(data), 0o644))

	cfg, err := InitConfig[ClientConfig](file)
	require.NoError(t, err)

	assert.Equal(t, BackendRemote, cfg.Backend.Prefer)
	assert.Equal(t, "secret-key", cfg.Remote.APIKey)
	assert.Equal(t, "markdown-note-cloud", cfg.Remote.AppID, "default app id")
	assert.Equal(t, 500, cfg.Editor.AutosaveDelayMS)
	assert.Equal(t, "notes-storage.json", cfg.Local.Path)
	assert.True(t, cfg.Remote.Valid())
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load[ServerConfig](filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	assert.Equal(t, 50051, cfg.Server.PortGRPC)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "*", cfg.Gateway.CORSAllowedOrigins)
}

func TestConfigRemote_Valid(t *testing.T) {
	var nilRemote *ConfigRemote
	assert.False(t, nilRemote.Valid())
	assert.False(t, (&ConfigRemote{Addr: "x", APIKey: PlaceholderAPIKey, AppID: "a"}).Valid())
	assert.False(t, (&ConfigRemote{Addr: "", APIKey: "k", AppID: "a"}).Valid())
	assert.True(t, (&ConfigRemote{Addr: "x", APIKey: "k", AppID: "a"}).Valid())
}

func TestConfigAuth_Keys(t *testing.T) {
	a := &ConfigAuth{APIKeys: " k1, ,k2 "}
	assert.Equal(t, []string{"k1", "k2"}, a.Keys())
}
