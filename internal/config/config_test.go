package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/contextmesh/format"
	"github.com/hupe1980/contextmesh/relevance"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultProvider, cfg.Provider.Type)
	assert.Equal(t, relevance.DefaultWeights(), cfg.Weights())
	assert.Equal(t, format.DefaultChatOptions(), cfg.ChatOptions())
	assert.Equal(t, 4000, cfg.Router.MaxLength)
}

func TestLoad_FileThenEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
session: story.json
chat:
  max_messages: 20
  mode: compact
relevance:
  keyword: 4
provider:
  type: anthropic
  model: claude-test
`), 0o600))

	t.Setenv("CONTEXTMESH_CHAT_MAX_MESSAGES", "12")
	t.Setenv("CONTEXTMESH_PROVIDER_API_KEY", "secret")
	t.Setenv("CONTEXTMESH_ROUTER_MAX_LENGTH", "1500")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "story.json", cfg.Session)
	assert.Equal(t, 12, cfg.Chat.MaxMessages)
	assert.Equal(t, format.ChatModeCompact, cfg.ChatOptions().Mode)
	assert.Equal(t, float64(4), cfg.Weights().Keyword)
	assert.Equal(t, float64(10), cfg.Weights().Exact)
	assert.Equal(t, "anthropic", cfg.Provider.Type)
	assert.Equal(t, "claude-test", cfg.Provider.Model)
	assert.Equal(t, "secret", cfg.Provider.APIKey)
	assert.Equal(t, 1500, cfg.Router.MaxLength)
}

func TestLoad_DefaultFileFromHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".contextmesh"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".contextmesh", "config.yaml"), []byte("store: state.yaml\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "state.yaml", cfg.Store)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("chat: [oops"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)

	t.Setenv("CONTEXTMESH_CHAT_MODE", "verbose")
	_, err = Load("")
	assert.ErrorContains(t, err, "chat mode")
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CONTEXTMESH_ROUTER_MAX_LENGTH", "lots")

	_, err := Load("")
	assert.ErrorContains(t, err, "parse env")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Provider.Type = "llama"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Log.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestLoad_TracingEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CONTEXTMESH_TRACING_ENDPOINT", "http://localhost:4318")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4318", cfg.Tracing.Endpoint)
	assert.Equal(t, "contextmesh", cfg.Tracing.ServiceName)
}
