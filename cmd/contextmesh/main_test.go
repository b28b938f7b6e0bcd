package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/contextmesh/internal/config"
	"github.com/hupe1980/contextmesh/model"
)

const sessionYAML = `
character:
  name: Elena
  description: Elena is the daughter of Marcus. She grew up in Ravenford.
  personality: Guarded and quick-witted.
chat:
  - name: Alex
    is_user: true
    mes: Where do we go next?
  - name: Elena
    mes: We travel to the Old Mill before dusk.
world_info:
  - key: [Blackwood]
    comment: Blackwood Forest location
    content: A dark forest.
  - key: Harbor
    comment: Harbor
    content: Ships dock here.
`

const storeYAML = `
values:
  storySynopsis: Elena searches for her missing father.
plot_lines:
  - title: The missing father
    summary: Marcus vanished near Blackwood.
`

type cliEnv struct {
	dir     string
	config  string
	session string
	store   string
}

func setupCLI(t *testing.T) cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	env := cliEnv{
		dir:     dir,
		config:  filepath.Join(dir, "config.yaml"),
		session: filepath.Join(dir, "session.yaml"),
		store:   filepath.Join(dir, "store.yaml"),
	}
	require.NoError(t, os.WriteFile(env.session, []byte(sessionYAML), 0o600))
	require.NoError(t, os.WriteFile(env.store, []byte(storeYAML), 0o600))
	cfg := "session: " + env.session + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o600))
	return env
}

func runCLI(t *testing.T, opts CLIOptions, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	opts.Stdout = &out
	opts.Stderr = &errOut
	cmd := newRootCmd(opts)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestProcessCommand(t *testing.T) {
	env := setupCLI(t)

	out, err := runCLI(t, CLIOptions{}, "process", "--config", env.config)
	require.NoError(t, err)

	var summary struct {
		Processed   bool   `json:"processed"`
		Passes      int    `json:"passes"`
		Messages    int    `json:"messages"`
		LoreEntries int    `json:"lore_entries"`
		Character   string `json:"character"`
		HasStore    bool   `json:"has_store"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.True(t, summary.Processed)
	assert.Equal(t, 1, summary.Passes)
	assert.Equal(t, 2, summary.Messages)
	assert.Equal(t, 2, summary.LoreEntries)
	assert.Equal(t, "Elena", summary.Character)
	assert.False(t, summary.HasStore)
}

func TestProcessCommand_WithStore(t *testing.T) {
	env := setupCLI(t)

	out, err := runCLI(t, CLIOptions{}, "process", "--config", env.config, "--store", env.store)
	require.NoError(t, err)
	assert.Contains(t, out, `"has_store": true`)
}

func TestProcessCommand_MissingSession(t *testing.T) {
	env := setupCLI(t)
	require.NoError(t, os.WriteFile(env.config, []byte("log:\n  level: error\n"), 0o600))

	_, err := runCLI(t, CLIOptions{}, "process", "--config", env.config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session file not set")
}

func TestProcessCommand_UnreadableSession(t *testing.T) {
	env := setupCLI(t)

	_, err := runCLI(t, CLIOptions{}, "process", "--config", env.config, "--session", filepath.Join(env.dir, "missing.json"))
	require.Error(t, err)
}

func TestQueryCommand(t *testing.T) {
	env := setupCLI(t)

	out, err := runCLI(t, CLIOptions{}, "query", "--config", env.config, "Blackwood", "forest")
	require.NoError(t, err)
	assert.Contains(t, out, "Blackwood Forest location")
	assert.NotContains(t, out, "Harbor")
}

func TestQueryCommand_JSONAndNoMatches(t *testing.T) {
	env := setupCLI(t)

	out, err := runCLI(t, CLIOptions{}, "query", "--config", env.config, "--json", "--source", "lore", "Blackwood")
	require.NoError(t, err)
	var res struct {
		Query string `json:"query"`
		Items []struct {
			Source string `json:"source"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Blackwood", res.Query)
	require.NotEmpty(t, res.Items)
	for _, it := range res.Items {
		assert.Equal(t, "lore", it.Source)
	}

	out, err = runCLI(t, CLIOptions{}, "query", "--config", env.config, "zeppelin")
	require.NoError(t, err)
	assert.Contains(t, out, "no matches")
}

func TestRouteCommand(t *testing.T) {
	env := setupCLI(t)

	out, err := runCLI(t, CLIOptions{}, "route", "writer", "--config", env.config)
	require.NoError(t, err)
	assert.Contains(t, out, "## Character Sheets")
	assert.Contains(t, out, "Elena")

	out, err = runCLI(t, CLIOptions{}, "route", "planner", "--config", env.config, "--store", env.store, "--json", "--phase", "outline")
	require.NoError(t, err)
	assert.Contains(t, out, `"consumer_name": "Planner"`)
	assert.Contains(t, out, `"phase": "outline"`)
	assert.Contains(t, out, "Elena searches for her missing father.")
}

func TestRouteCommand_UnknownConsumer(t *testing.T) {
	env := setupCLI(t)

	_, err := runCLI(t, CLIOptions{}, "route", "illustrator", "--config", env.config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown consumer")
	assert.Contains(t, err.Error(), "writer")
}

func TestGenerateCommand(t *testing.T) {
	env := setupCLI(t)
	mock := model.NewMockModel("test", "mock")
	mock.AddResponse("Go on", "The mill wheel creaked.")

	opts := CLIOptions{ModelFactory: func(*config.Config) (model.Model, error) { return mock, nil }}
	out, err := runCLI(t, opts, "generate", "writer", "Go on", "--config", env.config, "--stream")
	require.NoError(t, err)
	assert.Equal(t, "The mill wheel creaked.\n", out)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].Stream)
	assert.Contains(t, reqs[0].System, "You are the Writer.")
	assert.Contains(t, reqs[0].System, "## Character Sheets")
}

func TestGenerateCommand_DefaultPromptAndFactoryError(t *testing.T) {
	env := setupCLI(t)

	out, err := runCLI(t, CLIOptions{}, "generate", "continuity", "--config", env.config)
	require.NoError(t, err)
	assert.Contains(t, out, "Mock response to: "+model.DefaultUserPrompt)

	boom := errors.New("no backend")
	opts := CLIOptions{ModelFactory: func(*config.Config) (model.Model, error) { return nil, boom }}
	_, err = runCLI(t, opts, "generate", "writer", "--config", env.config)
	assert.ErrorIs(t, err, boom)
}

func TestProfilesCommand(t *testing.T) {
	env := setupCLI(t)

	out, err := runCLI(t, CLIOptions{}, "profiles", "--config", env.config)
	require.NoError(t, err)
	assert.Contains(t, out, "continuity (Continuity Editor)")
	assert.Contains(t, out, "planner (Planner)")
	assert.Contains(t, out, "writer (Writer)")
	assert.Contains(t, out, "needs: storySynopsis")
}

func TestProfilesCommand_FromFile(t *testing.T) {
	env := setupCLI(t)
	path := filepath.Join(env.dir, "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("critic:\n  name: Critic\n  context_needs: [recentScenes]\n"), 0o600))
	cfg := "session: " + env.session + "\nprofiles: " + path + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o600))

	out, err := runCLI(t, CLIOptions{}, "profiles", "--config", env.config)
	require.NoError(t, err)
	assert.Equal(t, "critic (Critic)\n  needs: recentScenes\n", out)
}

func TestDefaultModelFactory(t *testing.T) {
	cfg := config.Default()

	m, err := DefaultModelFactory(cfg)
	require.NoError(t, err)
	assert.Equal(t, "mock", m.Info().Provider)

	cfg.Provider.Type = "openai"
	cfg.Provider.APIKey = "test"
	m, err = DefaultModelFactory(cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", m.Info().Provider)

	cfg.Provider.Type = "anthropic"
	m, err = DefaultModelFactory(cfg)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", m.Info().Provider)

	cfg.Provider.Type = "llama"
	_, err = DefaultModelFactory(cfg)
	assert.Error(t, err)
}

func TestIsWatchedEvent(t *testing.T) {
	dir := t.TempDir()
	session := filepath.Join(dir, "session.yaml")
	targets := map[string]bool{cleanPath(session): true}

	assert.True(t, isWatchedEvent(fsnotify.Event{Name: session, Op: fsnotify.Write}, targets))
	assert.True(t, isWatchedEvent(fsnotify.Event{Name: session, Op: fsnotify.Create}, targets))
	assert.True(t, isWatchedEvent(fsnotify.Event{Name: session, Op: fsnotify.Rename}, targets))
	assert.False(t, isWatchedEvent(fsnotify.Event{Name: session, Op: fsnotify.Chmod}, targets))
	assert.False(t, isWatchedEvent(fsnotify.Event{Name: session, Op: fsnotify.Remove}, targets))
	assert.False(t, isWatchedEvent(fsnotify.Event{Name: filepath.Join(dir, "other.yaml"), Op: fsnotify.Write}, targets))
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine("a\n b\tc", 10))
	assert.Equal(t, "abcdefg...", oneLine("abcdefghijklmnop", 10))
}

func TestLoadStore_KeepsLastGoodStoreOnFailure(t *testing.T) {
	env := setupCLI(t)

	a, err := newApp(context.Background(), globalFlags{config: env.config, store: env.store}, io.Discard)
	require.NoError(t, err)
	t.Cleanup(a.close)

	good := a.store
	require.NotNil(t, good)

	require.NoError(t, os.WriteFile(env.store, []byte("values: ["), 0o600))
	assert.Error(t, a.loadStore())
	assert.Same(t, good, a.store)

	require.NoError(t, a.process(context.Background()))
	assert.True(t, a.mesh.Summary().HasStore)

	require.NoError(t, os.WriteFile(env.store, []byte("values:\n  storySynopsis: A new start.\n"), 0o600))
	require.NoError(t, a.loadStore())
	v, ok := a.store.Get("storySynopsis")
	require.True(t, ok)
	assert.Equal(t, "A new start.", v)
}
